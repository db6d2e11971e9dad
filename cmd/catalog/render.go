package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/course-catalog/pkg/catalog"
	"github.com/Sternrassler/course-catalog/pkg/content"
	"github.com/Sternrassler/course-catalog/pkg/warm"
	"github.com/fatih/color"
)

// Color scheme for the CLI
var (
	colorTitle   = color.New(color.FgCyan, color.Bold)
	colorNumber  = color.New(color.FgMagenta)
	colorError   = color.New(color.FgRed, color.Bold)
	colorSuccess = color.New(color.FgGreen)
	colorInfo    = color.New(color.FgBlue)
	colorWarning = color.New(color.FgYellow)
	colorCode    = color.New(color.FgHiBlack)
)

// errCancelled is returned by renderers when the view was abandoned.
var errCancelled = errors.New("cancelled")

// viewError turns a non-ready view into an error. Abandoned views yield
// errCancelled.
func viewError[T any](v catalog.View[T]) error {
	switch v.Status {
	case catalog.StatusReady:
		return nil
	case catalog.StatusIdle:
		return errCancelled
	default:
		return errors.New(v.Message)
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderChapters(w io.Writer, language string, v catalog.View[[]content.ChapterSummary]) error {
	if err := viewError(v); err != nil {
		return err
	}

	colorTitle.Fprintf(w, "%s chapters", language)
	colorInfo.Fprintf(w, " (%s)\n", v.Source)
	if len(v.Data) == 0 {
		colorWarning.Fprintln(w, "  no chapters")
		return nil
	}
	for _, ch := range v.Data {
		colorNumber.Fprintf(w, "%3d. ", ch.Chapter)
		fmt.Fprintln(w, ch.ChapterTitle)
		if ch.ChapterDescription != "" {
			fmt.Fprintf(w, "     %s\n", ch.ChapterDescription)
		}
	}
	return nil
}

func renderChapter(w io.Writer, v catalog.View[content.ChapterDetail]) error {
	if err := viewError(v); err != nil {
		return err
	}

	d := v.Data
	colorTitle.Fprint(w, d.ChapterTitle)
	colorInfo.Fprintf(w, " (%s)\n", v.Source)
	if d.ChapterDescription != "" {
		fmt.Fprintf(w, "%s\n", d.ChapterDescription)
	}

	for _, s := range d.Sections {
		fmt.Fprintln(w)
		colorSuccess.Fprintln(w, s.SectionTitle)
		fmt.Fprintln(w, s.SectionContent)
	}
	if len(d.Examples) > 0 {
		fmt.Fprintln(w)
		colorTitle.Fprintln(w, "Examples")
		for _, ex := range d.Examples {
			colorSuccess.Fprintln(w, ex.ExampleTitle)
			colorCode.Fprintln(w, ex.ExampleCode)
		}
	}
	if len(d.Exercises) > 0 {
		fmt.Fprintln(w)
		colorTitle.Fprintln(w, "Exercises")
		for i, ex := range d.Exercises {
			colorNumber.Fprintf(w, "%d. ", i+1)
			fmt.Fprintf(w, "%s: %s\n", ex.ExerciseTitle, ex.ExerciseDescription)
		}
	}
	return nil
}

func renderWarmReport(w io.Writer, r *warm.Report) {
	colorTitle.Fprintf(w, "%s", r.Language)
	colorInfo.Fprintf(w, " listing from %s\n", r.ListSource)
	for _, ch := range r.Chapters {
		if ch.Err != nil {
			if ch.Outcome.Kind == catalog.OutcomeCancelled {
				colorWarning.Fprintf(w, "  - %s: cancelled\n", ch.Chapter.ChapterTitle)
				continue
			}
			colorError.Fprintf(w, "  ✗ %s: %s\n", ch.Chapter.ChapterTitle, ch.Outcome)
			continue
		}
		colorSuccess.Fprintf(w, "  ✓ %s", ch.Chapter.ChapterTitle)
		colorInfo.Fprintf(w, " (%s)\n", ch.Source)
	}

	summary := fmt.Sprintf("%d chapters, %d failed in %s", len(r.Chapters), r.Failed(), r.Duration.Round(time.Millisecond))
	if r.Failed() > 0 {
		colorWarning.Fprintln(w, summary)
	} else {
		colorSuccess.Fprintln(w, summary)
	}
}

// renderCounters prints the catalog counters collected during this run.
func renderCounters(w io.Writer, counters map[string]float64, names ...string) {
	for _, name := range names {
		colorInfo.Fprintf(w, "%-32s", name)
		fmt.Fprintf(w, " %.0f\n", counters[name])
	}
}
