// Package cache provides the two cache tiers of the course catalog and the
// key derivation shared by both.
//
// # Keys
//
// Keys are derived deterministically from a language identifier and an
// optional chapter title. Titles that differ only in case or whitespace
// produce the same key:
//
//	cache.ListKey("python3")              // "python3-courseChapters"
//	cache.ChapterKey("go", " Error  Handling") // "chapter-go-error-handling"
//
// # Session Cache
//
// Session holds decoded values for the lifetime of the process. It is safe
// for concurrent use and is passed explicitly to the orchestrator:
//
//	session := cache.NewSession(0)
//	session.Lists.Set(cache.ListKey("go"), chapters)
//
// # Persistent Store
//
// Store is a string key-value contract with three implementations:
//
//   - MemoryStore: process-local, used in tests
//   - RedisStore: go-redis backed, shared between processes
//   - SQLiteStore: a single local file
//
// Values are JSON: listings under "{language}-courseChapters" and chapter
// metadata under "chapter-{language}-{title}". Store failures are returned
// as *StoreError and are meant to be treated as misses.
//
// # Metrics
//
//   - catalog_cache_hits_total{layer} - Cache hits
//   - catalog_cache_misses_total{layer} - Cache misses
//   - catalog_store_errors_total{operation} - Persistent store errors
package cache
