// Package scraper implements the thread synchronization engine.
//
// A sync moves through a small state machine: FETCHING, then one of
// UPDATED (fresh 200 snapshot, cache rewritten), REUSED (304 answer,
// cached snapshot reused under the reuse policy) or ABORTED (anything
// else, reported through the typed errors in pkg/errors).
//
// From a usable snapshot the engine renders destination paths through
// pkg/naming, routes collisions through pkg/collision, and hands the
// resulting plan to the paced downloader. Everything runs strictly
// sequentially; there is no cross-thread or cross-file concurrency.
package scraper
