// Package browser owns the headless Chrome session behind the screener
// pipeline. A Manager launches Chrome through chromedp with a scratch
// download directory wired in, optionally signs the session in from a
// cookie file, and exposes the small set of DOM primitives the acquisition
// code drives: navigation, clicks, typing, and document reads.
//
// The Manager serializes page interactions behind a single gate mutex so
// only one fetch touches the shared tab at a time, while liveness probes
// and status snapshots read session state through a separate lock and never
// queue behind a running fetch. Restart tears the whole session down,
// including the download directory, and brings up a fresh one.
package browser
