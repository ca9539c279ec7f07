// Package events carries acquisition lifecycle milestones from the fetch
// pipeline and the health monitor to pluggable sinks. The hub batches events
// on a background goroutine and never blocks an emitter, so a slow sink can
// only ever cost events, not browser time.
package events
