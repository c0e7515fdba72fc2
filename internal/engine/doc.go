// Package engine implements the generic watcher engine shared by all
// monitoring domains.
//
// A Watcher owns one background goroutine running a poll loop:
//
//	tick -> SignalSource.Poll -> Classifier -> Tracker -> Dedup -> Sink
//
// Domains plug in three strategies: a SignalSource producing snapshots of
// OS state, a Classifier turning a snapshot into weighted evidence, and a
// Tracker comparing the classified state against the previous tick to
// yield candidate events. The engine provides scheduling, confidence
// scoring, deduplication, heartbeats, and the thread-safe hand-off to the
// single consumer callback.
package engine
