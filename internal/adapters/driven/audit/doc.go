// Package audit groups the AuditSink adapters. Each sink lives in its own
// subpackage:
//
//   - jsonl writes one JSON object per event to a file
//   - async decouples a slow sink from query answering
//   - metrics turns events into Prometheus counters and histograms
//   - multi fans an event out to several sinks
//   - memory records events for tests and diagnostics
package audit
