// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Maps text to fixed-dimension vectors
//   - Classifier: Produces a label distribution for a query
//   - VectorIndex: Exact nearest-neighbour search over one index
//   - RuleEngine: Deterministic pattern answers
//   - SnapshotStore: Persists built indices
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - AuditSink: Structured query events. Nil discards events.
//   - UnresolvedStore: Records refused queries.
//   - StatsStore: Query frequency counters.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
