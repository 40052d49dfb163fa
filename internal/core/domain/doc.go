// Package domain defines the core business entities for concierge.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An immutable text blob with a source identifier
//   - Chunk: A contiguous character span of a document with offsets
//   - QAPair: A curated question and its answer
//   - ClassificationResult: A label plus a full probability distribution
//   - RoutingDecision: The strategy chosen for a query and why
//   - RetrievalResult: Ranked chunks with a confidence verdict
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
