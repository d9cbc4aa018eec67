// Package weight provides the trigger-path assignment and sample-combination
// weighting engine for the dijet analysis.
//
// # Reading Guide
//
// Start with these files to understand the weighting kernel:
//   - path.go: path identifiers, the path menu and per-event decision bits
//   - threshold.go: piecewise threshold classification of an observable into one path
//   - engine.go: per-family event weight and the combination of weight factors
//
// # Architecture
//
// The weight package owns pure, immutable tables; everything that changes at
// scope boundaries lives in sub-packages:
//   - weight/scope/: Global/Run/Lumi caches and the producer state machine
//   - weight/period/: YAML run-period configuration and the embedded reference period
//   - weight/source/: file-backed trigger decision source used for replay
//   - weight/lumimask/: certified run/luminosity-block filter
//   - weight/trace/: per-event output records and weighted summaries
//
// Tables are validated once at construction; per-event computation never fails.
package weight
