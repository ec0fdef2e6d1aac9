// Package core defines the shared language of the cqlunit system.
//
// This package contains:
//   - The Dataset capability consumed by the loader and the merge
//   - The structural keyspace model (column families and rows)
//   - The error taxonomy shared by datasets, merges and loads
//   - Keyspace lifecycle dialects and executor configuration
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
