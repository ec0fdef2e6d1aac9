// Package dataset binds statement sources to keyspace lifecycle policy.
//
// Two variants implement core.Dataset:
//   - CQL: a flat script split into statements by the cql lexer
//   - Structured: a keyspace/column-family model read from JSON or YAML
//     and rendered to CREATE TABLE and INSERT statements
//
// Sources are resolved when a dataset is constructed, so construction
// doubles as validation before any database is touched. MultiSource
// merges several sources that describe one keyspace.
package dataset
