// Package dataprocessing implements the consolidation pipeline for raw
// Fitbit export tables: loading, date normalization, granularity
// reduction, multi-window merge, and the ordered cleaning pass.
//
// Data flows strictly forward. Raw tables are ephemeral; the merged
// per-(user, day) table is built once per run and handed downstream
// immutable. Each cleaning stage records what it changed so a run can be
// audited after the fact.
package dataprocessing
