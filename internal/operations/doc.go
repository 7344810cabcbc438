// Package operations orchestrates the consolidation pipeline as a fixed
// sequence of steps: discover and load the raw exports, normalize dates,
// reduce sub-daily tables to daily grain, merge onto the activity base,
// clean, and export. Each run is tagged with a uuid run ID that flows
// through logging and tracing; a step error aborts the run before any
// output file is written.
package operations
