// Package exporter writes the consolidated daily table to CSV and the
// per-run cleaning audit to JSON. Both writers stage output in a
// temporary file and rename it into place so a failed run never leaves
// a partial file behind.
package exporter
