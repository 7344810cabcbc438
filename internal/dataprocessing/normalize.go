package dataprocessing

import (
	"fmt"
	"log/slog"
	"time"

	apperrors "fitcli/internal/errors"
	"fitcli/pkg/contracts/domain"
)

// CanonicalDateColumn is the shared date key every mergeable table
// carries after normalization.
const CanonicalDateColumn = "Date"

// canonicalDateLayout is the date-only form values are rewritten to.
const canonicalDateLayout = "2006-01-02"

// dateLayouts are the timestamp forms seen across Fitabase exports,
// tried in order. Time-of-day components are discarded.
var dateLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalizer rewrites each table's date column to the canonical key and
// coerces its values to date-only form, in place.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// NormalizeDates renames each table's schema-mapped date column to
// CanonicalDateColumn and parses every value permissively: unparseable
// cells become empty (null), never an error. A table whose mapped column
// is absent fails loudly, so schema drift in an export surfaces here
// instead of mis-tagging a column downstream. Tables with fewer than two
// columns are left untouched; they cannot be merged later.
func (n *Normalizer) NormalizeDates(set TableSet) error {
	for tag, table := range set {
		if len(table.Columns) < 2 {
			n.logger.Warn("table too narrow to normalize, excluded from merge",
				slog.String("table", tag),
				slog.Int("columns", len(table.Columns)))
			continue
		}

		dateCol, ok := domain.DateColumn[table.Kind]
		if !ok {
			return apperrors.NewParsingError(
				fmt.Sprintf("no date column mapping for source kind %s", table.Kind), nil)
		}

		idx := table.ColumnIndex(dateCol)
		if idx < 0 {
			return apperrors.NewParsingError(
				fmt.Sprintf("table %s is missing expected date column %q", tag, dateCol), nil).
				WithContext("columns", table.Columns)
		}

		table.Columns[idx] = CanonicalDateColumn

		var unparseable int
		for _, row := range table.Rows {
			if idx >= len(row) {
				continue
			}
			canonical, ok := ParseDateValue(row[idx])
			if !ok && row[idx] != "" {
				unparseable++
			}
			row[idx] = canonical
		}

		if unparseable > 0 {
			n.logger.Warn("unparseable date values set to null",
				slog.String("table", tag),
				slog.Int("count", unparseable))
		}

		n.logger.Debug("normalized date column",
			slog.String("table", tag),
			slog.String("source_column", dateCol))
	}

	return nil
}

// ParseDateValue parses a raw export timestamp and returns its canonical
// date-only form. The empty string signals null.
func ParseDateValue(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format(canonicalDateLayout), true
		}
	}
	return "", false
}
