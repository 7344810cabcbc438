package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fitcli/pkg/contracts/domain"
)

// Heart-rate plausibility window. Readings outside it are sensor noise
// and become null rather than costing the whole row.
const (
	minPlausibleHeartRate = 30
	maxPlausibleHeartRate = 250
)

// outlierColumns are the metrics screened with population-level Tukey
// bounds. Population-level (not per-user) bounds are a deliberate
// policy: a uniformly hyperactive user is signal, a single impossible
// day is not.
var outlierColumns = []string{"TotalSteps", "Calories", "VeryActiveMinutes", "TotalDistance"}

// StageResult records what one cleaning stage did, for the audit report.
type StageResult struct {
	Stage       string            `json:"stage"`
	RowsIn      int               `json:"rows_in"`
	RowsOut     int               `json:"rows_out"`
	RowsDropped int               `json:"rows_dropped"`
	CellsNulled int               `json:"cells_nulled,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
	DurationMS  float64           `json:"duration_ms"`
}

// Cleaner runs the fixed-order remediation pipeline over the unified
// table. Later stages depend on flags and fills set earlier, so the
// order is part of the contract.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Clean applies the remediation stages in order and returns the cleaned
// table plus a per-stage audit trail. The input slice is not mutated.
func (c *Cleaner) Clean(ctx context.Context, rows []domain.UnifiedRow) ([]domain.UnifiedRow, []StageResult, error) {
	work := make([]domain.UnifiedRow, len(rows))
	copy(work, rows)

	stages := []struct {
		name string
		fn   func([]domain.UnifiedRow, *StageResult) []domain.UnifiedRow
	}{
		{"deduplicate", c.deduplicate},
		{"essential_completeness", c.enforceEssentials},
		{"tracking_flags", c.deriveTrackingFlags},
		{"outlier_rejection", c.rejectOutliers},
		{"derived_metrics", c.deriveMetrics},
		{"column_pruning", c.pruneColumns},
		{"negative_scrub", c.scrubNegatives},
		{"rounding", c.roundContinuous},
	}

	results := make([]StageResult, 0, len(stages))
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		result := StageResult{Stage: stage.name, RowsIn: len(work)}
		start := time.Now()
		work = stage.fn(work, &result)
		result.RowsOut = len(work)
		result.RowsDropped = result.RowsIn - result.RowsOut
		result.DurationMS = float64(time.Since(start).Microseconds()) / 1000

		c.logger.InfoContext(ctx, "cleaning stage complete",
			slog.String("stage", result.Stage),
			slog.Int("rows_in", result.RowsIn),
			slog.Int("rows_out", result.RowsOut),
			slog.Int("cells_nulled", result.CellsNulled))

		results = append(results, result)
	}

	return work, results, nil
}

// deduplicate drops rows identical across every column, keeping first
// occurrence order.
func (c *Cleaner) deduplicate(rows []domain.UnifiedRow, _ *StageResult) []domain.UnifiedRow {
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	for i := range rows {
		sig := rowSignature(&rows[i])
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, rows[i])
	}
	return out
}

// enforceEssentials drops rows missing TotalSteps or Calories, derives
// HasSleepData from sleep null-ness and fills absent sleep with 0, and
// imputes missing weight, BMI, and heart-rate values with the same
// user's own across-date mean. Imputation is per-user by design: a
// global mean would drag every light user toward the population.
func (c *Cleaner) enforceEssentials(rows []domain.UnifiedRow, result *StageResult) []domain.UnifiedRow {
	nullCalories := 0
	out := rows[:0:0]
	for i := range rows {
		if rows[i].Calories == nil {
			nullCalories++
		}
		if rows[i].TotalSteps == nil || rows[i].Calories == nil {
			continue
		}
		out = append(out, rows[i])
	}

	// The historical calorie imputation computed a steps-to-calorie
	// replacement but never wrote it back; kept as a logged diagnostic
	// until the intended behavior is confirmed.
	if ratio, ok := caloriesPerStep(out); ok && nullCalories > 0 {
		c.logger.Info("calorie imputation candidate (not applied)",
			slog.Float64("calories_per_step", ratio),
			slog.Int("rows_dropped_with_null_calories", nullCalories))
	}

	for i := range out {
		out[i].HasSleepData = out[i].TotalMinutesAsleep != nil
		if out[i].TotalMinutesAsleep == nil {
			out[i].TotalMinutesAsleep = domain.Float(0)
		}
		if out[i].TotalTimeInBed == nil {
			out[i].TotalTimeInBed = domain.Float(0)
		}
	}

	filled := 0
	filled += imputePerUserMean(out, func(r *domain.UnifiedRow) **float64 { return &r.AvgWeightKg })
	filled += imputePerUserMean(out, func(r *domain.UnifiedRow) **float64 { return &r.AvgWeightLb })
	filled += imputePerUserMean(out, func(r *domain.UnifiedRow) **float64 { return &r.AvgBMI })
	filled += imputePerUserMean(out, func(r *domain.UnifiedRow) **float64 { return &r.AvgHeartRate })
	if filled > 0 {
		result.Notes = map[string]string{"cells_imputed": strconv.Itoa(filled)}
	}

	return out
}

// deriveTrackingFlags sets the weight and BMI flags from null-ness after
// imputation has had its chance.
func (c *Cleaner) deriveTrackingFlags(rows []domain.UnifiedRow, _ *StageResult) []domain.UnifiedRow {
	for i := range rows {
		rows[i].HasWeightData = rows[i].AvgWeightKg != nil
		rows[i].HasBMIData = rows[i].AvgBMI != nil
	}
	return rows
}

// rejectOutliers drops rows outside population-level Tukey bounds for
// each screened metric (nulls pass), then nulls implausible heart rates
// and derives HasHeartRateData from what survives.
func (c *Cleaner) rejectOutliers(rows []domain.UnifiedRow, result *StageResult) []domain.UnifiedRow {
	type bounds struct{ lo, hi float64 }
	columnBounds := make(map[string]bounds, len(outlierColumns))
	result.Notes = make(map[string]string, len(outlierColumns))

	for _, col := range outlierColumns {
		var values []float64
		for i := range rows {
			if v := metricValue(&rows[i], col); v != nil {
				values = append(values, *v)
			}
		}
		lo, hi, ok := TukeyBounds(values)
		if !ok {
			continue
		}
		columnBounds[col] = bounds{lo, hi}
		result.Notes[col] = fmt.Sprintf("[%.2f, %.2f]", lo, hi)
	}

	out := rows[:0:0]
	for i := range rows {
		keep := true
		for col, b := range columnBounds {
			v := metricValue(&rows[i], col)
			if v != nil && (*v < b.lo || *v > b.hi) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rows[i])
		}
	}

	clamped := 0
	for i := range out {
		if hr := out[i].AvgHeartRate; hr != nil && (*hr < minPlausibleHeartRate || *hr > maxPlausibleHeartRate) {
			out[i].AvgHeartRate = nil
			result.CellsNulled++
			clamped++
		}
		out[i].HasHeartRateData = out[i].AvgHeartRate != nil
	}
	// Recorded so the audit explains the nulled cells; reprocessing the
	// output re-imputes them from the user's surviving mean.
	if clamped > 0 {
		result.Notes["AvgHeartRate"] = fmt.Sprintf("clamped %d outside [%d, %d]",
			clamped, minPlausibleHeartRate, maxPlausibleHeartRate)
	}

	return out
}

// deriveMetrics computes the ratio columns, guarding their denominators.
func (c *Cleaner) deriveMetrics(rows []domain.UnifiedRow, _ *StageResult) []domain.UnifiedRow {
	for i := range rows {
		r := &rows[i]

		r.SleepEfficiency = nil
		if r.TotalMinutesAsleep != nil && r.TotalTimeInBed != nil && *r.TotalTimeInBed > 0 {
			r.SleepEfficiency = domain.Float(*r.TotalMinutesAsleep / *r.TotalTimeInBed)
		}

		r.VeryActiveRatio = nil
		if r.VeryActiveDistance != nil && r.TotalDistance != nil && *r.TotalDistance > 0 {
			r.VeryActiveRatio = domain.Float(*r.VeryActiveDistance / *r.TotalDistance)
		}
	}
	return rows
}

// pruneColumns nulls the low-value columns; the exporter omits them from
// the output header.
func (c *Cleaner) pruneColumns(rows []domain.UnifiedRow, result *StageResult) []domain.UnifiedRow {
	for i := range rows {
		if rows[i].SedentaryActiveDistance != nil {
			rows[i].SedentaryActiveDistance = nil
			result.CellsNulled++
		}
		if rows[i].AvgWeightLb != nil {
			rows[i].AvgWeightLb = nil
			result.CellsNulled++
		}
	}
	return rows
}

// scrubNegatives nulls any negative metric cell. Negative telemetry is a
// sensor or export artifact, never a valid reading.
func (c *Cleaner) scrubNegatives(rows []domain.UnifiedRow, result *StageResult) []domain.UnifiedRow {
	for i := range rows {
		rows[i].EachMetric(func(_ string, v **float64) {
			if *v != nil && **v < 0 {
				*v = nil
				result.CellsNulled++
			}
		})
	}
	return rows
}

// roundContinuous rounds continuous columns to two decimals. Identifier,
// count, and flag columns are untouched.
func (c *Cleaner) roundContinuous(rows []domain.UnifiedRow, _ *StageResult) []domain.UnifiedRow {
	for i := range rows {
		rows[i].EachMetric(func(name string, v **float64) {
			if *v != nil && domain.ContinuousColumns[name] {
				*v = domain.Float(round2(**v))
			}
		})
	}
	return rows
}

// imputePerUserMean fills null cells of one column with the owning
// user's across-date mean, as a group-aggregate-then-join: means are
// computed over the whole column first, then applied in a second pass.
func imputePerUserMean(rows []domain.UnifiedRow, field func(*domain.UnifiedRow) **float64) int {
	sums := make(map[int64]float64)
	counts := make(map[int64]float64)
	for i := range rows {
		if v := *field(&rows[i]); v != nil {
			sums[rows[i].UserID] += *v
			counts[rows[i].UserID]++
		}
	}

	filled := 0
	for i := range rows {
		cell := field(&rows[i])
		if *cell != nil {
			continue
		}
		if n := counts[rows[i].UserID]; n > 0 {
			*cell = domain.Float(sums[rows[i].UserID] / n)
			filled++
		}
	}
	return filled
}

// caloriesPerStep estimates the population calories-to-steps ratio from
// rows where both are present and steps are positive.
func caloriesPerStep(rows []domain.UnifiedRow) (float64, bool) {
	var ratios []float64
	for i := range rows {
		if rows[i].TotalSteps != nil && rows[i].Calories != nil && *rows[i].TotalSteps > 0 {
			ratios = append(ratios, *rows[i].Calories / *rows[i].TotalSteps)
		}
	}
	return Mean(ratios)
}

// metricValue reads one named metric from a row.
func metricValue(r *domain.UnifiedRow, name string) *float64 {
	var out *float64
	r.EachMetric(func(n string, v **float64) {
		if n == name {
			out = *v
		}
	})
	return out
}

// rowSignature renders every column of a row into a comparable string.
// Pointer fields make struct equality useless for deduplication.
func rowSignature(r *domain.UnifiedRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s", r.UserID, r.Date)
	r.EachMetric(func(_ string, v **float64) {
		b.WriteByte('|')
		if *v == nil {
			b.WriteByte('~')
		} else {
			b.WriteString(strconv.FormatFloat(**v, 'g', -1, 64))
		}
	})
	fmt.Fprintf(&b, "|%t|%t|%t|%t",
		r.HasSleepData, r.HasWeightData, r.HasBMIData, r.HasHeartRateData)
	return b.String()
}
