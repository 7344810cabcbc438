package dataprocessing

import (
	"fmt"
	"log/slog"

	apperrors "fitcli/internal/errors"
	"fitcli/pkg/contracts/domain"
)

// activityColumns maps UnifiedRow metric setters to the daily activity
// export's column names. Columns absent from a particular export load as
// null rather than failing; only the key columns are mandatory.
var activityColumns = []struct {
	name   string
	assign func(*domain.UnifiedRow, *float64)
}{
	{"TotalSteps", func(r *domain.UnifiedRow, v *float64) { r.TotalSteps = v }},
	{"TotalDistance", func(r *domain.UnifiedRow, v *float64) { r.TotalDistance = v }},
	{"TrackerDistance", func(r *domain.UnifiedRow, v *float64) { r.TrackerDistance = v }},
	{"LoggedActivitiesDistance", func(r *domain.UnifiedRow, v *float64) { r.LoggedActivitiesDistance = v }},
	{"VeryActiveDistance", func(r *domain.UnifiedRow, v *float64) { r.VeryActiveDistance = v }},
	{"ModeratelyActiveDistance", func(r *domain.UnifiedRow, v *float64) { r.ModeratelyActiveDistance = v }},
	{"LightActiveDistance", func(r *domain.UnifiedRow, v *float64) { r.LightActiveDistance = v }},
	{"SedentaryActiveDistance", func(r *domain.UnifiedRow, v *float64) { r.SedentaryActiveDistance = v }},
	{"VeryActiveMinutes", func(r *domain.UnifiedRow, v *float64) { r.VeryActiveMinutes = v }},
	{"FairlyActiveMinutes", func(r *domain.UnifiedRow, v *float64) { r.FairlyActiveMinutes = v }},
	{"LightlyActiveMinutes", func(r *domain.UnifiedRow, v *float64) { r.LightlyActiveMinutes = v }},
	{"SedentaryMinutes", func(r *domain.UnifiedRow, v *float64) { r.SedentaryMinutes = v }},
	{"Calories", func(r *domain.UnifiedRow, v *float64) { r.Calories = v }},
}

// Merger builds the unified table: the concatenated activity exports are
// the base relation, and the reduced sleep, weight, and heart-rate
// tables are left-joined onto it by (user, date).
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merger.
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger}
}

// Merge concatenates each window's activity table and left-joins the
// reduced metrics. Every activity row survives; a missing joined metric
// is null, never a dropped row, never a fabricated default. A discovered
// window without an activity table is fatal: activity defines the row
// set, so proceeding would silently truncate the output.
func (m *Merger) Merge(windows []domain.Window, set TableSet, reduced *Reduced) ([]domain.UnifiedRow, error) {
	var base []domain.UnifiedRow

	for _, w := range windows {
		t, ok := set.Lookup(domain.KindDailyActivity, w.Label)
		if !ok {
			return nil, apperrors.NewIngestError(
				fmt.Sprintf("no daily activity table for window %s", w.Label), nil).
				WithContext("window", w.Label)
		}

		rows, err := m.parseActivity(t)
		if err != nil {
			return nil, err
		}
		base = append(base, rows...)

		m.logger.Info("concatenated activity table",
			slog.String("window", w.Label),
			slog.Int("rows", len(rows)))
	}

	sleepByKey := make(map[domain.DayKey]domain.SleepDay, len(reduced.Sleep))
	for _, s := range reduced.Sleep {
		sleepByKey[domain.DayKey{UserID: s.UserID, Date: s.Date}] = s
	}
	heartByKey := make(map[domain.DayKey]domain.HeartRateDay, len(reduced.Heart))
	for _, h := range reduced.Heart {
		heartByKey[domain.DayKey{UserID: h.UserID, Date: h.Date}] = h
	}
	weightByKey := make(map[domain.DayKey]domain.WeightDay, len(reduced.Weight))
	for _, wd := range reduced.Weight {
		weightByKey[domain.DayKey{UserID: wd.UserID, Date: wd.Date}] = wd
	}

	for i := range base {
		key := base[i].Key()
		if s, ok := sleepByKey[key]; ok {
			base[i].TotalMinutesAsleep = domain.Float(s.TotalMinutesAsleep)
			base[i].TotalTimeInBed = domain.Float(s.TotalTimeInBed)
		}
		if h, ok := heartByKey[key]; ok {
			base[i].AvgHeartRate = domain.Float(h.AvgHeartRate)
		}
		if wd, ok := weightByKey[key]; ok {
			base[i].AvgWeightKg = wd.AvgWeightKg
			base[i].AvgWeightLb = wd.AvgWeightLb
			base[i].AvgBMI = wd.AvgBMI
		}
	}

	m.logger.Info("merge complete",
		slog.Int("unified_rows", len(base)))

	return base, nil
}

// parseActivity converts a normalized daily activity table into base
// UnifiedRows. Rows whose (user, date) key cannot be parsed are skipped;
// they could never be joined or keyed downstream.
func (m *Merger) parseActivity(t *RawTable) ([]domain.UnifiedRow, error) {
	idIdx, dateIdx, err := keyColumns(t)
	if err != nil {
		return nil, err
	}

	indexes := make([]int, len(activityColumns))
	for i, col := range activityColumns {
		indexes[i] = t.ColumnIndex(col.name)
	}

	rows := make([]domain.UnifiedRow, 0, len(t.Rows))
	skipped := 0

	for _, raw := range t.Rows {
		key, ok := rowKey(t, raw, idIdx, dateIdx)
		if !ok {
			skipped++
			continue
		}

		row := domain.UnifiedRow{UserID: key.UserID, Date: key.Date}
		for i, col := range activityColumns {
			if indexes[i] < 0 {
				continue
			}
			col.assign(&row, parseFloatCell(t.Cell(raw, indexes[i])))
		}
		rows = append(rows, row)
	}

	if skipped > 0 {
		m.logger.Warn("skipped unkeyable activity rows",
			slog.String("table", t.Tag()),
			slog.Int("count", skipped))
	}

	return rows, nil
}
