package dataprocessing

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	apperrors "fitcli/internal/errors"
	"fitcli/pkg/contracts/domain"
)

// asleepStageCode is the minute-sleep stage value meaning "asleep".
// Codes 2 (restless) and 3 (awake) count toward time in bed only.
const asleepStageCode = "1"

// Reduced holds the granularity-reduced sleep, heart-rate, and weight
// tables, concatenated across windows. Keys are disjoint across windows
// because the export periods do not overlap.
type Reduced struct {
	Sleep  []domain.SleepDay
	Heart  []domain.HeartRateDay
	Weight []domain.WeightDay
}

// Reducer collapses sub-daily records into one row per (user, date).
type Reducer struct {
	logger *slog.Logger
}

// NewReducer creates a reducer.
func NewReducer(logger *slog.Logger) *Reducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{logger: logger}
}

// ReduceAll reduces every window's sleep, heart-rate, and weight tables.
// Minute-level sleep is the authoritative sleep source; a window that
// shipped only the daily sleep summary falls back to it. Missing tables
// for a window reduce to nothing: absent metrics surface as nulls after
// the merge, never as dropped activity rows.
func (r *Reducer) ReduceAll(windows []domain.Window, set TableSet) (*Reduced, error) {
	reduced := &Reduced{}

	for _, w := range windows {
		if t, ok := set.Lookup(domain.KindMinuteSleep, w.Label); ok {
			sleep, err := r.ReduceMinuteSleep(t)
			if err != nil {
				return nil, err
			}
			reduced.Sleep = append(reduced.Sleep, sleep...)
		} else if t, ok := set.Lookup(domain.KindSleepDay, w.Label); ok {
			r.logger.Info("window has no minute-level sleep, using daily sleep summary",
				slog.String("window", w.Label))
			sleep, err := r.ReduceSleepDay(t)
			if err != nil {
				return nil, err
			}
			reduced.Sleep = append(reduced.Sleep, sleep...)
		}

		if t, ok := set.Lookup(domain.KindHeartRateSeconds, w.Label); ok {
			heart, err := r.ReduceHeartRate(t)
			if err != nil {
				return nil, err
			}
			reduced.Heart = append(reduced.Heart, heart...)
		}

		if t, ok := set.Lookup(domain.KindWeightLog, w.Label); ok {
			weight, err := r.ReduceWeight(t)
			if err != nil {
				return nil, err
			}
			reduced.Weight = append(reduced.Weight, weight...)
		}
	}

	r.logger.Info("granularity reduction complete",
		slog.Int("sleep_days", len(reduced.Sleep)),
		slog.Int("heart_rate_days", len(reduced.Heart)),
		slog.Int("weight_days", len(reduced.Weight)))

	return reduced, nil
}

// ReduceMinuteSleep collapses one-row-per-minute sleep records:
// TotalTimeInBed is the minute-row count per (user, date) and
// TotalMinutesAsleep the count of minutes coded asleep. A day in bed
// with zero asleep minutes is emitted with 0, never omitted.
func (r *Reducer) ReduceMinuteSleep(t *RawTable) ([]domain.SleepDay, error) {
	idIdx, dateIdx, err := keyColumns(t)
	if err != nil {
		return nil, err
	}
	valueIdx := t.ColumnIndex("value")
	if valueIdx < 0 {
		return nil, missingColumn(t, "value")
	}

	type counts struct{ inBed, asleep float64 }
	byKey := make(map[domain.DayKey]*counts)
	skipped := 0

	for _, row := range t.Rows {
		key, ok := rowKey(t, row, idIdx, dateIdx)
		if !ok {
			skipped++
			continue
		}
		c := byKey[key]
		if c == nil {
			c = &counts{}
			byKey[key] = c
		}
		c.inBed++
		if t.Cell(row, valueIdx) == asleepStageCode {
			c.asleep++
		}
	}

	r.logSkipped(t, skipped)

	out := make([]domain.SleepDay, 0, len(byKey))
	for key, c := range byKey {
		out = append(out, domain.SleepDay{
			UserID:             key.UserID,
			Date:               key.Date,
			TotalMinutesAsleep: c.asleep,
			TotalTimeInBed:     c.inBed,
		})
	}
	sortSleep(out)
	return out, nil
}

// ReduceSleepDay converts the daily sleep summary export to the same
// shape as the minute-level reduction. The export is known to carry
// byte-identical duplicate day records; exact repeats are dropped so
// they cannot double the totals, then any remaining distinct rows for
// the same (user, date) are summed.
func (r *Reducer) ReduceSleepDay(t *RawTable) ([]domain.SleepDay, error) {
	idIdx, dateIdx, err := keyColumns(t)
	if err != nil {
		return nil, err
	}
	asleepIdx := t.ColumnIndex("TotalMinutesAsleep")
	inBedIdx := t.ColumnIndex("TotalTimeInBed")
	if asleepIdx < 0 {
		return nil, missingColumn(t, "TotalMinutesAsleep")
	}
	if inBedIdx < 0 {
		return nil, missingColumn(t, "TotalTimeInBed")
	}

	type sums struct{ asleep, inBed float64 }
	byKey := make(map[domain.DayKey]*sums)
	seen := make(map[string]bool, len(t.Rows))
	skipped := 0
	duplicates := 0

	for _, row := range t.Rows {
		sig := strings.Join(row, "\x1f")
		if seen[sig] {
			duplicates++
			continue
		}
		seen[sig] = true

		key, ok := rowKey(t, row, idIdx, dateIdx)
		if !ok {
			skipped++
			continue
		}
		asleep := parseFloatCell(t.Cell(row, asleepIdx))
		inBed := parseFloatCell(t.Cell(row, inBedIdx))
		if asleep == nil || inBed == nil {
			skipped++
			continue
		}
		s := byKey[key]
		if s == nil {
			s = &sums{}
			byKey[key] = s
		}
		s.asleep += *asleep
		s.inBed += *inBed
	}

	if duplicates > 0 {
		r.logger.Warn("dropped exact duplicate daily sleep rows",
			slog.String("table", t.Tag()),
			slog.Int("count", duplicates))
	}
	r.logSkipped(t, skipped)

	out := make([]domain.SleepDay, 0, len(byKey))
	for key, s := range byKey {
		out = append(out, domain.SleepDay{
			UserID:             key.UserID,
			Date:               key.Date,
			TotalMinutesAsleep: s.asleep,
			TotalTimeInBed:     s.inBed,
		})
	}
	sortSleep(out)
	return out, nil
}

// ReduceHeartRate averages second-level readings per (user, date).
func (r *Reducer) ReduceHeartRate(t *RawTable) ([]domain.HeartRateDay, error) {
	idIdx, dateIdx, err := keyColumns(t)
	if err != nil {
		return nil, err
	}
	valueIdx := t.ColumnIndex("Value")
	if valueIdx < 0 {
		return nil, missingColumn(t, "Value")
	}

	type agg struct {
		sum   float64
		count float64
	}
	byKey := make(map[domain.DayKey]*agg)
	skipped := 0

	for _, row := range t.Rows {
		key, ok := rowKey(t, row, idIdx, dateIdx)
		if !ok {
			skipped++
			continue
		}
		v := parseFloatCell(t.Cell(row, valueIdx))
		if v == nil {
			skipped++
			continue
		}
		a := byKey[key]
		if a == nil {
			a = &agg{}
			byKey[key] = a
		}
		a.sum += *v
		a.count++
	}

	r.logSkipped(t, skipped)

	out := make([]domain.HeartRateDay, 0, len(byKey))
	for key, a := range byKey {
		out = append(out, domain.HeartRateDay{
			UserID:       key.UserID,
			Date:         key.Date,
			AvgHeartRate: a.sum / a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

// ReduceWeight averages irregular weight measurements per (user, date).
// The manual-report flag, fat percentage, and log id columns carry no
// analytic value and are never read.
func (r *Reducer) ReduceWeight(t *RawTable) ([]domain.WeightDay, error) {
	idIdx, dateIdx, err := keyColumns(t)
	if err != nil {
		return nil, err
	}
	kgIdx := t.ColumnIndex("WeightKg")
	lbIdx := t.ColumnIndex("WeightPounds")
	bmiIdx := t.ColumnIndex("BMI")
	if kgIdx < 0 {
		return nil, missingColumn(t, "WeightKg")
	}

	type agg struct {
		kgSum, lbSum, bmiSum       float64
		kgCount, lbCount, bmiCount float64
	}
	byKey := make(map[domain.DayKey]*agg)
	skipped := 0

	for _, row := range t.Rows {
		key, ok := rowKey(t, row, idIdx, dateIdx)
		if !ok {
			skipped++
			continue
		}
		a := byKey[key]
		if a == nil {
			a = &agg{}
			byKey[key] = a
		}
		if v := parseFloatCell(t.Cell(row, kgIdx)); v != nil {
			a.kgSum += *v
			a.kgCount++
		}
		if v := parseFloatCell(t.Cell(row, lbIdx)); v != nil {
			a.lbSum += *v
			a.lbCount++
		}
		if v := parseFloatCell(t.Cell(row, bmiIdx)); v != nil {
			a.bmiSum += *v
			a.bmiCount++
		}
	}

	r.logSkipped(t, skipped)

	out := make([]domain.WeightDay, 0, len(byKey))
	for key, a := range byKey {
		day := domain.WeightDay{UserID: key.UserID, Date: key.Date}
		if a.kgCount > 0 {
			day.AvgWeightKg = domain.Float(a.kgSum / a.kgCount)
		}
		if a.lbCount > 0 {
			day.AvgWeightLb = domain.Float(a.lbSum / a.lbCount)
		}
		if a.bmiCount > 0 {
			day.AvgBMI = domain.Float(a.bmiSum / a.bmiCount)
		}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

func (r *Reducer) logSkipped(t *RawTable, skipped int) {
	if skipped > 0 {
		r.logger.Warn("skipped unkeyable rows during reduction",
			slog.String("table", t.Tag()),
			slog.Int("count", skipped))
	}
}

// keyColumns locates the Id and canonical Date columns of a table.
func keyColumns(t *RawTable) (idIdx, dateIdx int, err error) {
	idIdx = t.ColumnIndex("Id")
	if idIdx < 0 {
		return 0, 0, missingColumn(t, "Id")
	}
	dateIdx = t.ColumnIndex(CanonicalDateColumn)
	if dateIdx < 0 {
		return 0, 0, missingColumn(t, CanonicalDateColumn)
	}
	return idIdx, dateIdx, nil
}

// rowKey extracts the (user, date) key of a row. Rows with an unparseable
// user id or a null date cannot be keyed and are skipped by callers.
func rowKey(t *RawTable, row []string, idIdx, dateIdx int) (domain.DayKey, bool) {
	userID, err := strconv.ParseInt(t.Cell(row, idIdx), 10, 64)
	if err != nil {
		return domain.DayKey{}, false
	}
	date := t.Cell(row, dateIdx)
	if date == "" {
		return domain.DayKey{}, false
	}
	return domain.DayKey{UserID: userID, Date: date}, true
}

// parseFloatCell parses a numeric cell; empty or malformed cells are null.
func parseFloatCell(cell string) *float64 {
	if cell == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &v
}

func missingColumn(t *RawTable, name string) error {
	return apperrors.NewParsingError(
		fmt.Sprintf("table %s is missing expected column %q", t.Tag(), name), nil).
		WithContext("columns", t.Columns)
}

func sortSleep(days []domain.SleepDay) {
	sort.Slice(days, func(i, j int) bool {
		if days[i].UserID != days[j].UserID {
			return days[i].UserID < days[j].UserID
		}
		return days[i].Date < days[j].Date
	})
}
