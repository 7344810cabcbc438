package dataprocessing

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fitcli/internal/errors"
	"fitcli/pkg/contracts/domain"
)

func activityTable(w domain.Window, rows [][]string) *RawTable {
	return &RawTable{
		Kind:   domain.KindDailyActivity,
		Window: w,
		Columns: []string{
			"Id", "Date", "TotalSteps", "TotalDistance", "VeryActiveDistance",
			"VeryActiveMinutes", "Calories",
		},
		Rows: rows,
	}
}

func TestMerge_LeftJoinPreservesEveryActivityRow(t *testing.T) {
	w1 := domain.Window{Label: "w1"}
	w2 := domain.Window{Label: "w2"}

	t1 := activityTable(w1, [][]string{
		{"1", "2016-03-15", "5000", "3.2", "0.5", "12", "1900"},
		{"2", "2016-03-15", "7000", "4.8", "1.1", "25", "2300"},
	})
	t2 := activityTable(w2, [][]string{
		{"1", "2016-04-15", "6000", "3.9", "0.7", "15", "2000"},
	})
	set := TableSet{t1.Tag(): t1, t2.Tag(): t2}

	reduced := &Reduced{
		Sleep: []domain.SleepDay{
			{UserID: 1, Date: "2016-03-15", TotalMinutesAsleep: 300, TotalTimeInBed: 450},
		},
		Heart: []domain.HeartRateDay{
			{UserID: 1, Date: "2016-04-15", AvgHeartRate: 72.5},
		},
		Weight: []domain.WeightDay{
			{UserID: 2, Date: "2016-03-15", AvgWeightKg: domain.Float(70.2), AvgBMI: domain.Float(24.1)},
		},
	}

	rows, err := NewMerger(slog.Default()).Merge([]domain.Window{w1, w2}, set, reduced)
	require.NoError(t, err)

	// Merge completeness: every concatenated activity row survives.
	require.Len(t, rows, 3)

	byKey := make(map[domain.DayKey]domain.UnifiedRow, len(rows))
	for _, r := range rows {
		byKey[r.Key()] = r
	}

	r1 := byKey[domain.DayKey{UserID: 1, Date: "2016-03-15"}]
	require.NotNil(t, r1.TotalMinutesAsleep)
	assert.Equal(t, float64(300), *r1.TotalMinutesAsleep)
	assert.Nil(t, r1.AvgHeartRate, "no heart data for this day stays null")
	assert.Nil(t, r1.AvgWeightKg)

	r2 := byKey[domain.DayKey{UserID: 2, Date: "2016-03-15"}]
	require.NotNil(t, r2.AvgWeightKg)
	assert.Equal(t, 70.2, *r2.AvgWeightKg)
	assert.Nil(t, r2.TotalMinutesAsleep)

	r3 := byKey[domain.DayKey{UserID: 1, Date: "2016-04-15"}]
	require.NotNil(t, r3.AvgHeartRate)
	assert.Equal(t, 72.5, *r3.AvgHeartRate)
}

func TestMerge_MissingActivityTableIsFatal(t *testing.T) {
	w1 := domain.Window{Label: "w1"}
	w2 := domain.Window{Label: "w2"}

	t1 := activityTable(w1, [][]string{{"1", "2016-03-15", "5000", "3.2", "0.5", "12", "1900"}})
	set := TableSet{t1.Tag(): t1}

	_, err := NewMerger(slog.Default()).Merge([]domain.Window{w1, w2}, set, &Reduced{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIngest))
}

func TestMerge_MalformedCellsBecomeNull(t *testing.T) {
	w := domain.Window{Label: "w1"}
	table := activityTable(w, [][]string{
		{"1", "2016-03-15", "bogus", "3.2", "", "12", "1900"},
	})
	set := TableSet{table.Tag(): table}

	rows, err := NewMerger(slog.Default()).Merge([]domain.Window{w}, set, &Reduced{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Nil(t, rows[0].TotalSteps)
	assert.Nil(t, rows[0].VeryActiveDistance)
	require.NotNil(t, rows[0].Calories)
	assert.Equal(t, float64(1900), *rows[0].Calories)
}

func TestMerge_UnkeyableActivityRowsSkipped(t *testing.T) {
	w := domain.Window{Label: "w1"}
	table := activityTable(w, [][]string{
		{"1", "2016-03-15", "5000", "3.2", "0.5", "12", "1900"},
		{"oops", "2016-03-15", "5000", "3.2", "0.5", "12", "1900"},
		{"2", "", "5000", "3.2", "0.5", "12", "1900"},
	})
	set := TableSet{table.Tag(): table}

	rows, err := NewMerger(slog.Default()).Merge([]domain.Window{w}, set, &Reduced{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
