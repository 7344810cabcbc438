package operations

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"fitcli/internal/config"
	"fitcli/internal/exporter"
)

func writeRawFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// seedRawExports lays out two window folders: the first carries
// minute-level sleep, heart rate, and weight next to the activity
// export, the second only day-level sleep.
func seedRawExports(t *testing.T, rawDir string) {
	t.Helper()

	first := filepath.Join(rawDir, "march_april")
	writeRawFile(t, first, "dailyActivity_merged.csv",
		"Id,ActivityDate,TotalSteps,TotalDistance,TrackerDistance,LoggedActivitiesDistance,VeryActiveDistance,ModeratelyActiveDistance,LightActiveDistance,SedentaryActiveDistance,VeryActiveMinutes,FairlyActiveMinutes,LightlyActiveMinutes,SedentaryMinutes,Calories\n"+
			"1503960366,4/12/2016,13162,8.5,8.5,0,1.88,0.55,6.06,0,25,13,328,728,1985\n"+
			"1503960366,4/13/2016,10735,6.97,6.97,0,1.57,0.69,4.71,0,21,19,217,776,1797\n")
	writeRawFile(t, first, "minuteSleep_merged.csv",
		"Id,date,value,logId\n"+
			"1503960366,4/12/2016 12:30:00 AM,1,11380564589\n"+
			"1503960366,4/12/2016 12:31:00 AM,1,11380564589\n"+
			"1503960366,4/12/2016 12:32:00 AM,2,11380564589\n")
	writeRawFile(t, first, "heartrate_seconds_merged.csv",
		"Id,Time,Value\n"+
			"1503960366,4/12/2016 7:21:00 AM,60\n"+
			"1503960366,4/12/2016 7:21:05 AM,80\n")
	writeRawFile(t, first, "weightLogInfo_merged.csv",
		"Id,Date,WeightKg,WeightPounds,Fat,BMI,IsManualReport,LogId\n"+
			"1503960366,4/12/2016 11:59:59 PM,62.5,137.8,,24.39,True,1462233599000\n")
	// Derivable from dailyActivity; must be ignored, not loaded.
	writeRawFile(t, first, "dailySteps_merged.csv",
		"Id,ActivityDay,StepTotal\n1503960366,4/12/2016,13162\n")

	second := filepath.Join(rawDir, "april_may")
	writeRawFile(t, second, "dailyActivity_merged.csv",
		"Id,ActivityDate,TotalSteps,TotalDistance,TrackerDistance,LoggedActivitiesDistance,VeryActiveDistance,ModeratelyActiveDistance,LightActiveDistance,SedentaryActiveDistance,VeryActiveMinutes,FairlyActiveMinutes,LightlyActiveMinutes,SedentaryMinutes,Calories\n"+
			"1503960366,5/10/2016,12000,7.1,7.1,0,1.6,0.6,4.9,0,22,15,250,740,1900\n")
	writeRawFile(t, second, "sleepDay_merged.csv",
		"Id,SleepDay,TotalSleepRecords,TotalMinutesAsleep,TotalTimeInBed\n"+
			"1503960366,5/10/2016 12:00:00 AM,1,320,360\n")
}

func readOutputCSV(t *testing.T, path string) map[string]map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	header := records[0]
	rows := make(map[string]map[string]string, len(records)-1)
	for _, record := range records[1:] {
		byName := make(map[string]string, len(header))
		for i, col := range header {
			byName[col] = record[i]
		}
		rows[byName["Id"]+"|"+byName["Date"]] = byName
	}
	return rows
}

func TestPipeline_EndToEnd(t *testing.T) {
	workDir := t.TempDir()
	cfg := config.Default()
	cfg.Data.RawDir = filepath.Join(workDir, "raw")
	cfg.Data.ProcessedDir = filepath.Join(workDir, "processed")
	seedRawExports(t, cfg.Data.RawDir)

	m := NewManager(cfg, slog.Default(), noop.NewTracerProvider().Tracer("test"), DefaultSteps())
	state, err := m.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, state.Windows, 2)
	assert.Equal(t, "april_may", state.Windows[0].Label, "windows sort lexically")
	assert.Equal(t, 3, len(state.Unified), "one row per activity day across both windows")

	rows := readOutputCSV(t, cfg.Data.OutputPath())
	require.Len(t, rows, 3)

	day1 := rows["1503960366|2016-04-12"]
	require.NotNil(t, day1)
	assert.Equal(t, "13162", day1["TotalSteps"])
	assert.Equal(t, "2", day1["TotalMinutesAsleep"], "minute-level rows at stage 1 count as asleep")
	assert.Equal(t, "3", day1["TotalTimeInBed"])
	assert.Equal(t, "70.00", day1["AvgHeartRate"])
	assert.Equal(t, "62.50", day1["AvgWeightKg"])
	assert.Equal(t, "true", day1["HasSleepData"])
	assert.Equal(t, "true", day1["HasHeartRateData"])

	day2 := rows["1503960366|2016-04-13"]
	require.NotNil(t, day2)
	assert.Equal(t, "false", day2["HasSleepData"])
	assert.Equal(t, "0", day2["TotalMinutesAsleep"], "unobserved sleep fills to zero")
	assert.Equal(t, "62.50", day2["AvgWeightKg"], "weight imputed from the user's own mean")
	assert.Equal(t, "70.00", day2["AvgHeartRate"], "heart rate imputed from the user's own mean")

	day3 := rows["1503960366|2016-05-10"]
	require.NotNil(t, day3)
	assert.Equal(t, "320", day3["TotalMinutesAsleep"], "day-level sleep export backfills windows without minute data")
	assert.Equal(t, "0.89", day3["SleepEfficiency"])

	auditData, err := os.ReadFile(cfg.Data.AuditPath())
	require.NoError(t, err)
	var report exporter.RunReport
	require.NoError(t, json.Unmarshal(auditData, &report))
	assert.Equal(t, state.RunID, report.RunID)
	assert.Equal(t, 3, report.RowsMerged)
	assert.Equal(t, 3, report.RowsCleaned)
	assert.Len(t, report.Stages, 8)
}

func TestPipeline_MissingActivityTableAborts(t *testing.T) {
	workDir := t.TempDir()
	cfg := config.Default()
	cfg.Data.RawDir = filepath.Join(workDir, "raw")
	cfg.Data.ProcessedDir = filepath.Join(workDir, "processed")

	// A window with sleep but no activity export cannot define its row set.
	writeRawFile(t, filepath.Join(cfg.Data.RawDir, "march_april"), "sleepDay_merged.csv",
		"Id,SleepDay,TotalSleepRecords,TotalMinutesAsleep,TotalTimeInBed\n"+
			"1503960366,4/12/2016 12:00:00 AM,1,320,360\n")

	m := NewManager(cfg, slog.Default(), noop.NewTracerProvider().Tracer("test"), DefaultSteps())
	_, err := m.Run(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(cfg.Data.OutputPath())
	assert.True(t, os.IsNotExist(statErr), "a failed run writes no output file")
}
