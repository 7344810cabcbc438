package domain

// SourceKind identifies one of the well-known raw export table types.
type SourceKind string

const (
	KindDailyActivity    SourceKind = "daily_activity"
	KindSleepDay         SourceKind = "sleep_day"
	KindHeartRateSeconds SourceKind = "heartrate_seconds"
	KindWeightLog        SourceKind = "weight_log"
	KindMinuteSleep      SourceKind = "minute_sleep"
)

// DateColumn maps each source kind to the name of its date column in the
// raw export. Classification fails loudly when a table is missing its
// mapped column instead of guessing by position.
var DateColumn = map[SourceKind]string{
	KindDailyActivity:    "ActivityDate",
	KindSleepDay:         "SleepDay",
	KindHeartRateSeconds: "Time",
	KindWeightLog:        "Date",
	KindMinuteSleep:      "date",
}

// Window describes one raw-export time period, discovered at runtime as a
// subfolder of the raw data root.
type Window struct {
	Label string `json:"label"` // sanitized folder name, used to tag loaded tables
	Path  string `json:"path"`  // absolute or root-relative folder path
}

// DayKey is the composite key every reduced and merged table shares.
type DayKey struct {
	UserID int64  `json:"user_id"`
	Date   string `json:"date"` // canonical YYYY-MM-DD
}

// SleepDay is the per-(user, day) reduction of minute-level sleep records.
// A day spent in bed with zero asleep minutes is emitted with
// TotalMinutesAsleep = 0, never omitted.
type SleepDay struct {
	UserID             int64   `json:"user_id"`
	Date               string  `json:"date"`
	TotalMinutesAsleep float64 `json:"total_minutes_asleep"`
	TotalTimeInBed     float64 `json:"total_time_in_bed"`
}

// HeartRateDay is the per-(user, day) reduction of second-level readings.
type HeartRateDay struct {
	UserID       int64   `json:"user_id"`
	Date         string  `json:"date"`
	AvgHeartRate float64 `json:"avg_heart_rate"`
}

// WeightDay is the per-(user, day) reduction of irregular weight logs.
// Fields stay nil when the source held no parseable measurement.
type WeightDay struct {
	UserID      int64    `json:"user_id"`
	Date        string   `json:"date"`
	AvgWeightKg *float64 `json:"avg_weight_kg,omitempty"`
	AvgWeightLb *float64 `json:"avg_weight_lb,omitempty"`
	AvgBMI      *float64 `json:"avg_bmi,omitempty"`
}

// UnifiedRow is the final per-(user, day) analytic record. The activity
// export is the base relation: its key set decides which rows exist.
// Metric columns are nullable; nil means the value was never observed or
// was rejected during cleaning.
type UnifiedRow struct {
	UserID int64  `json:"user_id"`
	Date   string `json:"date"`

	// Daily activity metrics.
	TotalSteps               *float64 `json:"total_steps"`
	TotalDistance            *float64 `json:"total_distance"`
	TrackerDistance          *float64 `json:"tracker_distance"`
	LoggedActivitiesDistance *float64 `json:"logged_activities_distance"`
	VeryActiveDistance       *float64 `json:"very_active_distance"`
	ModeratelyActiveDistance *float64 `json:"moderately_active_distance"`
	LightActiveDistance      *float64 `json:"light_active_distance"`
	SedentaryActiveDistance  *float64 `json:"sedentary_active_distance,omitempty"`
	VeryActiveMinutes        *float64 `json:"very_active_minutes"`
	FairlyActiveMinutes      *float64 `json:"fairly_active_minutes"`
	LightlyActiveMinutes     *float64 `json:"lightly_active_minutes"`
	SedentaryMinutes         *float64 `json:"sedentary_minutes"`
	Calories                 *float64 `json:"calories"`

	// Joined sleep metrics.
	TotalMinutesAsleep *float64 `json:"total_minutes_asleep"`
	TotalTimeInBed     *float64 `json:"total_time_in_bed"`

	// Joined heart-rate and weight metrics.
	AvgHeartRate *float64 `json:"avg_heart_rate"`
	AvgWeightKg  *float64 `json:"avg_weight_kg"`
	AvgWeightLb  *float64 `json:"avg_weight_lb,omitempty"`
	AvgBMI       *float64 `json:"avg_bmi"`

	// Tracking flags, derived during cleaning from metric null-ness.
	HasSleepData     bool `json:"has_sleep_data"`
	HasWeightData    bool `json:"has_weight_data"`
	HasBMIData       bool `json:"has_bmi_data"`
	HasHeartRateData bool `json:"has_heart_rate_data"`

	// Derived ratios.
	SleepEfficiency *float64 `json:"sleep_efficiency"`
	VeryActiveRatio *float64 `json:"very_active_ratio"`
}

// Key returns the row's composite key.
func (r *UnifiedRow) Key() DayKey {
	return DayKey{UserID: r.UserID, Date: r.Date}
}

// EachMetric visits every nullable metric field together with its column
// name. Stages that operate column-wise (negative scrub, rounding) use it
// instead of repeating the field list.
func (r *UnifiedRow) EachMetric(visit func(name string, value **float64)) {
	visit("TotalSteps", &r.TotalSteps)
	visit("TotalDistance", &r.TotalDistance)
	visit("TrackerDistance", &r.TrackerDistance)
	visit("LoggedActivitiesDistance", &r.LoggedActivitiesDistance)
	visit("VeryActiveDistance", &r.VeryActiveDistance)
	visit("ModeratelyActiveDistance", &r.ModeratelyActiveDistance)
	visit("LightActiveDistance", &r.LightActiveDistance)
	visit("SedentaryActiveDistance", &r.SedentaryActiveDistance)
	visit("VeryActiveMinutes", &r.VeryActiveMinutes)
	visit("FairlyActiveMinutes", &r.FairlyActiveMinutes)
	visit("LightlyActiveMinutes", &r.LightlyActiveMinutes)
	visit("SedentaryMinutes", &r.SedentaryMinutes)
	visit("Calories", &r.Calories)
	visit("TotalMinutesAsleep", &r.TotalMinutesAsleep)
	visit("TotalTimeInBed", &r.TotalTimeInBed)
	visit("AvgHeartRate", &r.AvgHeartRate)
	visit("AvgWeightKg", &r.AvgWeightKg)
	visit("AvgWeightLb", &r.AvgWeightLb)
	visit("AvgBMI", &r.AvgBMI)
	visit("SleepEfficiency", &r.SleepEfficiency)
	visit("VeryActiveRatio", &r.VeryActiveRatio)
}

// ContinuousColumns lists the columns the rounding stage may touch.
// Identifier, count, and flag columns are excluded on purpose.
var ContinuousColumns = map[string]bool{
	"TotalDistance":            true,
	"TrackerDistance":          true,
	"LoggedActivitiesDistance": true,
	"VeryActiveDistance":       true,
	"ModeratelyActiveDistance": true,
	"LightActiveDistance":      true,
	"SedentaryActiveDistance":  true,
	"AvgHeartRate":             true,
	"AvgWeightKg":              true,
	"AvgWeightLb":              true,
	"AvgBMI":                   true,
	"SleepEfficiency":          true,
	"VeryActiveRatio":          true,
}

// Float returns a pointer to v. Convenience for building nullable metrics.
func Float(v float64) *float64 {
	return &v
}
