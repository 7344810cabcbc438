package files

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fitcli/pkg/contracts/domain"
)

// allowList maps well-known table base names to their source kind.
// Everything here is loaded; the map is the single schema gate.
var allowList = map[string]domain.SourceKind{
	"dailyActivity_merged":     domain.KindDailyActivity,
	"sleepDay_merged":          domain.KindSleepDay,
	"heartrate_seconds_merged": domain.KindHeartRateSeconds,
	"weightLogInfo_merged":     domain.KindWeightLog,
	"minuteSleep_merged":       domain.KindMinuteSleep,
}

// denyList names derived exports that duplicate allowed sources at other
// granularities. They are rejected explicitly so a future rename shows up
// as "ignored" in the logs rather than silently joining the allow list.
var denyList = map[string]bool{
	"dailySteps_merged":            true,
	"dailyCalories_merged":         true,
	"dailyIntensities_merged":      true,
	"minuteIntensitiesWide_merged": true,
	"minuteStepsWide_merged":       true,
}

// Classification is the outcome of matching a file name against the
// allow and deny lists.
type Classification int

const (
	ClassAllowed Classification = iota
	ClassDenied
	ClassIgnored
)

// SourceFile is one discovered, allow-listed table file.
type SourceFile struct {
	Path   string
	Name   string
	Kind   domain.SourceKind
	Window domain.Window
}

// Discovery enumerates window folders and their table files.
type Discovery struct {
	rawDir string
	logger *slog.Logger
}

// NewDiscovery creates a discovery instance rooted at the raw data dir.
func NewDiscovery(rawDir string, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{rawDir: rawDir, logger: logger}
}

// Classify matches a file name against the allow and deny lists. Only
// .csv and .xlsx tables qualify; any other extension is ignored.
func Classify(fileName string) (domain.SourceKind, Classification) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != ".csv" && ext != ".xlsx" {
		return "", ClassIgnored
	}

	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if kind, ok := allowList[base]; ok {
		return kind, ClassAllowed
	}
	if denyList[base] {
		return "", ClassDenied
	}
	return "", ClassIgnored
}

// DiscoverWindows lists the window subfolders of the raw root, sorted by
// name so window labels order chronologically for the shipped dataset.
// An unreadable root is fatal; an empty root is not, the pipeline fails
// later when the mandatory activity table is missing.
func (d *Discovery) DiscoverWindows() ([]domain.Window, error) {
	entries, err := os.ReadDir(d.rawDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw data root %s: %w", d.rawDir, err)
	}

	var windows []domain.Window
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		windows = append(windows, domain.Window{
			Label: windowLabel(entry.Name()),
			Path:  filepath.Join(d.rawDir, entry.Name()),
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Label < windows[j].Label
	})

	if len(windows) == 0 {
		d.logger.Warn("no window folders found in raw data root",
			slog.String("raw_dir", d.rawDir))
	}

	return windows, nil
}

// ListSources walks one window folder recursively and returns its
// allow-listed table files. A missing folder is non-fatal: the listing
// degenerates to nothing and the caller proceeds with what exists.
func (d *Discovery) ListSources(window domain.Window) ([]SourceFile, error) {
	if _, err := os.Stat(window.Path); os.IsNotExist(err) {
		d.logger.Warn("window folder missing, proceeding without it",
			slog.String("window", window.Label),
			slog.String("path", window.Path))
		return nil, nil
	}

	var sources []SourceFile
	err := filepath.WalkDir(window.Path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		kind, class := Classify(entry.Name())
		switch class {
		case ClassAllowed:
			sources = append(sources, SourceFile{
				Path:   path,
				Name:   entry.Name(),
				Kind:   kind,
				Window: window,
			})
		case ClassDenied:
			d.logger.Debug("skipping deny-listed derived file",
				slog.String("file", entry.Name()),
				slog.String("window", window.Label))
		default:
			d.logger.Debug("ignoring unrecognized file",
				slog.String("file", entry.Name()),
				slog.String("window", window.Label))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk window folder %s: %w", window.Path, err)
	}

	// Stable order keeps the load log and any duplicate-name resolution
	// reproducible across runs.
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})

	return sources, nil
}

// windowLabel derives a table tag from a window folder name, e.g.
// "Fitabase Data 3.12.16-4.11.16" becomes "fitabase_data_3.12.16-4.11.16".
// The label only disambiguates loading; it never appears in output.
func windowLabel(folderName string) string {
	label := strings.ToLower(strings.TrimSpace(folderName))
	label = strings.ReplaceAll(label, " ", "_")
	return label
}
