// Package catalog maps race keys to the tables and files that carry
// their data. The built-in entries cover the Barber double-header the
// tooling ships for; a YAML file can replace them for other events.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// DefaultWorkbook is the dataset used when no workbook is configured.
// The original sheets are distributed as tables of one SQLite file.
const DefaultWorkbook = "Toyota GR Hackathon Datasets.sqlite"

type Race struct {
	// Key is the short identifier used on the command line ("R1").
	Key string `yaml:"key"`
	// Name is the display name ("Race 1"). Lookup accepts both.
	Name string `yaml:"name"`

	LapEndTable  string `yaml:"lapEndTable"`
	LapTimeTable string `yaml:"lapTimeTable"`
	WeatherTable string `yaml:"weatherTable"`
	ResultsTable string `yaml:"resultsTable"`
	// SectionAnalysisTable is optional; not every race carries one.
	SectionAnalysisTable string `yaml:"sectionAnalysisTable,omitempty"`

	TelemetryCSV      string `yaml:"telemetryCsv"`
	TelemetryArtifact string `yaml:"telemetryArtifact"`
}

type Catalog struct {
	Races []Race `yaml:"races"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{Races: []Race{
		{
			Key:               "R1",
			Name:              "Race 1",
			LapEndTable:       "R1_barber_lap_end",
			LapTimeTable:      "R1_barber_lap_time",
			WeatherTable:      "26_Weather_Race 1_Anonymized",
			ResultsTable:      "05_Provisional Results by Class_Race 1_Anonymized",
			TelemetryCSV:      "R1_barber_telemetry_data.csv",
			TelemetryArtifact: "R1_barber_telemetry_aggregated.parquet",
		},
		{
			Key:                  "R2",
			Name:                 "Race 2",
			LapEndTable:          "R2_barber_lap_end",
			LapTimeTable:         "R2_barber_lap_time",
			WeatherTable:         "26_Weather_Race 2_Anonymized",
			ResultsTable:         "05_Provisional Results by Class_Race 2_Anonymized",
			SectionAnalysisTable: "23_AnalysisEnduranceWithSection",
			TelemetryCSV:         "R2_barber_telemetry_data.csv",
			TelemetryArtifact:    "R2_barber_telemetry_aggregated.parquet",
		},
	}}
}

// Load reads a catalog from a YAML file. An empty path yields the
// built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	if len(c.Races) == 0 {
		return nil, fmt.Errorf("catalog %s contains no races", path)
	}
	for i := range c.Races {
		if c.Races[i].Key == "" {
			return nil, fmt.Errorf("catalog %s: race %d has no key", path, i)
		}
	}
	return &c, nil
}

// Race looks up a race by key or display name, case-insensitively.
func (c *Catalog) Race(keyOrName string) (*Race, bool) {
	found, ok := lo.Find(c.Races, func(r Race) bool {
		return strings.EqualFold(r.Key, keyOrName) || strings.EqualFold(r.Name, keyOrName)
	})
	if !ok {
		return nil, false
	}
	return &found, true
}

// Keys returns the race keys in catalog order.
func (c *Catalog) Keys() []string {
	return lo.Map(c.Races, func(r Race, _ int) string { return r.Key })
}

// ResolvePath places a catalog file name below dataDir unless the name
// is already absolute or dataDir is empty.
func ResolvePath(dataDir, name string) string {
	if name == "" || dataDir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dataDir, name)
}
