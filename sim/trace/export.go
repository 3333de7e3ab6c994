package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// TraceHeader captures run metadata written next to the group records.
type TraceHeader struct {
	Version   int      `yaml:"trace_version"`
	RunID     string   `yaml:"run_id,omitempty"`
	CreatedAt string   `yaml:"created_at,omitempty"`
	CacheKey  string   `yaml:"cache_key"`
	StartYear int      `yaml:"start_year"`
	EndYear   int      `yaml:"end_year"`
	Window    int      `yaml:"window"`
	Seed      int64    `yaml:"seed"`
	Lambda    *float64 `yaml:"lambda,omitempty"`
	Omega     float64  `yaml:"omega"`
	Smoothing string   `yaml:"smoothing"`
}

// CSV column headers for group records.
var groupColumns = []string{
	"window_end", "source", "race", "age_cat", "gender", "offense",
	"observed", "pop_size", "arrest_rate", "rate", "total_crimes",
	"unobserved", "unobserved_per_person", "divisor", "samples", "assigned",
	"fallback", "clamped",
}

// Export writes the trace header (YAML) and group records (CSV) to separate files.
func Export(header *TraceHeader, records []GroupRecord, headerPath, dataPath string) error {
	headerData, err := yaml.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling trace header: %w", err)
	}
	if err := os.WriteFile(headerPath, headerData, 0644); err != nil {
		return fmt.Errorf("writing trace header: %w", err)
	}

	file, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("creating trace data file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(groupColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, r := range records {
		row := []string{
			strconv.Itoa(r.WindowEnd),
			r.Source,
			r.Race,
			r.AgeCat,
			r.Gender,
			r.Offense,
			strconv.Itoa(r.Observed),
			strconv.Itoa(r.PopSize),
			formatFloat(r.ArrestRate),
			formatFloat(r.Rate),
			strconv.Itoa(r.TotalCrimes),
			strconv.Itoa(r.Unobserved),
			formatFloat(r.UnobservedPerPerson),
			formatFloat(r.Divisor),
			strconv.Itoa(r.Samples),
			strconv.Itoa(r.Assigned),
			strconv.FormatBool(r.Fallback),
			strconv.FormatBool(r.Clamped),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing trace data: %w", err)
	}
	return file.Close()
}

// formatFloat writes NaN as an empty cell.
func formatFloat(v float64) string {
	if v != v {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
