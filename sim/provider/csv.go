package provider

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cj-pipeline/darkfigure/sim"
)

// File names of the CSV backend, relative to its data directory.
const (
	PeopleFile  = "people.csv"
	ArrestsFile = "arrests.csv"
	RatesDir    = "rates"
)

// RatesFile returns the rate file of src for a smoothing mode, e.g. "rates/ncvs_lr_pr.csv".
func RatesFile(src sim.Source, smoothing string) string {
	return filepath.Join(RatesDir, fmt.Sprintf("%s_%s.csv", src, smoothing))
}

// table is a header-indexed CSV file.
type table struct {
	path  string
	index map[string]int
	rows  [][]string
}

func readTable(path string, required ...string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header of %s: %w", path, err)
	}
	t := &table{path: path, index: make(map[string]int, len(header))}
	for i, col := range header {
		t.index[strings.TrimSpace(col)] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row of %s: %w", path, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *table) get(row []string, col string) string {
	return strings.TrimSpace(row[t.index[col]])
}

func (t *table) intCell(row []string, line int, col string) (int, error) {
	v, err := strconv.Atoi(t.get(row, col))
	if err != nil {
		return 0, fmt.Errorf("%s:%d: column %s: %w", t.path, line, col, err)
	}
	return v, nil
}

// floatCell parses an optional number; an empty cell (or "NaN") is NaN.
func (t *table) floatCell(row []string, line int, col string) (float64, error) {
	raw := t.get(row, col)
	if raw == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s:%d: column %s: %w", t.path, line, col, err)
	}
	return v, nil
}

// LoadPeopleCSV reads people.csv (uid, race, gender, dob).
func LoadPeopleCSV(path string) ([]Demographics, error) {
	t, err := readTable(path, "uid", "race", "gender", "dob")
	if err != nil {
		return nil, err
	}
	people := make([]Demographics, 0, len(t.rows))
	for i, row := range t.rows {
		dob, err := time.Parse(sim.DateLayout, t.get(row, "dob"))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: column dob: %w", path, i+2, err)
		}
		people = append(people, Demographics{
			UID:    t.get(row, "uid"),
			Race:   t.get(row, "race"),
			Gender: t.get(row, "gender"),
			DOB:    dob,
		})
	}
	return people, nil
}

// LoadArrestsCSV reads arrests.csv (uid, year, offense).
func LoadArrestsCSV(path string) ([]Arrest, error) {
	t, err := readTable(path, "uid", "year", "offense")
	if err != nil {
		return nil, err
	}
	arrests := make([]Arrest, 0, len(t.rows))
	for i, row := range t.rows {
		year, err := t.intCell(row, i+2, "year")
		if err != nil {
			return nil, err
		}
		offense, err := sim.ParseOffense(t.get(row, "offense"))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, i+2, err)
		}
		arrests = append(arrests, Arrest{UID: t.get(row, "uid"), Year: year, Offense: offense})
	}
	return arrests, nil
}

// rateColumns are the columns of a rate file.
var rateColumns = []string{
	"year", "race", "age_cat", "gender", "offense",
	string(sim.ColArrestRate), string(sim.ColArrestRateSmooth), string(sim.ColLambda), string(sim.ColLambdaSmooth),
}

// LoadRatesCSV reads a rate file. Rows of offenses governed by another source are rejected.
func LoadRatesCSV(path string, src sim.Source) ([]YearRate, error) {
	t, err := readTable(path, rateColumns...)
	if err != nil {
		return nil, err
	}
	out := make([]YearRate, 0, len(t.rows))
	for i, row := range t.rows {
		line := i + 2
		year, err := t.intCell(row, line, "year")
		if err != nil {
			return nil, err
		}
		offense, err := sim.ParseOffense(t.get(row, "offense"))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if gov, _ := sim.SourceOf(offense); gov != src {
			return nil, fmt.Errorf("%s:%d: offense %s is governed by %s, not %s", path, line, offense, gov, src)
		}
		rr := sim.RateRow{
			Race:    t.get(row, "race"),
			AgeCat:  sim.AgeCategory(t.get(row, "age_cat")),
			Gender:  t.get(row, "gender"),
			Offense: offense,
		}
		for col, dst := range map[sim.RateColumn]*float64{
			sim.ColArrestRate:       &rr.ArrestRate,
			sim.ColArrestRateSmooth: &rr.ArrestRateSmooth,
			sim.ColLambda:           &rr.Lambda,
			sim.ColLambdaSmooth:     &rr.LambdaSmooth,
		} {
			if *dst, err = t.floatCell(row, line, string(col)); err != nil {
				return nil, err
			}
		}
		out = append(out, YearRate{Year: year, Row: rr})
	}
	return out, nil
}

// OpenCSV loads the CSV backend rooted at dir.
func OpenCSV(dir string, window int, smoothing string) (sim.Providers, error) {
	people, err := LoadPeopleCSV(filepath.Join(dir, PeopleFile))
	if err != nil {
		return sim.Providers{}, err
	}
	arrests, err := LoadArrestsCSV(filepath.Join(dir, ArrestsFile))
	if err != nil {
		return sim.Providers{}, err
	}
	records, err := NewRecords(window, people, arrests)
	if err != nil {
		return sim.Providers{}, fmt.Errorf("indexing %s: %w", dir, err)
	}
	logrus.Infof("Loaded %d people and %d arrests from %s", len(people), len(arrests), dir)

	providers := sim.Providers{Cohort: records, Rates: make(map[sim.Source]sim.RateProvider, len(sim.Sources))}
	for _, src := range sim.Sources {
		path := filepath.Join(dir, RatesFile(src, smoothing))
		rows, err := LoadRatesCSV(path, src)
		if err != nil {
			return sim.Providers{}, err
		}
		providers.Rates[src] = NewRateTable(src, rows)
	}
	return providers, nil
}
