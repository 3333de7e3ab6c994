// Package testutil provides shared fixtures for the provider, cache and
// engine tests: a small administrative record set, its rate tables, and
// writers that materialize them as CSV files or a SQLite database.
package testutil

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/cj-pipeline/darkfigure/sim"
	"github.com/cj-pipeline/darkfigure/sim/provider"
)

// Fixture years: the default params roll windows ending 2003 and 2004.
const (
	StartYear = 2000
	EndYear   = 2004
	Window    = 3
	Seed      = 7
)

// Params returns the parameter tuple matching the fixture.
func Params() sim.Params {
	return sim.Params{
		StartYear: StartYear,
		EndYear:   EndYear,
		Window:    Window,
		Seed:      Seed,
		Omega:     1,
		Smoothing: sim.DefaultSmoothing,
	}
}

func date(s string) time.Time {
	d, err := time.Parse(sim.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// People returns the fixture population. p3 is underage at the fixture end
// year; p4 has no arrest inside the fixture years.
func People() []provider.Demographics {
	return []provider.Demographics{
		{UID: "p1", Race: "Black", Gender: "Male", DOB: date("1965-06-15")},
		{UID: "p2", Race: "White", Gender: "Female", DOB: date("1970-01-01")},
		{UID: "p3", Race: "Black", Gender: "Female", DOB: date("1990-05-05")},
		{UID: "p4", Race: "White", Gender: "Male", DOB: date("1975-07-01")},
	}
}

// Arrests returns the fixture arrest records.
func Arrests() []provider.Arrest {
	return []provider.Arrest{
		{UID: "p1", Year: 2000, Offense: sim.Robbery},
		{UID: "p1", Year: 2001, Offense: sim.Robbery},
		{UID: "p1", Year: 2002, Offense: sim.DUI},
		{UID: "p1", Year: 2004, Offense: sim.AggravatedAssault},
		{UID: "p2", Year: 2001, Offense: sim.DrugsUse},
		{UID: "p2", Year: 2003, Offense: sim.Property},
		{UID: "p3", Year: 2002, Offense: sim.SimpleAssault},
		{UID: "p4", Year: 1995, Offense: sim.Property},
	}
}

// RateRows returns the per-year rate rows of each source for every fixture year.
func RateRows() map[sim.Source][]provider.YearRate {
	out := make(map[sim.Source][]provider.YearRate)
	for year := StartYear; year <= EndYear; year++ {
		out[sim.SourceNCVS] = append(out[sim.SourceNCVS],
			yearRate(year, "Black", sim.AgeOver29, "Male", sim.Robbery, 0.5, 1),
			yearRate(year, "White", sim.AgeOver29, "Female", sim.Property, 0.25, 1),
		)
		out[sim.SourceNSDUH] = append(out[sim.SourceNSDUH],
			yearRate(year, "Black", sim.AgeOver29, "Male", sim.DUI, 0.1, 1),
			yearRate(year, "White", sim.AgeOver29, "Female", sim.DrugsUse, 0.2, 1),
		)
	}
	return out
}

func yearRate(year int, race string, age sim.AgeCategory, gender string, o sim.Offense, arrest, lambda float64) provider.YearRate {
	return provider.YearRate{Year: year, Row: sim.RateRow{
		Race: race, AgeCat: age, Gender: gender, Offense: o,
		ArrestRate: arrest, ArrestRateSmooth: arrest,
		Lambda: lambda, LambdaSmooth: lambda,
	}}
}

// Providers returns in-memory providers over the fixture.
func Providers(t *testing.T) sim.Providers {
	t.Helper()
	records, err := provider.NewRecords(Window, People(), Arrests())
	if err != nil {
		t.Fatalf("building records: %v", err)
	}
	rates := RateRows()
	p := sim.Providers{Cohort: records, Rates: make(map[sim.Source]sim.RateProvider)}
	for _, src := range sim.Sources {
		p.Rates[src] = provider.NewRateTable(src, rates[src])
	}
	return p
}

// WriteCSV materializes the fixture as a CSV data directory under dir.
func WriteCSV(t *testing.T, dir string) {
	t.Helper()
	people := [][]string{{"uid", "race", "gender", "dob"}}
	for _, p := range People() {
		people = append(people, []string{p.UID, p.Race, p.Gender, p.DOB.Format(sim.DateLayout)})
	}
	writeCSV(t, filepath.Join(dir, provider.PeopleFile), people)

	arrests := [][]string{{"uid", "year", "offense"}}
	for _, a := range Arrests() {
		arrests = append(arrests, []string{a.UID, strconv.Itoa(a.Year), string(a.Offense)})
	}
	writeCSV(t, filepath.Join(dir, provider.ArrestsFile), arrests)

	rates := RateRows()
	for _, src := range sim.Sources {
		rows := [][]string{{"year", "race", "age_cat", "gender", "offense",
			"arrest_rate", "arrest_rate_smooth", "lambda", "lambda_smooth"}}
		for _, yr := range rates[src] {
			r := yr.Row
			rows = append(rows, []string{
				strconv.Itoa(yr.Year), r.Race, string(r.AgeCat), r.Gender, string(r.Offense),
				formatFloat(r.ArrestRate), formatFloat(r.ArrestRateSmooth),
				formatFloat(r.Lambda), formatFloat(r.LambdaSmooth),
			})
		}
		writeCSV(t, filepath.Join(dir, provider.RatesFile(src, sim.DefaultSmoothing)), rows)
	}
}

// WriteSQLite materializes the fixture as a SQLite database at path.
func WriteSQLite(t *testing.T, path string) {
	t.Helper()
	store, err := provider.OpenSQLite(path, Window, sim.DefaultSmoothing)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Import(context.Background(), People(), Arrests(), RateRows()); err != nil {
		t.Fatalf("importing fixture: %v", err)
	}
}

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing %s: %v", path, err)
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
