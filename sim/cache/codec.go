package cache

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cj-pipeline/darkfigure/sim"
)

// identityColumns precede one count column per offense in canonical order.
var identityColumns = []string{"uid", "race", "gender", "dob", "age_cat"}

// Columns returns the header of a persisted table.
func Columns() []string {
	cols := make([]string, 0, len(identityColumns)+len(sim.Offenses))
	cols = append(cols, identityColumns...)
	for _, o := range sim.Offenses {
		cols = append(cols, string(o))
	}
	return cols
}

// WriteTable writes people as CSV with the Columns header.
func WriteTable(w io.Writer, people []sim.Person) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns()); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	row := make([]string, len(identityColumns)+len(sim.Offenses))
	for i, p := range people {
		row[0], row[1], row[2] = p.UID, p.Race, p.Gender
		row[3] = p.DOB.Format(sim.DateLayout)
		row[4] = string(p.AgeCat)
		for j, o := range sim.Offenses {
			row[len(identityColumns)+j] = strconv.Itoa(p.Count(o))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadTable parses a table written by WriteTable. The header must match
// Columns exactly.
func ReadTable(r io.Reader) ([]sim.Person, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	want := Columns()
	if len(header) != len(want) {
		return nil, fmt.Errorf("header has %d columns, want %d", len(header), len(want))
	}
	for i := range want {
		if header[i] != want[i] {
			return nil, fmt.Errorf("column %d is %q, want %q", i, header[i], want[i])
		}
	}

	var people []sim.Person
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		dob, err := time.Parse(sim.DateLayout, row[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: dob: %w", line, err)
		}
		p := sim.Person{
			UID:    row[0],
			Race:   row[1],
			Gender: row[2],
			DOB:    dob,
			AgeCat: sim.AgeCategory(row[4]),
			Counts: make(map[sim.Offense]int, len(sim.Offenses)),
		}
		for j, o := range sim.Offenses {
			n, err := strconv.Atoi(row[len(identityColumns)+j])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, o, err)
			}
			p.Counts[o] = n
		}
		people = append(people, p)
	}
	return people, nil
}
