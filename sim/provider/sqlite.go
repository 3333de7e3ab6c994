package provider

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/cj-pipeline/darkfigure/sim"
)

// Schema creates the tables read by SQLiteStore. Dates are ISO "YYYY-MM-DD"
// text; missing rates are NULL.
const Schema = `
CREATE TABLE IF NOT EXISTS people (
	uid    TEXT PRIMARY KEY,
	race   TEXT NOT NULL,
	gender TEXT NOT NULL,
	dob    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS arrests (
	uid     TEXT NOT NULL REFERENCES people(uid),
	year    INTEGER NOT NULL,
	offense TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS arrests_year ON arrests(year);
CREATE TABLE IF NOT EXISTS rates (
	source             TEXT NOT NULL,
	smoothing          TEXT NOT NULL,
	year               INTEGER NOT NULL,
	race               TEXT NOT NULL,
	age_cat            TEXT NOT NULL,
	gender             TEXT NOT NULL,
	offense            TEXT NOT NULL,
	arrest_rate        REAL,
	arrest_rate_smooth REAL,
	lambda             REAL,
	lambda_smooth      REAL
);
`

// SQLiteStore serves cohorts and rate tables from a SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	window    int
	smoothing string
}

// OpenSQLite opens the database at path and ensures the schema exists.
func OpenSQLite(path string, window int, smoothing string) (*SQLiteStore, error) {
	if window < 1 {
		return nil, fmt.Errorf("window must be at least 1, got %d", window)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema to %s: %w", path, err)
	}
	logrus.Infof("Opened sqlite store %s", path)
	return &SQLiteStore{db: db, window: window, smoothing: smoothing}, nil
}

// DB exposes the underlying handle for loading fixtures.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Cohort returns everyone arrested at least once in [year, year+window].
func (s *SQLiteStore) Cohort(year int) ([]sim.Person, error) {
	last := year + s.window
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT p.uid, p.race, p.gender, p.dob, a.offense, COUNT(*)
		FROM arrests a JOIN people p ON p.uid = a.uid
		WHERE a.year BETWEEN ? AND ?
		GROUP BY p.uid, a.offense
		ORDER BY p.uid, a.offense`, year, last)
	if err != nil {
		return nil, fmt.Errorf("querying cohort %d-%d: %w", year, last, err)
	}
	defer func() { _ = rows.Close() }()

	var out []sim.Person
	for rows.Next() {
		var (
			d       Demographics
			dob     string
			offense string
			count   int
		)
		if err := rows.Scan(&d.UID, &d.Race, &d.Gender, &dob, &offense, &count); err != nil {
			return nil, fmt.Errorf("scanning cohort row: %w", err)
		}
		o, err := sim.ParseOffense(offense)
		if err != nil {
			return nil, fmt.Errorf("person %s: %w", d.UID, err)
		}
		if n := len(out); n > 0 && out[n-1].UID == d.UID {
			out[n-1].Counts[o] = count
			continue
		}
		if d.DOB, err = time.Parse(sim.DateLayout, dob); err != nil {
			return nil, fmt.Errorf("person %s: dob: %w", d.UID, err)
		}
		out = append(out, newPerson(d, map[sim.Offense]int{o: count}, last))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cohort %d-%d: %w", year, last, err)
	}
	return out, nil
}

// RateProvider returns the rate table of src at the store's smoothing mode.
func (s *SQLiteStore) RateProvider(src sim.Source) sim.RateProvider {
	return &sqliteRates{store: s, source: src}
}

type sqliteRates struct {
	store  *SQLiteStore
	source sim.Source
}

func (r *sqliteRates) Rates(year int) ([]sim.RateRow, error) {
	rows, err := r.store.db.QueryContext(context.Background(), `
		SELECT race, age_cat, gender, offense, arrest_rate, arrest_rate_smooth, lambda, lambda_smooth
		FROM rates
		WHERE source = ? AND smoothing = ? AND year = ?
		ORDER BY race, age_cat, gender, offense`, string(r.source), r.store.smoothing, year)
	if err != nil {
		return nil, fmt.Errorf("querying %s rates for %d: %w", r.source, year, err)
	}
	defer func() { _ = rows.Close() }()

	var out []sim.RateRow
	for rows.Next() {
		var (
			rr                 sim.RateRow
			ageCat, offense    string
			arr, arrS, lam, lS sql.NullFloat64
		)
		if err := rows.Scan(&rr.Race, &ageCat, &rr.Gender, &offense, &arr, &arrS, &lam, &lS); err != nil {
			return nil, fmt.Errorf("scanning %s rate row: %w", r.source, err)
		}
		o, err := sim.ParseOffense(offense)
		if err != nil {
			return nil, fmt.Errorf("%s rates %d: %w", r.source, year, err)
		}
		rr.AgeCat = sim.AgeCategory(ageCat)
		rr.Offense = o
		rr.ArrestRate, rr.ArrestRateSmooth = nullToNaN(arr), nullToNaN(arrS)
		rr.Lambda, rr.LambdaSmooth = nullToNaN(lam), nullToNaN(lS)
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rates for %d: %w", r.source, year, err)
	}
	if len(out) == 0 {
		logrus.Warnf("no %s rates for %d", r.source, year)
	}
	return out, nil
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nanToNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Import writes people, arrests and rate rows into the store in one transaction.
func (s *SQLiteStore) Import(ctx context.Context, people []Demographics, arrests []Arrest, rates map[sim.Source][]YearRate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range people {
		if _, err := tx.ExecContext(ctx, `INSERT INTO people (uid, race, gender, dob) VALUES (?, ?, ?, ?)`,
			p.UID, p.Race, p.Gender, p.DOB.Format(sim.DateLayout)); err != nil {
			return fmt.Errorf("inserting person %s: %w", p.UID, err)
		}
	}
	for _, a := range arrests {
		if _, err := tx.ExecContext(ctx, `INSERT INTO arrests (uid, year, offense) VALUES (?, ?, ?)`,
			a.UID, a.Year, string(a.Offense)); err != nil {
			return fmt.Errorf("inserting arrest of %s: %w", a.UID, err)
		}
	}
	for _, src := range sim.Sources {
		for _, yr := range rates[src] {
			r := yr.Row
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rates (source, smoothing, year, race, age_cat, gender, offense,
					arrest_rate, arrest_rate_smooth, lambda, lambda_smooth)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				string(src), s.smoothing, yr.Year, r.Race, string(r.AgeCat), r.Gender, string(r.Offense),
				nanToNull(r.ArrestRate), nanToNull(r.ArrestRateSmooth), nanToNull(r.Lambda), nanToNull(r.LambdaSmooth),
			); err != nil {
				return fmt.Errorf("inserting %s rate row: %w", src, err)
			}
		}
	}
	return tx.Commit()
}
