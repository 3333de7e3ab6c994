package sim

import "fmt"

// Offense is an offense category as it appears in the administrative records.
type Offense string

const (
	AggravatedAssault Offense = "aggravated_assault"
	Robbery           Offense = "robbery"
	SexOffense        Offense = "sex_offense"
	SimpleAssault     Offense = "simple_assault"
	Property          Offense = "property"
	DUI               Offense = "dui"
	DrugsUse          Offense = "drugs_use"
	DrugsSell         Offense = "drugs_sell"
)

// Offenses lists every offense category in canonical column order.
var Offenses = []Offense{
	AggravatedAssault, Robbery, SexOffense, SimpleAssault, Property,
	DUI, DrugsUse, DrugsSell,
}

// Source names an external survey whose rates govern a set of offenses.
type Source string

const (
	// SourceNCVS is the victimization survey.
	SourceNCVS Source = "ncvs"
	// SourceNSDUH is the self-report survey.
	SourceNSDUH Source = "nsduh"
)

// Sources lists the governing sources in processing order.
var Sources = []Source{SourceNCVS, SourceNSDUH}

// offenseSources maps every offense to the single source whose rates govern it.
var offenseSources = map[Offense]Source{
	AggravatedAssault: SourceNCVS,
	Robbery:           SourceNCVS,
	SexOffense:        SourceNCVS,
	SimpleAssault:     SourceNCVS,
	Property:          SourceNCVS,
	DUI:               SourceNSDUH,
	DrugsUse:          SourceNSDUH,
	DrugsSell:         SourceNSDUH,
}

// RateColumn selects one of the rate values carried by a RateRow.
type RateColumn string

const (
	ColArrestRate       RateColumn = "arrest_rate"
	ColArrestRateSmooth RateColumn = "arrest_rate_smooth"
	ColLambda           RateColumn = "lambda"
	ColLambdaSmooth     RateColumn = "lambda_smooth"
)

// Governance describes which rate columns a source contributes to the estimator.
type Governance struct {
	Source       Source
	ArrestColumn RateColumn
	LambdaColumn RateColumn
}

var governance = map[Source]Governance{
	SourceNCVS:  {Source: SourceNCVS, ArrestColumn: ColArrestRateSmooth, LambdaColumn: ColLambda},
	SourceNSDUH: {Source: SourceNSDUH, ArrestColumn: ColArrestRateSmooth, LambdaColumn: ColLambdaSmooth},
}

// SourceOf returns the source governing o.
func SourceOf(o Offense) (Source, bool) {
	s, ok := offenseSources[o]
	return s, ok
}

// OffensesOf returns the offenses governed by s, in canonical order.
func OffensesOf(s Source) []Offense {
	var out []Offense
	for _, o := range Offenses {
		if offenseSources[o] == s {
			out = append(out, o)
		}
	}
	return out
}

// GovernanceOf returns the column selection for s.
func GovernanceOf(s Source) (Governance, error) {
	g, ok := governance[s]
	if !ok {
		return Governance{}, fmt.Errorf("unknown rate source %q", s)
	}
	return g, nil
}

// ParseOffense validates a raw offense name.
func ParseOffense(name string) (Offense, error) {
	o := Offense(name)
	if _, ok := offenseSources[o]; !ok {
		return "", fmt.Errorf("unknown offense category %q", name)
	}
	return o, nil
}
