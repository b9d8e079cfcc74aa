package models

import (
	"fmt"
	"strconv"
	"strings"
)

// User represents a row in the "users" table.
type User struct {
	ID         int64
	Age        int
	Gender     string
	Occupation string
	ZipCode    string
}

// Demographic is a user attribute usable as a filter key.
type Demographic string

const (
	DemographicAge        Demographic = "age"
	DemographicGender     Demographic = "gender"
	DemographicOccupation Demographic = "occupation"
)

// Demographics lists every valid Demographic in menu order.
var Demographics = []Demographic{DemographicAge, DemographicGender, DemographicOccupation}

// ParseDemographic accepts a field name in any case.
func ParseDemographic(s string) (Demographic, error) {
	d := Demographic(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown demographic %q (want age, gender or occupation)", s)
	}
	return d, nil
}

// Valid reports whether d is one of the known fields.
func (d Demographic) Valid() bool {
	switch d {
	case DemographicAge, DemographicGender, DemographicOccupation:
		return true
	}
	return false
}

// Column returns the users column for d. Only whitelisted names ever reach
// statement text.
func (d Demographic) Column() string {
	switch d {
	case DemographicAge:
		return "age"
	case DemographicGender:
		return "gender"
	case DemographicOccupation:
		return "occupation"
	}
	return ""
}

// Arg converts a raw filter value to the column's type.
func (d Demographic) Arg(value string) (any, error) {
	value = strings.TrimSpace(value)
	if d == DemographicAge {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("age must be a whole number, got %q", value)
		}
		return n, nil
	}
	return value, nil
}

func (d Demographic) String() string { return string(d) }
