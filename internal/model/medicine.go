package model

import (
	"math"
	"strings"
)

// Medicine table columns, after header normalization.
const (
	ColumnName                = "name"
	ColumnContains            = "contains"
	ColumnProductUses         = "productuses"
	ColumnSideEffect          = "sideeffect"
	ColumnHowToUse            = "howtouse"
	ColumnSafetyAdvice        = "safetyadvice"
	ColumnProductBenefits     = "productbenefits"
	ColumnHabitForming        = "habit_forming"
	ColumnChemicalClass       = "chemical_class"
	ColumnTherapeuticClass    = "therapeutic_class"
	ColumnActionClass         = "action_class"
	ColumnProductIntroduction = "productintroduction"
)

// MedicineRecord is one row of the medicine table. Name is the normalized
// lookup key.
type MedicineRecord struct {
	Name   string
	Fields map[string]string
}

// Field returns the trimmed value of column, or false when the cell is empty.
func (m MedicineRecord) Field(column string) (string, bool) {
	v := strings.TrimSpace(m.Fields[column])
	if v == "" || strings.EqualFold(v, "nan") {
		return "", false
	}
	return v, true
}

// AlternativeCandidate is one row of the alternatives catalog. Price is
// +Inf when the catalog has no usable price.
type AlternativeCandidate struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Reason      string  `json:"reason"`
}

// HasPrice reports whether Price is known.
func (a AlternativeCandidate) HasPrice() bool {
	return !math.IsInf(a.Price, 1)
}

// RankedAlternative is a catalog entry with its similarity to the query.
type RankedAlternative struct {
	AlternativeCandidate
	Score int `json:"score"`
}
