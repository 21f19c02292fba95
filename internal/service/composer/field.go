package composer

import (
	"strings"

	"github.com/jwalitptl/medbot/internal/model"
)

// Field is the part of a medicine record a question asks about.
type Field int

const (
	FieldNone Field = iota
	FieldUsage
	FieldSideEffects
	FieldBenefits
	FieldSafety
	FieldHabitForming
	FieldChemicalClass
	FieldTherapeuticClass
	FieldActionClass
	FieldComposition
	FieldUses
	FieldIntroduction
)

type fieldRule struct {
	field    Field
	column   string
	keywords []string
}

// Checked in order; the first rule with a matching keyword wins.
var fieldRules = []fieldRule{
	{FieldUsage, model.ColumnHowToUse, []string{"how to use", "how do i take", "usage"}},
	{FieldSideEffects, model.ColumnSideEffect, []string{"side effect", "adverse"}},
	{FieldBenefits, model.ColumnProductBenefits, []string{"benefit"}},
	{FieldSafety, model.ColumnSafetyAdvice, []string{"safety"}},
	{FieldHabitForming, model.ColumnHabitForming, []string{"habit", "addictive"}},
	{FieldChemicalClass, model.ColumnChemicalClass, []string{"chemical"}},
	{FieldTherapeuticClass, model.ColumnTherapeuticClass, []string{"therapeutic"}},
	{FieldActionClass, model.ColumnActionClass, []string{"action"}},
	{FieldComposition, model.ColumnContains, []string{"composition", "contains", "contain"}},
	{FieldUses, model.ColumnProductUses, []string{"uses", "used for"}},
	{FieldIntroduction, model.ColumnProductIntroduction, []string{"introduction", "product info"}},
}

// DetectField returns FieldNone when the query names no field.
func DetectField(query string) Field {
	q := strings.ToLower(query)
	for _, r := range fieldRules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r.field
			}
		}
	}
	return FieldNone
}

// Column is the medicine table column holding f, or "" for FieldNone.
func (f Field) Column() string {
	for _, r := range fieldRules {
		if r.field == f {
			return r.column
		}
	}
	return ""
}

// FieldKeywords lists every keyword DetectField looks for.
func FieldKeywords() []string {
	var kws []string
	for _, r := range fieldRules {
		kws = append(kws, r.keywords...)
	}
	return kws
}
