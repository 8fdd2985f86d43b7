// Package infer derives a semantic field type from sampled customer record
// values. It has no dependencies beyond the domain types and never fails:
// a field with no usable sample is simply skipped by the caller.
package infer

import (
	"regexp"
	"time"

	"github.com/ignite/audience-sync/internal/domain"
)

// Result is the outcome of inference for one field.
type Result struct {
	Type    domain.FieldType
	IsArray bool
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// dateLayouts are tried in order when refining a string sample. RFC 3339
// first because that is how times round-trip through the JSONB store.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Infer picks the first usable sample (not null, not empty string) as the
// representative value and maps its runtime shape to a field type. Array
// representatives recurse on their first element for the element type.
// String representatives are refined: email before date, otherwise string.
// ok is false when no sample is usable; the field should then be skipped
// entirely, with no metadata written.
func Infer(samples []domain.Value) (Result, bool) {
	rep, ok := representative(samples)
	if !ok {
		return Result{}, false
	}

	if rep.Kind == domain.KindArray {
		if len(rep.Arr) == 0 {
			// An empty array tells us it is a list but not of what.
			return Result{Type: domain.FieldString, IsArray: true}, true
		}
		elem, ok := Infer(rep.Arr[:1])
		if !ok {
			return Result{Type: domain.FieldString, IsArray: true}, true
		}
		return Result{Type: elem.Type, IsArray: true}, true
	}

	return Result{Type: scalarType(rep)}, true
}

func representative(samples []domain.Value) (domain.Value, bool) {
	for _, s := range samples {
		if s.IsUsable() {
			return s, true
		}
	}
	return domain.Null, false
}

func scalarType(v domain.Value) domain.FieldType {
	switch v.Kind {
	case domain.KindNumber:
		return domain.FieldNumber
	case domain.KindBool:
		return domain.FieldBoolean
	case domain.KindTime:
		return domain.FieldDate
	case domain.KindString:
		return refineString(v.Str)
	default:
		return domain.FieldString
	}
}

// refineString upgrades a string sample to email or date when it parses as
// one. Email is checked first; "2023@example.com" is an address, not a year.
func refineString(s string) domain.FieldType {
	if emailRegex.MatchString(s) {
		return domain.FieldEmail
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return domain.FieldDate
		}
	}
	return domain.FieldString
}
