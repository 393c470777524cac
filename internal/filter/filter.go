// Package filter narrows, orders and pages opportunity collections.
// Every function is pure: inputs are never modified.
package filter

import (
	"strconv"
	"strings"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
)

// All is the field value that matches everything
const All = "all"

// Field is a filterable opportunity attribute
type Field string

const (
	FieldStatus       Field = "status"
	FieldProduct      Field = "product"
	FieldBrand        Field = "brand"
	FieldSource       Field = "source"
	FieldAssignedUser Field = "assigned_user"
)

// Fields lists every filterable field
var Fields = []Field{FieldStatus, FieldProduct, FieldBrand, FieldSource, FieldAssignedUser}

// Spec describes a multi-criteria query. Missing fields behave as All.
type Spec struct {
	Query    string
	Fields   map[Field]string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Value returns the selected value for f, or All when unset
func (s Spec) Value(f Field) string {
	if v, ok := s.Fields[f]; ok && v != "" {
		return v
	}
	return All
}

// Apply returns the items matching spec in their original relative order
func Apply(items []domain.Opportunity, spec Spec) []domain.Opportunity {
	m := newMatcher(spec)
	out := make([]domain.Opportunity, 0, len(items))
	for i := range items {
		if m.match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

type matcher struct {
	query  string
	fields map[Field]string
	from   *time.Time
	until  *time.Time // exclusive
}

func newMatcher(spec Spec) matcher {
	m := matcher{
		query:  strings.ToLower(spec.Query),
		fields: make(map[Field]string),
	}
	for _, f := range Fields {
		if v := spec.Value(f); !strings.EqualFold(v, All) {
			m.fields[f] = v
		}
	}
	if spec.DateFrom != nil {
		from := *spec.DateFrom
		m.from = &from
	}
	if spec.DateTo != nil {
		// end date is inclusive: shift the bound to the start of the next day
		until := spec.DateTo.AddDate(0, 0, 1)
		m.until = &until
	}
	return m
}

func (m matcher) match(opp *domain.Opportunity) bool {
	return m.matchText(opp) && m.matchFields(opp) && m.matchDates(opp)
}

func (m matcher) matchText(opp *domain.Opportunity) bool {
	if m.query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(opp.CustomerName), m.query) ||
		strings.Contains(strings.ToLower(opp.Domain), m.query) ||
		strings.Contains(strings.ToLower(opp.CustomerEmail), m.query)
}

func (m matcher) matchFields(opp *domain.Opportunity) bool {
	for f, want := range m.fields {
		if fieldValue(opp, f) != want {
			return false
		}
	}
	return true
}

func (m matcher) matchDates(opp *domain.Opportunity) bool {
	if m.from != nil && opp.DateCreated.Before(*m.from) {
		return false
	}
	if m.until != nil && !opp.DateCreated.Before(*m.until) {
		return false
	}
	return true
}

func fieldValue(opp *domain.Opportunity, f Field) string {
	switch f {
	case FieldStatus:
		return string(opp.Status)
	case FieldProduct:
		return opp.Product
	case FieldBrand:
		return opp.Brand
	case FieldSource:
		return opp.Source
	case FieldAssignedUser:
		return strconv.FormatInt(opp.AssignedUser, 10)
	}
	return ""
}
