package filter

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
)

// DateLayout is the accepted format for dateFrom and dateTo
const DateLayout = "2006-01-02"

// queryParams maps request query parameters to filter fields
var queryParams = map[string]Field{
	"status":       FieldStatus,
	"product":      FieldProduct,
	"brand":        FieldBrand,
	"source":       FieldSource,
	"assignedUser": FieldAssignedUser,
}

// ParseSpec builds a Spec from query parameters:
// q, status, product, brand, source, assignedUser, dateFrom, dateTo.
func ParseSpec(values url.Values) (Spec, error) {
	spec := Spec{
		Query:  strings.TrimSpace(values.Get("q")),
		Fields: make(map[Field]string),
	}

	for param, field := range queryParams {
		v := strings.TrimSpace(values.Get(param))
		if v == "" {
			continue
		}
		if field == FieldAssignedUser && !strings.EqualFold(v, All) {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return Spec{}, domain.NewValidationError(param, "must be a user id or 'all'")
			}
		}
		spec.Fields[field] = v
	}

	from, err := parseDate(values, "dateFrom")
	if err != nil {
		return Spec{}, err
	}
	to, err := parseDate(values, "dateTo")
	if err != nil {
		return Spec{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return Spec{}, domain.NewValidationError("dateTo", "must not be before dateFrom")
	}
	spec.DateFrom = from
	spec.DateTo = to

	return spec, nil
}

func parseDate(values url.Values, param string) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return nil, domain.NewValidationError(param, "must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}
