package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/straye-as/lead-api/internal/domain"
)

// SortKey names a sortable opportunity attribute
type SortKey string

const (
	SortNone         SortKey = ""
	SortDateCreated  SortKey = "date_created"
	SortLastUpdate   SortKey = "last_update"
	SortPrice        SortKey = "price"
	SortClicks       SortKey = "clicks"
	SortCustomerName SortKey = "customer_name"
)

// ParseSortKey validates a sort key from user input
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNone, SortDateCreated, SortLastUpdate, SortPrice, SortClicks, SortCustomerName:
		return k, nil
	}
	return SortNone, domain.NewValidationError("sortBy", fmt.Sprintf("unsupported sort key %q", s))
}

// Sort returns a copy of items stably ordered by key. SortNone keeps input order.
func Sort(items []domain.Opportunity, key SortKey, desc bool) []domain.Opportunity {
	out := make([]domain.Opportunity, len(items))
	copy(out, items)
	if key == SortNone {
		return out
	}
	less := lessFunc(key)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(&out[j], &out[i])
		}
		return less(&out[i], &out[j])
	})
	return out
}

func lessFunc(key SortKey) func(a, b *domain.Opportunity) bool {
	switch key {
	case SortDateCreated:
		return func(a, b *domain.Opportunity) bool { return a.DateCreated.Before(b.DateCreated) }
	case SortLastUpdate:
		return func(a, b *domain.Opportunity) bool { return a.LastUpdate.Before(b.LastUpdate) }
	case SortPrice:
		return func(a, b *domain.Opportunity) bool { return a.Price < b.Price }
	case SortClicks:
		return func(a, b *domain.Opportunity) bool { return a.Clicks < b.Clicks }
	case SortCustomerName:
		return func(a, b *domain.Opportunity) bool {
			return strings.ToLower(a.CustomerName) < strings.ToLower(b.CustomerName)
		}
	}
	return func(a, b *domain.Opportunity) bool { return false }
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Page is one slice of a larger result
type Page struct {
	Items      []domain.Opportunity
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Paginate clamps page and size to sane bounds and returns the requested slice
func Paginate(items []domain.Opportunity, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	pageItems := make([]domain.Opportunity, end-start)
	copy(pageItems, items[start:end])

	return Page{
		Items:      pageItems,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
