// Package report derives dashboard statistics from opportunity collections.
package report

import (
	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/filter"
)

// GroupCount is one bucket of a grouping
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Progress compares generated revenue to a target
type Progress struct {
	Generated float64 `json:"generated"`
	Target    float64 `json:"target"`
	// Ratio is generated/target, uncapped
	Ratio float64 `json:"ratio"`
	// Progress is Ratio capped at 1 for progress bars
	Progress float64 `json:"progress"`
}

// ConversionRate is the share of Registered opportunities as a percentage.
// An empty collection yields 0.
func ConversionRate(items []domain.Opportunity) float64 {
	if len(items) == 0 {
		return 0
	}
	converted := 0
	for _, opp := range items {
		if opp.Status == domain.StatusRegistered {
			converted++
		}
	}
	return float64(converted) / float64(len(items)) * 100
}

// GroupBy counts items per distinct value of field in first-seen order
func GroupBy(items []domain.Opportunity, field filter.Field) []GroupCount {
	return groupBy(items, func(opp *domain.Opportunity) string {
		return fieldKey(opp, field)
	})
}

func BySource(items []domain.Opportunity) []GroupCount {
	return GroupBy(items, filter.FieldSource)
}

func ByProduct(items []domain.Opportunity) []GroupCount {
	return GroupBy(items, filter.FieldProduct)
}

func ByBrand(items []domain.Opportunity) []GroupCount {
	return GroupBy(items, filter.FieldBrand)
}

// StatusBreakdown counts every enumerated status, including those with zero items
func StatusBreakdown(items []domain.Opportunity) []GroupCount {
	counts := make(map[domain.OpportunityStatus]int, len(domain.OpportunityStatuses))
	for _, opp := range items {
		counts[opp.Status]++
	}
	out := make([]GroupCount, len(domain.OpportunityStatuses))
	for i, s := range domain.OpportunityStatuses {
		out[i] = GroupCount{Key: string(s), Count: counts[s]}
	}
	return out
}

// GeneratedRevenue sums the price of Registered opportunities
func GeneratedRevenue(items []domain.Opportunity) float64 {
	var total float64
	for _, opp := range items {
		if opp.Status == domain.StatusRegistered {
			total += opp.Price
		}
	}
	return total
}

// RevenueProgress computes the raw and capped ratio of generated to target.
// A non-positive target yields 0 for both.
func RevenueProgress(generated, target float64) Progress {
	p := Progress{Generated: generated, Target: target}
	if target <= 0 {
		return p
	}
	p.Ratio = generated / target
	p.Progress = p.Ratio
	if p.Progress > 1 {
		p.Progress = 1
	}
	if p.Progress < 0 {
		p.Progress = 0
	}
	return p
}

func groupBy(items []domain.Opportunity, key func(*domain.Opportunity) string) []GroupCount {
	out := make([]GroupCount, 0)
	index := make(map[string]int)
	for i := range items {
		k := key(&items[i])
		if pos, ok := index[k]; ok {
			out[pos].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, GroupCount{Key: k, Count: 1})
	}
	return out
}

func fieldKey(opp *domain.Opportunity, field filter.Field) string {
	switch field {
	case filter.FieldStatus:
		return string(opp.Status)
	case filter.FieldProduct:
		return opp.Product
	case filter.FieldBrand:
		return opp.Brand
	case filter.FieldSource:
		return opp.Source
	case filter.FieldAssignedUser:
		return formatUser(opp.AssignedUser)
	}
	return ""
}
