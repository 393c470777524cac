package report

import (
	"sort"
	"strconv"

	"github.com/straye-as/lead-api/internal/domain"
)

// RecentLimit is the number of recently updated opportunities on a dashboard
const RecentLimit = 5

// AgentSummary is one sales agent's line on the admin dashboard
type AgentSummary struct {
	UserID         int64   `json:"userId"`
	Username       string  `json:"username"`
	Opportunities  int     `json:"opportunities"`
	Registered     int     `json:"registered"`
	ConversionRate float64 `json:"conversionRate"`
	Revenue        float64 `json:"revenue"`
}

// AdminDashboard summarizes every opportunity and user
type AdminDashboard struct {
	TotalOpportunities int                  `json:"totalOpportunities"`
	Unassigned         int                  `json:"unassigned"`
	TotalUsers         int                  `json:"totalUsers"`
	ActiveUsers        int                  `json:"activeUsers"`
	SalesAgents        int                  `json:"salesAgents"`
	ConversionRate     float64              `json:"conversionRate"`
	Revenue            Progress             `json:"revenue"`
	ByStatus           []GroupCount         `json:"byStatus"`
	BySource           []GroupCount         `json:"bySource"`
	ByProduct          []GroupCount         `json:"byProduct"`
	ByBrand            []GroupCount         `json:"byBrand"`
	Agents             []AgentSummary       `json:"agents"`
	RecentlyUpdated    []domain.Opportunity `json:"recentlyUpdated"`
}

// SalesDashboard summarizes the opportunities visible to one agent
type SalesDashboard struct {
	UserID             int64                `json:"userId"`
	Username           string               `json:"username"`
	TotalOpportunities int                  `json:"totalOpportunities"`
	ConversionRate     float64              `json:"conversionRate"`
	Revenue            Progress             `json:"revenue"`
	ByStatus           []GroupCount         `json:"byStatus"`
	BySource           []GroupCount         `json:"bySource"`
	ByProduct          []GroupCount         `json:"byProduct"`
	ExpiringSoon       int                  `json:"expiringSoon"`
	Flagged            int                  `json:"flagged"`
	RecentlyUpdated    []domain.Opportunity `json:"recentlyUpdated"`
}

// BuildAdminDashboard derives the admin summary from all opportunities and users
func BuildAdminDashboard(items []domain.Opportunity, users []domain.User, target float64) AdminDashboard {
	d := AdminDashboard{
		TotalOpportunities: len(items),
		TotalUsers:         len(users),
		ConversionRate:     ConversionRate(items),
		Revenue:            RevenueProgress(GeneratedRevenue(items), target),
		ByStatus:           StatusBreakdown(items),
		BySource:           BySource(items),
		ByProduct:          ByProduct(items),
		ByBrand:            ByBrand(items),
		Agents:             make([]AgentSummary, 0),
		RecentlyUpdated:    RecentlyUpdated(items, RecentLimit),
	}

	for _, opp := range items {
		if !opp.IsAssigned() {
			d.Unassigned++
		}
	}

	owned := make(map[int64][]domain.Opportunity)
	for _, opp := range items {
		if opp.IsAssigned() {
			owned[opp.AssignedUser] = append(owned[opp.AssignedUser], opp)
		}
	}

	for _, u := range users {
		if u.IsActive() {
			d.ActiveUsers++
		}
		if u.Role != domain.RoleSales {
			continue
		}
		d.SalesAgents++
		mine := owned[u.ID]
		summary := AgentSummary{
			UserID:         u.ID,
			Username:       u.Username,
			Opportunities:  len(mine),
			ConversionRate: ConversionRate(mine),
			Revenue:        GeneratedRevenue(mine),
		}
		for _, opp := range mine {
			if opp.Status == domain.StatusRegistered {
				summary.Registered++
			}
		}
		d.Agents = append(d.Agents, summary)
	}

	return d
}

// BuildSalesDashboard derives the summary for one agent from their visible opportunities
func BuildSalesDashboard(userID int64, username string, visible []domain.Opportunity, target float64) SalesDashboard {
	d := SalesDashboard{
		UserID:             userID,
		Username:           username,
		TotalOpportunities: len(visible),
		ConversionRate:     ConversionRate(visible),
		Revenue:            RevenueProgress(GeneratedRevenue(visible), target),
		ByStatus:           StatusBreakdown(visible),
		BySource:           BySource(visible),
		ByProduct:          ByProduct(visible),
		RecentlyUpdated:    RecentlyUpdated(visible, RecentLimit),
	}
	for _, opp := range visible {
		switch opp.Status {
		case domain.StatusExpiring:
			d.ExpiringSoon++
		case domain.StatusFlagged:
			d.Flagged++
		}
	}
	return d
}

// RecentlyUpdated returns up to limit items ordered by LastUpdate descending
func RecentlyUpdated(items []domain.Opportunity, limit int) []domain.Opportunity {
	out := make([]domain.Opportunity, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdate.After(out[j].LastUpdate)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func formatUser(id int64) string {
	if id == domain.Unassigned {
		return "unassigned"
	}
	return strconv.FormatInt(id, 10)
}
