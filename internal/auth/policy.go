package auth

import (
	"github.com/straye-as/lead-api/internal/domain"
)

// Operation is a mutation checked by the access policy
type Operation string

const (
	OpCreate        Operation = "create"
	OpUpdate        Operation = "update"
	OpReassign      Operation = "reassign"
	OpDelete        Operation = "delete"
	OpTransition    Operation = "transition"
	OpLogActivity   Operation = "log_activity"
	OpManageUsers   Operation = "manage_users"
	OpViewDashboard Operation = "view_dashboard"
)

// salesOperations are allowed for sales on opportunities assigned to them
var salesOperations = map[Operation]bool{
	OpUpdate:      true,
	OpTransition:  true,
	OpLogActivity: true,
}

// VisibleTo returns the opportunities session may see, preserving order.
// Admins see everything; sales see only opportunities assigned to them,
// so unassigned opportunities are admin-only.
func VisibleTo(session *Session, all []domain.Opportunity) []domain.Opportunity {
	if session.IsAdmin() {
		return all
	}
	out := make([]domain.Opportunity, 0)
	if !session.IsSales() {
		return out
	}
	for _, opp := range all {
		if opp.IsAssigned() && opp.AssignedUser == session.UserID {
			out = append(out, opp)
		}
	}
	return out
}

// CanView reports whether opp is in the visible set of session
func CanView(session *Session, opp domain.Opportunity) bool {
	if session.IsAdmin() {
		return true
	}
	return session.IsSales() && opp.IsAssigned() && opp.AssignedUser == session.UserID
}

// CanMutate reports whether session may perform op on opp.
// opp may be nil for operations that do not target an existing record.
func CanMutate(session *Session, opp *domain.Opportunity, op Operation) bool {
	if session.IsAdmin() {
		return true
	}
	if !session.IsSales() || !salesOperations[op] || opp == nil {
		return false
	}
	return CanView(session, *opp)
}

// Authorize returns a ForbiddenError when CanMutate denies the operation
func Authorize(session *Session, opp *domain.Opportunity, op Operation) error {
	if CanMutate(session, opp, op) {
		return nil
	}
	err := &domain.ForbiddenError{Operation: string(op)}
	if session != nil {
		err.UserID = session.UserID
	}
	if opp != nil {
		err.OpportunityID = opp.ID
	}
	return err
}

// RequireAdmin returns a ForbiddenError unless session is an admin
func RequireAdmin(session *Session, op Operation) error {
	if session.IsAdmin() {
		return nil
	}
	err := &domain.ForbiddenError{Operation: string(op)}
	if session != nil {
		err.UserID = session.UserID
	}
	return err
}
