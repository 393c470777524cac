// Package workflow governs opportunity status values and transition side effects.
//
// Any enumerated status may follow any other, including backward moves and
// moves out of Expired. Every successful transition appends a note activity.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/straye-as/lead-api/internal/domain"
	"github.com/straye-as/lead-api/internal/store"
	"go.uber.org/zap"
)

// ParseStatus returns the enumerated status matching s exactly
func ParseStatus(s string) (domain.OpportunityStatus, error) {
	status := domain.OpportunityStatus(strings.TrimSpace(s))
	if !status.IsValid() {
		return "", &domain.InvalidStatusError{Status: s}
	}
	return status, nil
}

// TransitionNote is the text of the activity recorded for a transition
func TransitionNote(status domain.OpportunityStatus) string {
	return fmt.Sprintf("Status changed to %s", status)
}

// Result is the outcome of a transition
type Result struct {
	Opportunity domain.Opportunity
	Activity    domain.Activity
	Previous    domain.OpportunityStatus
}

// Workflow applies transitions against the shared store and activity log
type Workflow struct {
	mu     sync.Mutex
	store  *store.OpportunityStore
	log    *store.ActivityLog
	logger *zap.Logger
}

func New(opportunities *store.OpportunityStore, log *store.ActivityLog, logger *zap.Logger) *Workflow {
	return &Workflow{
		store:  opportunities,
		log:    log,
		logger: logger,
	}
}

// Transition moves opportunity id to target and records the change.
// An invalid target fails with InvalidStatusError and changes nothing. When
// the note cannot be recorded the previous status is restored.
func (w *Workflow) Transition(ctx context.Context, id int64, target string, actor domain.Actor) (*Result, error) {
	status, err := ParseStatus(target)
	if err != nil {
		return nil, err
	}

	// one transition at a time so each status change pairs with exactly one note
	w.mu.Lock()
	defer w.mu.Unlock()

	current, err := w.store.Get(id)
	if err != nil {
		return nil, err
	}

	updated, err := w.store.Update(ctx, id, domain.OpportunityPatch{Status: &status})
	if err != nil {
		return nil, err
	}

	activity, err := w.log.Append(ctx, domain.Activity{
		OpportunityID: id,
		Type:          domain.ActivityTypeNote,
		Note:          TransitionNote(status),
		UserID:        actor.UserID,
		Username:      actor.Username,
	})
	if err != nil {
		w.rollback(ctx, current, status, err)
		return nil, fmt.Errorf("failed to record transition of opportunity %d: %w", id, err)
	}

	w.logger.Info("Opportunity status changed",
		zap.Int64("opportunity_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
		zap.Int64("user_id", actor.UserID),
	)

	return &Result{
		Opportunity: updated,
		Activity:    activity,
		Previous:    current.Status,
	}, nil
}

// rollback restores the status held before a transition whose note failed
func (w *Workflow) rollback(ctx context.Context, prev domain.Opportunity, attempted domain.OpportunityStatus, cause error) {
	fields := []zap.Field{
		zap.Int64("opportunity_id", prev.ID),
		zap.String("from", string(prev.Status)),
		zap.String("to", string(attempted)),
		zap.NamedError("cause", cause),
	}
	if _, err := w.store.Update(ctx, prev.ID, domain.OpportunityPatch{Status: &prev.Status}); err != nil {
		w.logger.Error("transition note failed and status could not be restored", append(fields, zap.Error(err))...)
		return
	}
	w.logger.Warn("transition note failed, status restored", fields...)
}
