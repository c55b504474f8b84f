// Package worker runs the background reconcile loop. Transfers skip the
// synchronous aggregate update, so the worker re-derives each affected
// user's overall balance from their account balances.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finsmart/internal/amqp"
	"finsmart/internal/services"
)

type ReconcileWorker struct {
	ledger *services.LedgerService
}

func NewReconcileWorker(ledger *services.LedgerService) *ReconcileWorker {
	return &ReconcileWorker{ledger: ledger}
}

// HandleReconcileMessage recomputes the user's overall balance. The
// recompute is idempotent, so redelivered messages are harmless.
func (w *ReconcileWorker) HandleReconcileMessage(ctx context.Context, msg *amqp.ReconcileMessage) error {
	if msg.UserID == "" {
		return fmt.Errorf("reconcile message missing user id")
	}

	overall, err := w.ledger.Reconcile(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("reconcile user %s: %w", msg.UserID, err)
	}

	slog.InfoContext(ctx, "Overall balance repaired",
		"user_id", msg.UserID,
		"reason", msg.Reason,
		"overall_cents", overall.Cents)
	return nil
}
