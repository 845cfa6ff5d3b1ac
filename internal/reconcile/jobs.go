// Package reconcile periodically verifies that discounted orders agree with the ledger.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relense/influencer-markt-sub003/internal/models"
	"github.com/relense/influencer-markt-sub003/internal/repository"
)

// Repository lists every order that carries a credit discount.
type Repository interface {
	ListDiscounted(ctx context.Context) ([]*repository.DiscountedOrder, error)
}

// Mismatch describes one discounted order that disagrees with its withdrawal.
type Mismatch struct {
	OrderID uuid.UUID
	Reason  string
}

// Report summarizes one reconciliation run.
type Report struct {
	Checked    int
	Mismatches []Mismatch
}

// CheckOrder returns "" when the order is consistent, otherwise the reason.
// A discounted order must reference a withdrawal, and its discounted total
// must equal the total minus that withdrawal.
func CheckOrder(d *repository.DiscountedOrder) string {
	if d.DiscountDirection != models.CreditWithdrawal {
		return fmt.Sprintf("discount transaction is a %s, not a withdrawal", d.DiscountDirection)
	}
	want := d.Order.TotalCents - d.DiscountAmount
	if d.Order.TotalWithDiscountCents != want {
		return fmt.Sprintf("total_with_discount %d, want %d (total %d - discount %d)",
			d.Order.TotalWithDiscountCents, want, d.Order.TotalCents, d.DiscountAmount)
	}
	if d.DiscountAmount <= 0 || d.DiscountAmount > d.Order.TotalCents {
		return fmt.Sprintf("discount %d outside (0, %d]", d.DiscountAmount, d.Order.TotalCents)
	}
	return ""
}

// Jobs contains the scheduled reconciliation task.
type Jobs struct {
	repo    Repository
	timeout time.Duration
	logger  *slog.Logger
}

func NewJobs(repo Repository, logger *slog.Logger) *Jobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &Jobs{repo: repo, timeout: 5 * time.Minute, logger: logger}
}

// Run scans all discounted orders once.
func (j *Jobs) Run(ctx context.Context) (*Report, error) {
	orders, err := j.repo.ListDiscounted(ctx)
	if err != nil {
		return nil, err
	}
	report := &Report{Checked: len(orders)}
	for _, d := range orders {
		if reason := CheckOrder(d); reason != "" {
			report.Mismatches = append(report.Mismatches, Mismatch{OrderID: d.Order.ID, Reason: reason})
		}
	}
	return report, nil
}

// ReconcileDiscounts is the cron entry point; it logs rather than returns.
func (j *Jobs) ReconcileDiscounts() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.logger.Info("starting discount reconciliation job")
	report, err := j.Run(ctx)
	if err != nil {
		j.logger.Error("discount reconciliation failed", "error", err)
		return
	}
	for _, m := range report.Mismatches {
		j.logger.Error("discounted order disagrees with ledger", "order_id", m.OrderID, "reason", m.Reason)
	}
	j.logger.Info("finished discount reconciliation job", "checked", report.Checked, "mismatches", len(report.Mismatches))
}
