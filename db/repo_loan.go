package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"devicepool/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeStatuses = []models.LoanStatus{models.StatusApproved, models.StatusCollected}

type transitionArgs struct {
	allowed []models.LoanStatus
	// snake_case columns the transition is allowed to touch,
	// besides status and version
	fields []string
	actor  string
	reason string
	check  func(tx *gorm.DB, l *models.Loan) error
	apply  func(l *models.Loan, now time.Time)
}

// applyTransition is the one write path for every status change:
// lock the row, verify the source status, mutate, then write with a
// compare-and-set on (status, version) so a stale writer can never
// silently overwrite a concurrent transition.
func (r *Repo) applyTransition(ctx context.Context, loanID string, args transitionArgs) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&l, "id = ?", loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		legal := false
		for _, s := range args.allowed {
			if l.Status == s {
				legal = true
				break
			}
		}
		if !legal {
			return fmt.Errorf("%w: loan %s is %q", ErrInvalidStatus, l.ID, l.Status)
		}

		if args.check != nil {
			if err := args.check(tx, &l); err != nil {
				return err
			}
		}

		prev := l.Status
		readVersion := l.Version
		args.apply(&l, time.Now().UTC())
		l.Version = readVersion + 1

		cols := append([]string{"status", "version"}, args.fields...)
		res := tx.Model(&models.Loan{}).
			Where("id = ? AND status = ? AND version = ?", l.ID, prev, readVersion).
			Select(cols).
			Updates(&l)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrDeviceBusy
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		return tx.Create(&models.TransitionLog{
			LoanID:         l.ID,
			DeviceID:       l.DeviceID,
			UserID:         l.UserID,
			PreviousStatus: prev,
			NewStatus:      l.Status,
			Actor:          args.actor,
			Reason:         args.reason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) ApproveLoan(ctx context.Context, loanID, actor string) (*models.Loan, error) {
	return r.applyTransition(ctx, loanID, transitionArgs{
		allowed: []models.LoanStatus{models.StatusRequested},
		fields:  []string{"approved_at"},
		actor:   actor,
		check: func(tx *gorm.DB, l *models.Loan) error {
			// one active loan per device; the partial unique index is
			// the backstop, this check gives the caller a clean error
			var n int64
			err := tx.Model(&models.Loan{}).
				Where("device_id = ? AND id <> ? AND status IN ?", l.DeviceID, l.ID, activeStatuses).
				Count(&n).Error
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrDeviceBusy
			}
			return nil
		},
		apply: func(l *models.Loan, now time.Time) {
			l.ApplyTransition(models.StatusApproved, now)
		},
	})
}

func (r *Repo) RejectLoan(ctx context.Context, loanID, actor, reason string) (*models.Loan, error) {
	if reason == "" {
		reason = "no reason given"
	}
	return r.applyTransition(ctx, loanID, transitionArgs{
		allowed: []models.LoanStatus{models.StatusRequested},
		fields:  []string{"rejected_at", "rejected_by", "rejection_reason"},
		actor:   actor,
		reason:  reason,
		apply: func(l *models.Loan, now time.Time) {
			l.ApplyTransition(models.StatusRejected, now)
			l.RejectedBy = actor
			l.RejectionReason = reason
		},
	})
}

func (r *Repo) CancelLoan(ctx context.Context, loanID, actor string) (*models.Loan, error) {
	return r.applyTransition(ctx, loanID, transitionArgs{
		allowed: []models.LoanStatus{models.StatusRequested, models.StatusApproved},
		fields:  []string{"cancelled_at", "cancelled_by"},
		actor:   actor,
		check: func(tx *gorm.DB, l *models.Loan) error {
			if actor != l.UserID {
				return ErrForbidden
			}
			return nil
		},
		apply: func(l *models.Loan, now time.Time) {
			l.ApplyTransition(models.StatusCancelled, now)
			l.CancelledBy = actor
		},
	})
}

func (r *Repo) CollectLoan(ctx context.Context, loanID, actor string) (*models.Loan, error) {
	return r.applyTransition(ctx, loanID, transitionArgs{
		allowed: []models.LoanStatus{models.StatusApproved},
		fields:  []string{"collected_at"},
		actor:   actor,
		check: func(tx *gorm.DB, l *models.Loan) error {
			if actor != l.UserID {
				return ErrForbidden
			}
			return nil
		},
		apply: func(l *models.Loan, now time.Time) {
			l.ApplyTransition(models.StatusCollected, now)
		},
	})
}

func (r *Repo) ReturnLoan(ctx context.Context, loanID string) (*models.Loan, error) {
	return r.applyTransition(ctx, loanID, transitionArgs{
		allowed: []models.LoanStatus{models.StatusCollected},
		fields:  []string{"returned_at"},
		apply: func(l *models.Loan, now time.Time) {
			l.ApplyTransition(models.StatusReturned, now)
		},
	})
}

// RevertCollection is the administrative override for an erroneous
// collection confirmation: Collected back to Approved.
func (r *Repo) RevertCollection(ctx context.Context, loanID, actor string) (*models.Loan, error) {
	return r.applyTransition(ctx, loanID, transitionArgs{
		allowed: []models.LoanStatus{models.StatusCollected},
		fields:  []string{"collected_at", "collection_reverted_at"},
		actor:   actor,
		reason:  "collection reverted",
		apply: func(l *models.Loan, now time.Time) {
			l.RevertCollection(now)
		},
	})
}
