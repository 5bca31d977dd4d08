package db

import (
	"context"
	"errors"

	"devicepool/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WaitlistPosition is one queue membership for a user, 1-based.
type WaitlistPosition struct {
	LoanID   string `json:"loanId"`
	DeviceID string `json:"deviceId"`
	Position int    `json:"position"`
}

func (r *Repo) saveWaitlist(tx *gorm.DB, l *models.Loan, readVersion int) error {
	l.Version = readVersion + 1
	res := tx.Model(&models.Loan{}).
		Where("id = ? AND version = ?", l.ID, readVersion).
		Select([]string{"waitlist", "version"}).
		Updates(l)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// JoinDeviceWaitlist queues userID on the device's current record,
// creating a placeholder record when the device has none yet.
// Re-joining is a no-op, not an error.
func (r *Repo) JoinDeviceWaitlist(ctx context.Context, deviceID, userID string) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("device_id = ?", deviceID).
			Order("created_at DESC").
			First(&l).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l = models.Loan{
				ID:       uuid.NewString(),
				DeviceID: deviceID,
				Waitlist: pq.StringArray{userID},
			}
			return tx.Create(&l).Error
		}
		if err != nil {
			return err
		}

		readVersion := l.Version
		if !l.Enqueue(userID) {
			return nil // already queued
		}
		return r.saveWaitlist(tx, &l, readVersion)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// JoinLoanWaitlist queues userID on a specific loan record. Unlike the
// device-keyed join, a duplicate join fails with ErrAlreadyQueued.
func (r *Repo) JoinLoanWaitlist(ctx context.Context, loanID, userID string) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&l, "id = ?", loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		readVersion := l.Version
		if !l.Enqueue(userID) {
			return ErrAlreadyQueued
		}
		return r.saveWaitlist(tx, &l, readVersion)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LeaveWaitlist removes userID from the loan's queue, preserving the
// order of everyone behind them.
func (r *Repo) LeaveWaitlist(ctx context.Context, loanID, userID string) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&l, "id = ?", loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		readVersion := l.Version
		if !l.Dequeue(userID) {
			return ErrNotFound
		}
		return r.saveWaitlist(tx, &l, readVersion)
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// WaitlistPositions scans every record whose queue contains userID.
func (r *Repo) WaitlistPositions(ctx context.Context, userID string) ([]WaitlistPosition, error) {
	var ls []models.Loan
	err := r.DB.WithContext(ctx).
		Where("? = ANY(waitlist)", userID).
		Order("created_at ASC").
		Find(&ls).Error
	if err != nil {
		return nil, err
	}
	positions := make([]WaitlistPosition, 0, len(ls))
	for i := range ls {
		positions = append(positions, WaitlistPosition{
			LoanID:   ls[i].ID,
			DeviceID: ls[i].DeviceID,
			Position: ls[i].QueuePosition(userID),
		})
	}
	return positions, nil
}

// WaitlistFor returns the device's current record with its full queue.
func (r *Repo) WaitlistFor(ctx context.Context, deviceID string) (*models.Loan, error) {
	var l models.Loan
	err := r.DB.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at DESC").
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
