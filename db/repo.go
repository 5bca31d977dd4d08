package db

import (
	"context"
	"errors"
	"fmt"

	"devicepool/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

// CreateLoan writes a new loan in Requested. A reused id is rejected,
// never overwritten — that is how duplicate submits of the same
// logical request are caught.
func (r *Repo) CreateLoan(ctx context.Context, l *models.Loan) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.Status = models.StatusRequested

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(l).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("create loan: %w", err)
		}
		return tx.Create(&models.TransitionLog{
			LoanID:    l.ID,
			DeviceID:  l.DeviceID,
			UserID:    l.UserID,
			NewStatus: models.StatusRequested,
			Actor:     l.UserID,
		}).Error
	})
}

func (r *Repo) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) ListLoans(ctx context.Context, deviceID, userID, status string) ([]models.Loan, error) {
	q := r.DB.WithContext(ctx).Model(&models.Loan{}).Order("created_at DESC")
	if deviceID != "" {
		q = q.Where("device_id = ?", deviceID)
	}
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var ls []models.Loan
	if err := q.Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

func (r *Repo) LoanHistory(ctx context.Context, loanID string) ([]models.TransitionLog, error) {
	var logs []models.TransitionLog
	err := r.DB.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		// distinguish "no history" from "no such loan"
		var n int64
		if err := r.DB.WithContext(ctx).Model(&models.Loan{}).Where("id = ?", loanID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrNotFound
		}
	}
	return logs, nil
}
