package models

import "time"

const TransitionLogTable = "pool_transition_log"

// TransitionLog is one committed status change, appended in the same
// transaction as the loan update so the audit trail cannot drift.
type TransitionLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	LoanID         string     `gorm:"type:uuid;index;not null" json:"loanId"`
	DeviceID       string     `gorm:"index" json:"deviceId"`
	UserID         string     `json:"userId"`
	PreviousStatus LoanStatus `gorm:"size:20" json:"previousStatus"`
	NewStatus      LoanStatus `gorm:"size:20;not null" json:"newStatus"`
	Actor          string     `json:"actor,omitempty"`
	Reason         string     `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (TransitionLog) TableName() string { return TransitionLogTable }
