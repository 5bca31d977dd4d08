package events

import (
	"time"

	"devicepool/models"
)

// LoanEvent is the fact published after a transition commits.
// Consumers must tolerate at-most-once, possibly-zero delivery; the
// loan record itself stays authoritative.
type LoanEvent struct {
	LoanID          string     `json:"loanId"`
	DeviceID        string     `json:"deviceId"`
	UserID          string     `json:"userId"`
	From            time.Time  `json:"from,omitempty"`
	Till            time.Time  `json:"till,omitempty"`
	PreviousStatus  string     `json:"previousStatus"`
	NewStatus       string     `json:"newStatus"`
	StatusChangedAt time.Time  `json:"statusChangedAt"`
	CollectedAt     *time.Time `json:"collectedAt,omitempty"`
	ReturnedAt      *time.Time `json:"returnedAt,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	CorrelationID   string     `json:"correlationId"`
}

// FromLoan builds the payload for a loan whose transition just
// committed; PreviousStatus must still be set on the record.
func FromLoan(l *models.Loan, correlationID string) LoanEvent {
	ev := LoanEvent{
		LoanID:          l.ID,
		DeviceID:        l.DeviceID,
		UserID:          l.UserID,
		From:            l.From,
		Till:            l.Till,
		PreviousStatus:  string(l.PreviousStatus),
		NewStatus:       string(l.Status),
		StatusChangedAt: l.StatusChangedAt(),
		CollectedAt:     l.CollectedAt,
		ReturnedAt:      l.ReturnedAt,
		CorrelationID:   correlationID,
	}
	if l.Status == models.StatusRejected {
		ev.Reason = l.RejectionReason
	}
	return ev
}
