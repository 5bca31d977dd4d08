// models/loan.go
package models

import (
	"time"

	"github.com/lib/pq"
)

const LoanTable = "pool_loans"

type LoanStatus string

const (
	StatusRequested LoanStatus = "Requested"
	StatusApproved  LoanStatus = "Approved"
	StatusRejected  LoanStatus = "Rejected"
	StatusCollected LoanStatus = "Collected"
	StatusReturned  LoanStatus = "Returned"
	StatusCancelled LoanStatus = "Cancelled"
)

// Loan is one user borrowing one device for a window. A record whose
// Status is empty is a waitlist placeholder: it only carries the queue
// for a device nobody has requested yet.
type Loan struct {
	ID       string     `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID string     `gorm:"index;not null" json:"deviceId"`
	UserID   string     `gorm:"index" json:"userId,omitempty"`
	Status   LoanStatus `gorm:"size:20;index" json:"status,omitempty"`

	From time.Time `json:"from,omitempty"`
	Till time.Time `json:"till,omitempty"`

	ApprovedAt           *time.Time `json:"approvedAt,omitempty"`
	RejectedAt           *time.Time `json:"rejectedAt,omitempty"`
	CollectedAt          *time.Time `json:"collectedAt,omitempty"`
	ReturnedAt           *time.Time `json:"returnedAt,omitempty"`
	CancelledAt          *time.Time `json:"cancelledAt,omitempty"`
	CollectionRevertedAt *time.Time `json:"collectionRevertedAt,omitempty"`

	RejectionReason string `gorm:"size:255" json:"rejectionReason,omitempty"`
	RejectedBy      string `json:"rejectedBy,omitempty"`
	CancelledBy     string `json:"cancelledBy,omitempty"`

	// Ordered FIFO queue of userIds waiting for this device, no duplicates.
	Waitlist pq.StringArray `gorm:"type:text[]" json:"waitlist,omitempty"`

	// Bumped on every conditional write; stale writers lose.
	Version int `gorm:"not null;default:0" json:"-"`

	// Status held before the last transition, for event emission.
	// Not persisted.
	PreviousStatus LoanStatus `gorm:"-" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Loan) TableName() string { return LoanTable }

// legal transition graph; revert Collected->Approved is administrative
// and handled separately so it never mixes with the normal path.
var transitions = map[LoanStatus][]LoanStatus{
	StatusRequested: {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCollected, StatusCancelled},
	StatusCollected: {StatusReturned},
}

func CanTransition(from, to LoanStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ApplyTransition moves the loan to the target status and stamps the
// matching timestamp. Callers must have verified legality first.
func (l *Loan) ApplyTransition(to LoanStatus, now time.Time) {
	l.PreviousStatus = l.Status
	l.Status = to
	switch to {
	case StatusApproved:
		if l.ApprovedAt == nil {
			t := now
			l.ApprovedAt = &t
		}
	case StatusRejected:
		t := now
		l.RejectedAt = &t
	case StatusCollected:
		t := now
		l.CollectedAt = &t
	case StatusReturned:
		t := now
		l.ReturnedAt = &t
	case StatusCancelled:
		t := now
		l.CancelledAt = &t
	}
}

// RevertCollection undoes an erroneous collection confirmation:
// back to Approved, CollectedAt cleared, revert marker stamped.
func (l *Loan) RevertCollection(now time.Time) {
	l.PreviousStatus = l.Status
	l.Status = StatusApproved
	l.CollectedAt = nil
	t := now
	l.CollectionRevertedAt = &t
}

// StatusChangedAt returns the timestamp stamped by the current status.
func (l *Loan) StatusChangedAt() time.Time {
	switch l.Status {
	case StatusApproved:
		if l.CollectionRevertedAt != nil {
			return *l.CollectionRevertedAt
		}
		if l.ApprovedAt != nil {
			return *l.ApprovedAt
		}
	case StatusRejected:
		if l.RejectedAt != nil {
			return *l.RejectedAt
		}
	case StatusCollected:
		if l.CollectedAt != nil {
			return *l.CollectedAt
		}
	case StatusReturned:
		if l.ReturnedAt != nil {
			return *l.ReturnedAt
		}
	case StatusCancelled:
		if l.CancelledAt != nil {
			return *l.CancelledAt
		}
	}
	return l.CreatedAt
}

// OnWaitlist reports whether userID is queued on this record.
func (l *Loan) OnWaitlist(userID string) bool {
	return l.QueuePosition(userID) > 0
}

// QueuePosition returns the 1-based position of userID, 0 if absent.
func (l *Loan) QueuePosition(userID string) int {
	for i, u := range l.Waitlist {
		if u == userID {
			return i + 1
		}
	}
	return 0
}

// Enqueue appends userID at the tail. Re-adding a queued user is a
// no-op; the returned bool reports whether the list changed.
func (l *Loan) Enqueue(userID string) bool {
	if l.OnWaitlist(userID) {
		return false
	}
	l.Waitlist = append(l.Waitlist, userID)
	return true
}

// Dequeue removes the first occurrence of userID, preserving order.
func (l *Loan) Dequeue(userID string) bool {
	for i, u := range l.Waitlist {
		if u == userID {
			l.Waitlist = append(l.Waitlist[:i], l.Waitlist[i+1:]...)
			return true
		}
	}
	return false
}
