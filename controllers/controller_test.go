package controllers_test

import (
	"context"
	"fmt"
	"time"

	"devicepool/app"
	"devicepool/controllers"
	"devicepool/db"
	"devicepool/events"
	"devicepool/identity"
	"devicepool/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// fakeStore mirrors the repo's semantics in memory so handlers can be
// exercised without Postgres. Transition legality and ownership are
// enforced the same way the real store enforces them.
type fakeStore struct {
	loans map[string]*models.Loan
	order []string // creation order, newest last
	logs  map[string][]models.TransitionLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		loans: make(map[string]*models.Loan),
		logs:  make(map[string][]models.TransitionLog),
	}
}

var _ controllers.Store = (*fakeStore)(nil)

func (f *fakeStore) CreateLoan(_ context.Context, l *models.Loan) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if _, exists := f.loans[l.ID]; exists {
		return db.ErrAlreadyExists
	}
	l.Status = models.StatusRequested
	l.CreatedAt = time.Now().UTC()
	cp := *l
	f.loans[l.ID] = &cp
	f.order = append(f.order, l.ID)
	f.logs[l.ID] = append(f.logs[l.ID], models.TransitionLog{
		LoanID: l.ID, DeviceID: l.DeviceID, UserID: l.UserID,
		NewStatus: models.StatusRequested, Actor: l.UserID,
	})
	return nil
}

func (f *fakeStore) GetLoan(_ context.Context, id string) (*models.Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) ListLoans(_ context.Context, deviceID, userID, status string) ([]models.Loan, error) {
	var out []models.Loan
	for _, id := range f.order {
		l := f.loans[id]
		if deviceID != "" && l.DeviceID != deviceID {
			continue
		}
		if userID != "" && l.UserID != userID {
			continue
		}
		if status != "" && string(l.Status) != status {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeStore) LoanHistory(_ context.Context, loanID string) ([]models.TransitionLog, error) {
	if _, ok := f.loans[loanID]; !ok {
		return nil, db.ErrNotFound
	}
	return f.logs[loanID], nil
}

func (f *fakeStore) transition(id string, allowed []models.LoanStatus,
	check func(l *models.Loan) error, apply func(l *models.Loan, now time.Time),
	actor, reason string) (*models.Loan, error) {

	l, ok := f.loans[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	legal := false
	for _, s := range allowed {
		if l.Status == s {
			legal = true
		}
	}
	if !legal {
		return nil, fmt.Errorf("%w: loan %s is %q", db.ErrInvalidStatus, id, l.Status)
	}
	if check != nil {
		if err := check(l); err != nil {
			return nil, err
		}
	}
	prev := l.Status
	apply(l, time.Now().UTC())
	l.Version++
	f.logs[id] = append(f.logs[id], models.TransitionLog{
		LoanID: id, DeviceID: l.DeviceID, UserID: l.UserID,
		PreviousStatus: prev, NewStatus: l.Status, Actor: actor, Reason: reason,
	})
	cp := *l
	return &cp, nil
}

func (f *fakeStore) ApproveLoan(_ context.Context, loanID, actor string) (*models.Loan, error) {
	return f.transition(loanID, []models.LoanStatus{models.StatusRequested},
		func(l *models.Loan) error {
			for _, other := range f.loans {
				if other.ID != l.ID && other.DeviceID == l.DeviceID &&
					(other.Status == models.StatusApproved || other.Status == models.StatusCollected) {
					return db.ErrDeviceBusy
				}
			}
			return nil
		},
		func(l *models.Loan, now time.Time) { l.ApplyTransition(models.StatusApproved, now) },
		actor, "")
}

func (f *fakeStore) RejectLoan(_ context.Context, loanID, actor, reason string) (*models.Loan, error) {
	if reason == "" {
		reason = "no reason given"
	}
	return f.transition(loanID, []models.LoanStatus{models.StatusRequested}, nil,
		func(l *models.Loan, now time.Time) {
			l.ApplyTransition(models.StatusRejected, now)
			l.RejectedBy = actor
			l.RejectionReason = reason
		},
		actor, reason)
}

func (f *fakeStore) CancelLoan(_ context.Context, loanID, actor string) (*models.Loan, error) {
	return f.transition(loanID,
		[]models.LoanStatus{models.StatusRequested, models.StatusApproved},
		func(l *models.Loan) error {
			if actor != l.UserID {
				return db.ErrForbidden
			}
			return nil
		},
		func(l *models.Loan, now time.Time) {
			l.ApplyTransition(models.StatusCancelled, now)
			l.CancelledBy = actor
		},
		actor, "")
}

func (f *fakeStore) CollectLoan(_ context.Context, loanID, actor string) (*models.Loan, error) {
	return f.transition(loanID, []models.LoanStatus{models.StatusApproved},
		func(l *models.Loan) error {
			if actor != l.UserID {
				return db.ErrForbidden
			}
			return nil
		},
		func(l *models.Loan, now time.Time) { l.ApplyTransition(models.StatusCollected, now) },
		actor, "")
}

func (f *fakeStore) ReturnLoan(_ context.Context, loanID string) (*models.Loan, error) {
	return f.transition(loanID, []models.LoanStatus{models.StatusCollected}, nil,
		func(l *models.Loan, now time.Time) { l.ApplyTransition(models.StatusReturned, now) },
		"", "")
}

func (f *fakeStore) RevertCollection(_ context.Context, loanID, actor string) (*models.Loan, error) {
	return f.transition(loanID, []models.LoanStatus{models.StatusCollected}, nil,
		func(l *models.Loan, now time.Time) { l.RevertCollection(now) },
		actor, "collection reverted")
}

func (f *fakeStore) newestForDevice(deviceID string) *models.Loan {
	for i := len(f.order) - 1; i >= 0; i-- {
		if l := f.loans[f.order[i]]; l.DeviceID == deviceID {
			return l
		}
	}
	return nil
}

func (f *fakeStore) JoinDeviceWaitlist(_ context.Context, deviceID, userID string) (*models.Loan, error) {
	l := f.newestForDevice(deviceID)
	if l == nil {
		l = &models.Loan{ID: uuid.NewString(), DeviceID: deviceID, CreatedAt: time.Now().UTC()}
		f.loans[l.ID] = l
		f.order = append(f.order, l.ID)
	}
	l.Enqueue(userID)
	cp := *l
	return &cp, nil
}

func (f *fakeStore) JoinLoanWaitlist(_ context.Context, loanID, userID string) (*models.Loan, error) {
	l, ok := f.loans[loanID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if !l.Enqueue(userID) {
		return nil, db.ErrAlreadyQueued
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) LeaveWaitlist(_ context.Context, loanID, userID string) (*models.Loan, error) {
	l, ok := f.loans[loanID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if !l.Dequeue(userID) {
		return nil, db.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) WaitlistPositions(_ context.Context, userID string) ([]db.WaitlistPosition, error) {
	var out []db.WaitlistPosition
	for _, id := range f.order {
		l := f.loans[id]
		if pos := l.QueuePosition(userID); pos > 0 {
			out = append(out, db.WaitlistPosition{LoanID: l.ID, DeviceID: l.DeviceID, Position: pos})
		}
	}
	return out, nil
}

func (f *fakeStore) WaitlistFor(_ context.Context, deviceID string) (*models.Loan, error) {
	l := f.newestForDevice(deviceID)
	if l == nil {
		return nil, db.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// fakeVerifier resolves tokens from a fixed table.
type fakeVerifier map[string]string

func (v fakeVerifier) Verify(_ context.Context, token string) (string, error) {
	uid, ok := v[token]
	if !ok {
		return "", identity.ErrInvalidToken
	}
	return uid, nil
}

// newTestRouter registers the same paths RegisterRoutes registers,
// over the fake store and a fixed token table.
func newTestRouter(store controllers.Store, tokens map[string]string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	s := &controllers.Srv{
		Store:  store,
		Events: events.NewEmitter(events.NopPublisher{}, "loan-events"),
	}
	loanCtl := controllers.NewLoanController(s)
	waitCtl := controllers.NewWaitlistController(s)

	r := gin.New()
	authMW := app.AuthRequired(fakeVerifier(tokens))

	r.POST("/api/loans/:id/approve", loanCtl.Approve)
	r.POST("/api/loans/:id/return", loanCtl.Return)
	r.GET("/api/loans", loanCtl.List)
	r.GET("/api/loans/:id", loanCtl.Get)

	auth := r.Group("", authMW)
	auth.POST("/api/loans", loanCtl.Create)
	auth.POST("/api/loans/:id/reject", loanCtl.Reject)
	auth.POST("/api/loans/:id/cancel", loanCtl.Cancel)
	auth.POST("/api/loans/:id/collect", loanCtl.Collect)
	auth.POST("/api/loans/:id/revert-collection", loanCtl.RevertCollection)
	auth.GET("/api/loans/:id/history", loanCtl.History)

	r.POST("/api/loans/:id/waitlist", waitCtl.JoinByLoan)
	r.GET("/api/devices/:deviceId/waitlist", waitCtl.ListForDevice)
	auth.POST("/api/devices/:deviceId/waitlist", waitCtl.JoinByDevice)
	auth.DELETE("/api/loans/:id/waitlist/:userId", waitCtl.Leave)
	auth.GET("/api/users/:userId/waitlist", waitCtl.Positions)

	return r
}
