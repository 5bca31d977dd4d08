// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"

	"devicepool/app"
	"devicepool/db"
	"devicepool/events"
	"devicepool/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Store is what controllers need from the loan store; *db.Repo is the
// production implementation, tests substitute a fake.
type Store interface {
	CreateLoan(ctx context.Context, l *models.Loan) error
	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	ListLoans(ctx context.Context, deviceID, userID, status string) ([]models.Loan, error)
	LoanHistory(ctx context.Context, loanID string) ([]models.TransitionLog, error)

	ApproveLoan(ctx context.Context, loanID, actor string) (*models.Loan, error)
	RejectLoan(ctx context.Context, loanID, actor, reason string) (*models.Loan, error)
	CancelLoan(ctx context.Context, loanID, actor string) (*models.Loan, error)
	CollectLoan(ctx context.Context, loanID, actor string) (*models.Loan, error)
	ReturnLoan(ctx context.Context, loanID string) (*models.Loan, error)
	RevertCollection(ctx context.Context, loanID, actor string) (*models.Loan, error)

	JoinDeviceWaitlist(ctx context.Context, deviceID, userID string) (*models.Loan, error)
	JoinLoanWaitlist(ctx context.Context, loanID, userID string) (*models.Loan, error)
	LeaveWaitlist(ctx context.Context, loanID, userID string) (*models.Loan, error)
	WaitlistPositions(ctx context.Context, userID string) ([]db.WaitlistPosition, error)
	WaitlistFor(ctx context.Context, deviceID string) (*models.Loan, error)
}

var _ Store = (*db.Repo)(nil)

type Srv struct {
	Store  Store
	Events *events.Emitter
	Cfg    app.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Store:  db.NewRepo(a.DB),
		Events: events.NewEmitter(a.Publisher, a.Config.EventTopic),
		Cfg:    a.Config,
	}
}

// emit hands a committed transition to the event channel without
// blocking the response.
func (s *Srv) emit(c *gin.Context, l *models.Loan) {
	corr := c.GetHeader("X-Correlation-Id")
	if corr == "" {
		corr = uuid.NewString()
	}
	ev := events.FromLoan(l, corr)
	go s.Events.Emit(ev)
}

// --- response envelope ---

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, app.H{"ok": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, app.H{"ok": false, "error": app.H{"code": code, "message": message}})
}

func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, db.ErrAlreadyExists), errors.Is(err, db.ErrAlreadyQueued):
		fail(c, http.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, db.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, "INVALID_STATUS", err.Error())
	case errors.Is(err, db.ErrForbidden):
		fail(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, db.ErrDeviceBusy), errors.Is(err, db.ErrConflict):
		fail(c, http.StatusConflict, "CONFLICT", err.Error())
	default:
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func subject(c *gin.Context) string {
	v, _ := c.Get("userID")
	uid, _ := v.(string)
	return uid
}
