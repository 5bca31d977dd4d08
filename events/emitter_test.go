package events_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"devicepool/events"
	"devicepool/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	topic    string
	messages [][]byte
	err      error
}

func (p *capturePublisher) Publish(topic string, message []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.messages = append(p.messages, message)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestEmitPublishesTransitionFact(t *testing.T) {
	pub := &capturePublisher{}
	em := events.NewEmitter(pub, "loan-events")

	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	l := &models.Loan{
		ID:       "loan-1",
		DeviceID: "dev-1",
		UserID:   "u1",
		Status:   models.StatusRequested,
		From:     now,
		Till:     now.Add(48 * time.Hour),
	}
	l.ApplyTransition(models.StatusApproved, now.Add(time.Minute))

	em.Emit(events.FromLoan(l, "corr-1"))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "loan-events", pub.topic)

	var ev events.LoanEvent
	require.NoError(t, json.Unmarshal(pub.messages[0], &ev))
	assert.Equal(t, "loan-1", ev.LoanID)
	assert.Equal(t, "dev-1", ev.DeviceID)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, string(models.StatusRequested), ev.PreviousStatus)
	assert.Equal(t, string(models.StatusApproved), ev.NewStatus)
	assert.Equal(t, now.Add(time.Minute), ev.StatusChangedAt)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Nil(t, ev.CollectedAt)
	assert.Empty(t, ev.Reason)
}

func TestEmitCarriesRejectionReason(t *testing.T) {
	pub := &capturePublisher{}
	em := events.NewEmitter(pub, "loan-events")

	l := &models.Loan{ID: "loan-2", DeviceID: "dev-1", UserID: "u1", Status: models.StatusRequested}
	l.ApplyTransition(models.StatusRejected, time.Now().UTC())
	l.RejectionReason = "device recalled"

	em.Emit(events.FromLoan(l, "corr-2"))

	require.Len(t, pub.messages, 1)
	var ev events.LoanEvent
	require.NoError(t, json.Unmarshal(pub.messages[0], &ev))
	assert.Equal(t, "device recalled", ev.Reason)
}

func TestEmitSwallowsPublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	em := events.NewEmitter(pub, "loan-events")

	l := &models.Loan{ID: "loan-3", Status: models.StatusRequested}
	l.ApplyTransition(models.StatusApproved, time.Now().UTC())

	// must not panic or surface the failure
	em.Emit(events.FromLoan(l, "corr-3"))
	assert.Empty(t, pub.messages)
}
