package events

import (
	"log"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Emitter publishes committed transitions. Delivery is best-effort:
// a publish failure is logged and swallowed, because the triggering
// transition has already committed and must not be rolled back for a
// non-critical side effect.
type Emitter struct {
	pub   Publisher
	topic string
}

func NewEmitter(pub Publisher, topic string) *Emitter {
	return &Emitter{pub: pub, topic: topic}
}

func (e *Emitter) Emit(ev LoanEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("marshal loan event %s: %v", ev.LoanID, err)
		return
	}
	if err := e.pub.Publish(e.topic, b); err != nil {
		log.Printf("publish loan event %s (%s -> %s): %v",
			ev.LoanID, ev.PreviousStatus, ev.NewStatus, err)
	}
}
