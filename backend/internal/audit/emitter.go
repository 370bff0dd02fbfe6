package audit

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Emitter publishes an event for the current transaction. Implementations
// must not fail the caller; delivery problems are theirs to report.
type Emitter interface {
	Emit(e Event)
}

// Publish is the transport an Emitter hands encoded events to, such as the
// chaincode stub's SetEvent.
type Publish func(name string, payload []byte) error

// PublishingEmitter encodes events as JSON and hands them to a Publish func,
// logging failures instead of returning them.
type PublishingEmitter struct {
	publish Publish
	log     *zap.Logger
}

func NewPublishingEmitter(publish Publish, log *zap.Logger) *PublishingEmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublishingEmitter{publish: publish, log: log}
}

func (p *PublishingEmitter) Emit(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.log.Error("encode audit event", zap.String("event", e.EventName()), zap.Error(err))
		return
	}
	if err := p.publish(e.EventName(), payload); err != nil {
		p.log.Error("publish audit event", zap.String("event", e.EventName()), zap.Error(err))
	}
}

// Record is an encoded event.
type Record struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Recorder keeps emitted events in memory. It backs the local invocation
// harness, where events are kept only for committed transactions.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Emit(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.records = append(r.records, Record{Name: e.EventName(), Payload: payload})
	r.mu.Unlock()
}

// Records returns a copy of everything emitted so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Names lists the emitted event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.records))
	for i, rec := range r.records {
		names[i] = rec.Name
	}
	return names
}
