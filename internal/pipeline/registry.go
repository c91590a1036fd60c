package pipeline

import (
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"sync"
)

// Emitter receives the ordered event stream of a job.
type Emitter interface {
	Emit(Event)
}

// Sink is one subscriber of the event stream. A sink that returns an error is
// dropped from the registry that owns it.
type Sink interface {
	Send(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Send(ev Event) error { return f(ev) }

// Registry fans each event out to every registered sink. It is safe for
// concurrent Add/Remove while a job is emitting.
type Registry struct {
	mu    sync.RWMutex
	next  uint64
	sinks map[uint64]Sink
}

// NewRegistry returns an empty registry.
func NewRegistry(sinks ...Sink) *Registry {
	r := &Registry{sinks: make(map[uint64]Sink)}
	for _, s := range sinks {
		r.Add(s)
	}
	return r
}

// Add registers sink and returns its handle for Remove.
func (r *Registry) Add(sink Sink) uint64 {
	if sink == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.sinks[r.next] = sink
	return r.next
}

// Remove unregisters the sink with the given handle. Unknown handles are ignored.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	delete(r.sinks, id)
	r.mu.Unlock()
}

// Len reports the number of live sinks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

// Emit delivers ev to every sink in registration order.
func (r *Registry) Emit(ev Event) {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.sinks))
	for id := range r.sinks {
		ids = append(ids, id)
	}
	sinks := make([]Sink, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		sinks = append(sinks, r.sinks[id])
	}
	r.mu.RUnlock()

	var failed []uint64
	for i, sink := range sinks {
		if err := sink.Send(ev); err != nil {
			failed = append(failed, ids[i])
		}
	}
	for _, id := range failed {
		r.Remove(id)
	}
}

// NDJSONSink writes one JSON object per line and flushes after each event
// when the writer supports it.
type NDJSONSink struct {
	mu      sync.Mutex
	enc     *json.Encoder
	flusher http.Flusher
}

// NewNDJSONSink wraps w. HTTP response writers are flushed per event.
func NewNDJSONSink(w io.Writer) *NDJSONSink {
	sink := &NDJSONSink{enc: json.NewEncoder(w)}
	sink.enc.SetEscapeHTML(false)
	if f, ok := w.(http.Flusher); ok {
		sink.flusher = f
	}
	return sink
}

func (s *NDJSONSink) Send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(ev); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
