package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
)

// fakeSource returns canned results per query and counts calls
type fakeSource struct {
	name    string
	mu      sync.Mutex
	results map[string][]domain.SearchResult
	// fallback is returned for queries without an entry
	fallback []domain.SearchResult
	panics   bool
	delay    time.Duration
	calls    []string
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	s.mu.Lock()
	s.calls = append(s.calls, query)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil
		}
	}
	if s.panics {
		panic("source exploded")
	}
	results, ok := s.results[query]
	if !ok {
		results = s.fallback
	}
	return results
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeSource) queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordedEvent is one Emit call seen by recordingSink
type recordedEvent struct {
	Name    string
	Payload any
}

// recordingSink captures every emitted event in order
type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
	// failOn makes Emit fail for the named event
	failOn string
}

func (s *recordingSink) Emit(_ context.Context, event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event == s.failOn {
		return errors.New("client gone")
	}
	s.events = append(s.events, recordedEvent{Name: event, Payload: payload})
	return nil
}

func (s *recordingSink) snapshot() []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedEvent(nil), s.events...)
}

func (s *recordingSink) names() []string {
	var names []string
	for _, e := range s.snapshot() {
		names = append(names, e.Name)
	}
	return names
}

// chunks returns the content of every chat:chunk, in order
func (s *recordingSink) chunks() []string {
	var out []string
	for _, e := range s.snapshot() {
		if e.Name == domain.EventChatChunk {
			out = append(out, e.Payload.(domain.ChunkPayload).Content)
		}
	}
	return out
}

// fakeLLM streams fixed fragments
type fakeLLM struct {
	fragments []string
	err       error
	// beforeStream runs before the first fragment is produced
	beforeStream func()
	reply        string

	mu           sync.Mutex
	lastModel    string
	lastMessages []domain.Message
	lastOpts     domain.CompletionOptions
}

var _ ports.LLMPort = (*fakeLLM)(nil)

func (l *fakeLLM) StreamCompletion(ctx context.Context, model string, messages []domain.Message, opts domain.CompletionOptions, onFragment ports.FragmentHandler) error {
	l.remember(model, messages, opts)
	if l.beforeStream != nil {
		l.beforeStream()
	}
	for _, fragment := range l.fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onFragment(fragment); err != nil {
			return err
		}
	}
	return l.err
}

func (l *fakeLLM) GenerateResponse(_ context.Context, model string, messages []domain.Message, opts domain.CompletionOptions) (string, error) {
	l.remember(model, messages, opts)
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

func (l *fakeLLM) Models() []domain.ModelInfo {
	return []domain.ModelInfo{{ID: "test/model", Name: "Test"}}
}

func (l *fakeLLM) Validate(context.Context) error { return l.err }

func (l *fakeLLM) remember(model string, messages []domain.Message, opts domain.CompletionOptions) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastModel = model
	l.lastMessages = messages
	l.lastOpts = opts
}

// memoryLog is an in-memory SearchLogPort
type memoryLog struct {
	mu      sync.Mutex
	entries []domain.SearchLogEntry
}

func (m *memoryLog) Record(_ context.Context, entry domain.SearchLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryLog) Recent(_ context.Context, limit int) ([]domain.SearchLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SearchLogEntry(nil), m.entries...), nil
}

func results(source string, urls ...string) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(urls))
	for _, u := range urls {
		out = append(out, domain.SearchResult{Title: "page " + u, URL: u, Snippet: "about " + u, Source: source})
	}
	return out
}
