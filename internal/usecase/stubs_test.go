package usecase_test

import (
	"context"
	"errors"
	"sync"

	"locator-healing/internal/entity"
	"locator-healing/internal/history"
	"locator-healing/internal/locator"
	"locator-healing/internal/ports"
	"locator-healing/pkg/apperr"
)

type stubElement struct{ id string }

func (e *stubElement) Click(context.Context) error          { return nil }
func (e *stubElement) Fill(context.Context, string) error   { return nil }
func (e *stubElement) Text(context.Context) (string, error) { return e.id, nil }

// stubSession resolves only the locators in found; everything else misses.
type stubSession struct {
	mu      sync.Mutex
	found   map[entity.Locator]entity.ElementHandle
	broken  map[entity.Locator]error
	panicky map[entity.Locator]bool
	tried   []entity.Locator
}

func newSession(found ...entity.Locator) *stubSession {
	s := &stubSession{
		found:   make(map[entity.Locator]entity.ElementHandle),
		broken:  make(map[entity.Locator]error),
		panicky: make(map[entity.Locator]bool),
	}

	for _, l := range found {
		s.found[l] = &stubElement{id: l.String()}
	}

	return s
}

func (s *stubSession) FindElement(_ context.Context, l entity.Locator) (entity.ElementHandle, error) {
	s.mu.Lock()
	s.tried = append(s.tried, l)
	el, ok := s.found[l]
	err := s.broken[l]
	boom := s.panicky[l]
	s.mu.Unlock()

	if boom {
		panic("driver crashed")
	}

	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, apperr.NotFoundError("stubSession.FindElement", errors.New("no match for "+l.String()))
	}

	return el, nil
}

func (s *stubSession) Snapshot(context.Context) ([]entity.Element, error) { return nil, nil }
func (s *stubSession) Screenshot(context.Context) ([]byte, error)         { return nil, nil }
func (s *stubSession) ElementAt(context.Context, float64, float64) (entity.ElementHandle, error) {
	return nil, apperr.NotFoundError("stubSession.ElementAt", nil)
}

func (s *stubSession) attempts() []entity.Locator {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]entity.Locator(nil), s.tried...)
}

type countingHistory struct {
	*history.Cache
	mu        sync.Mutex
	lookups   int
	remembers int
}

func newHistory() *countingHistory {
	return &countingHistory{Cache: history.NewCache()}
}

func (h *countingHistory) Remember(original, successful entity.Locator) {
	h.mu.Lock()
	h.remembers++
	h.mu.Unlock()

	h.Cache.Remember(original, successful)
}

func (h *countingHistory) Lookup(original entity.Locator) []entity.Locator {
	h.mu.Lock()
	h.lookups++
	h.mu.Unlock()

	return h.Cache.Lookup(original)
}

// forgetfulHistory fails every write.
type forgetfulHistory struct {
	*history.Cache
}

func (forgetfulHistory) Remember(entity.Locator, entity.Locator) {
	panic("history store unavailable")
}

type countingGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGenerator) Generate(original entity.Locator, description string) []entity.Locator {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	return locator.Generate(original, description)
}

// stubFinder serves as both semantic and visual finder.
type stubFinder struct {
	mu           sync.Mutex
	calls        int
	descriptions []string
	element      entity.ElementHandle
	err          error
	panics       bool
}

func (f *stubFinder) FindElement(_ context.Context, _ ports.Session, description string) (entity.ElementHandle, error) {
	f.mu.Lock()
	f.calls++
	f.descriptions = append(f.descriptions, description)
	f.mu.Unlock()

	if f.panics {
		panic("model exploded")
	}

	if f.element != nil {
		return f.element, nil
	}

	if f.err != nil {
		return nil, f.err
	}

	return nil, apperr.NotFoundError("stubFinder.FindElement", errors.New("nothing matches"))
}

type recordingReporter struct {
	mu       sync.Mutex
	info     []string
	warnings []string
	success  []string
}

func (r *recordingReporter) Info(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = append(r.info, m)
}

func (r *recordingReporter) Warning(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, m)
}

func (r *recordingReporter) Success(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success = append(r.success, m)
}

// events returns every message in the order the category lists were kept,
// info first, then warnings, then successes.
func (r *recordingReporter) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := append([]string(nil), r.info...)
	all = append(all, r.warnings...)

	return append(all, r.success...)
}

type panickingReporter struct{}

func (panickingReporter) Info(string)    { panic("sink down") }
func (panickingReporter) Warning(string) { panic("sink down") }
func (panickingReporter) Success(string) { panic("sink down") }
