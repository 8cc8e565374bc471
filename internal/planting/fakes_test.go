package planting_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/couchcryptid/tree-request-service/internal/observability"
	"github.com/couchcryptid/tree-request-service/internal/planting"
)

// --- store ---

type memStore struct {
	mu        sync.Mutex
	rows      map[string]domain.TreeRequest
	nextID    int64
	findErr   error
	insertErr error
	inserts   int
}

func newMemStore(existing ...string) *memStore {
	s := &memStore{rows: make(map[string]domain.TreeRequest)}
	for _, addr := range existing {
		s.nextID++
		s.rows[addr] = domain.TreeRequest{ID: s.nextID, StreetAddress: addr, SRNumber: "SR-EXISTING"}
	}
	return s
}

func (s *memStore) FindByStreetAddress(_ context.Context, address string) (domain.TreeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return domain.TreeRequest{}, s.findErr
	}
	row, ok := s.rows[address]
	if !ok {
		return domain.TreeRequest{}, domain.ErrNotFound
	}
	return row, nil
}

func (s *memStore) Insert(_ context.Context, req *domain.TreeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.rows[req.StreetAddress]; ok {
		return domain.ErrDuplicateAddress
	}
	s.nextID++
	req.ID = s.nextID
	s.rows[req.StreetAddress] = *req
	return nil
}

func (s *memStore) row(address string) (domain.TreeRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[address]
	return row, ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// --- submitter ---

type fakeSubmitter struct {
	mu          sync.Mutex
	opens       int
	closes      int
	submissions []domain.Submission
	srNumber    string
	submitErr   error
	openErr     error
	delay       time.Duration
}

func (f *fakeSubmitter) Open(_ context.Context) (planting.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	return &fakeSession{parent: f}, nil
}

func (f *fakeSubmitter) stats() (opens, closes, submits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes, len(f.submissions)
}

type fakeSession struct {
	parent *fakeSubmitter
}

func (s *fakeSession) Submit(_ context.Context, sub domain.Submission) (domain.Receipt, error) {
	if s.parent.delay > 0 {
		time.Sleep(s.parent.delay)
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.submissions = append(s.parent.submissions, sub)
	if s.parent.submitErr != nil {
		return domain.Receipt{}, s.parent.submitErr
	}
	return domain.Receipt{SRNumber: s.parent.srNumber}, nil
}

func (s *fakeSession) Close() error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.closes++
	return nil
}

// --- locker ---

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
	}, nil
}

// --- publisher ---

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.TreeRequest
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, req domain.TreeRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, req)
	return p.err
}

// --- helpers ---

type harness struct {
	store     *memStore
	submitter *fakeSubmitter
	locker    *recordingLocker
	publisher *fakePublisher
	metrics   *observability.Metrics
	orch      *planting.Orchestrator
}

func newHarness(existing ...string) *harness {
	h := &harness{
		store:     newMemStore(existing...),
		submitter: &fakeSubmitter{srNumber: "SR24-01234567"},
		locker:    &recordingLocker{},
		publisher: &fakePublisher{},
		metrics:   observability.NewMetricsForTesting(),
	}
	h.orch = planting.New(h.store, h.submitter, h.locker, h.publisher, h.metrics, discardLogger())
	return h
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatPtr(f float64) *float64 { return &f }
