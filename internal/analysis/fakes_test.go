package analysis

import (
	"context"
	"sync"

	"saas-backend/internal/activity"
	"saas-backend/internal/llm"
	"saas-backend/internal/organizations"
	"saas-backend/internal/queue"
)

type fakeRecord struct {
	orgID   string
	subject Subject
	output  *Output
}

type fakeTarget struct {
	mu      sync.Mutex
	records map[string]*fakeRecord
	saveErr error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{records: make(map[string]*fakeRecord)}
}

func (f *fakeTarget) add(orgID string, subject Subject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if subject.Status == "" {
		subject.Status = StatusPending
	}
	f.records[subject.ID] = &fakeRecord{orgID: orgID, subject: subject}
}

func (f *fakeTarget) get(id string) fakeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.records[id]
}

func (f *fakeTarget) AnalysisSubject(_ context.Context, orgID, id string) (Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.orgID != orgID {
		return Subject{}, ErrNotFound
	}
	return rec.subject, nil
}

func (f *fakeTarget) SetStatus(_ context.Context, orgID, id string, status Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.orgID != orgID {
		return ErrNotFound
	}
	rec.subject.Status = status
	return nil
}

func (f *fakeTarget) SaveAnalysis(_ context.Context, orgID, id string, out Output) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	rec, ok := f.records[id]
	if !ok || rec.orgID != orgID {
		return ErrNotFound
	}
	rec.subject.Status = StatusCompleted
	rec.output = &out
	return nil
}

type fakeSettings map[string]organizations.Settings

func (f fakeSettings) Settings(_ context.Context, orgID string) (organizations.Settings, error) {
	s, ok := f[orgID]
	if !ok {
		return organizations.Settings{}, organizations.ErrNotFound
	}
	return s, nil
}

type fakeLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	results  []llmResult
	panicMsg string
}

type llmResult struct {
	out llm.Completion
	err error
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return llm.Completion{Text: "ok", Model: req.Model, InputTokens: 1, OutputTokens: 1}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res.out, res.err
}

func (f *fakeLLM) calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []queue.Message
	err  error
}

func (f *fakeQueue) Send(_ context.Context, msg queue.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeActivity struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (f *fakeActivity) Record(_ context.Context, entry activity.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeActivity) all() []activity.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]activity.Entry(nil), f.entries...)
}
