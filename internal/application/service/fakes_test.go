package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/benefits-portal/internal/application/port"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/event"
)

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// memApplications is an in-memory ApplicationRepository with status CAS
type memApplications struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entity.Application

	// beforeWrite runs before every conditional write, to simulate a racing writer
	beforeWrite func(id int64)
}

func newMemApplications() *memApplications {
	return &memApplications{rows: make(map[int64]*entity.Application)}
}

func copyApplication(a *entity.Application) *entity.Application {
	cp := *a
	cp.Attachments = append([]entity.AttachmentRef(nil), a.Attachments...)
	cp.Fields.Members = append([]entity.HouseholdMember(nil), a.Fields.Members...)
	return &cp
}

func (m *memApplications) hook(id int64) {
	if m.beforeWrite != nil {
		m.beforeWrite(id)
	}
}

func (m *memApplications) Create(ctx context.Context, app *entity.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	app.ID = m.nextID
	m.rows[app.ID] = copyApplication(app)
	return nil
}

func (m *memApplications) Get(ctx context.Context, id int64) (*entity.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return copyApplication(a), nil
}

func (m *memApplications) GetByCode(ctx context.Context, code string) (*entity.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Code == code {
			return copyApplication(a), nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *memApplications) Save(ctx context.Context, app *entity.Application, expectedStatus string) error {
	m.hook(app.ID)
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[app.ID]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Status != expectedStatus {
		return port.ErrConflict
	}
	m.rows[app.ID] = copyApplication(app)
	return nil
}

func (m *memApplications) CompareAndSwapStatus(ctx context.Context, id int64, from, to string) error {
	m.hook(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Status != from {
		return port.ErrConflict
	}
	cur.Status = to
	return nil
}

func (m *memApplications) Delete(ctx context.Context, id int64, expectedStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Status != expectedStatus {
		return port.ErrConflict
	}
	delete(m.rows, id)
	return nil
}

func (m *memApplications) ListByStatus(ctx context.Context, statuses ...string) ([]*entity.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []*entity.Application
	for _, a := range m.rows {
		if want[a.Status] {
			out = append(out, copyApplication(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// set overwrites a stored application, bypassing the workflow
func (m *memApplications) set(app *entity.Application) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[app.ID] = copyApplication(app)
}

// memPayouts is an in-memory PayoutRepository
type memPayouts struct {
	mu           sync.Mutex
	nextBatchID  int64
	nextDetailID int64
	batches      map[int64]*entity.PayoutBatch
	details      map[int64]*entity.PayoutDetail

	// beforeSave runs ahead of SaveBatch so tests can slip in a concurrent writer
	beforeSave func(id int64)
}

func newMemPayouts() *memPayouts {
	return &memPayouts{
		batches: make(map[int64]*entity.PayoutBatch),
		details: make(map[int64]*entity.PayoutDetail),
	}
}

func (m *memPayouts) CreateBatch(ctx context.Context, batch *entity.PayoutBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBatchID++
	batch.ID = m.nextBatchID
	cp := *batch
	cp.Details = nil
	m.batches[batch.ID] = &cp
	return nil
}

func (m *memPayouts) loadLocked(b *entity.PayoutBatch) *entity.PayoutBatch {
	cp := *b
	cp.Details = nil
	for _, d := range m.details {
		if d.BatchID == b.ID {
			dc := *d
			cp.Details = append(cp.Details, &dc)
		}
	}
	sort.Slice(cp.Details, func(i, j int) bool { return cp.Details[i].ID < cp.Details[j].ID })
	return &cp
}

func (m *memPayouts) GetBatch(ctx context.Context, id int64) (*entity.PayoutBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return m.loadLocked(b), nil
}

func (m *memPayouts) GetBatchByCode(ctx context.Context, code string) (*entity.PayoutBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.Code == code {
			return m.loadLocked(b), nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *memPayouts) SaveBatch(ctx context.Context, batch *entity.PayoutBatch, expectedStatus string) error {
	if m.beforeSave != nil {
		m.beforeSave(batch.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.batches[batch.ID]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Status != expectedStatus || cur.Version != batch.Version {
		return port.ErrConflict
	}
	batch.Version++
	cp := *batch
	cp.Details = nil
	m.batches[batch.ID] = &cp
	return nil
}

func (m *memPayouts) AddDetail(ctx context.Context, detail *entity.PayoutDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDetailID++
	detail.ID = m.nextDetailID
	cp := *detail
	m.details[detail.ID] = &cp
	return nil
}

func (m *memPayouts) GetDetail(ctx context.Context, id int64) (*entity.PayoutDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.details[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memPayouts) UpdateDetail(ctx context.Context, detail *entity.PayoutDetail, expectedStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.details[detail.ID]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Status != expectedStatus {
		return port.ErrConflict
	}
	cp := *detail
	m.details[detail.ID] = &cp
	return nil
}

func (m *memPayouts) ListActiveDetailsByApplication(ctx context.Context, applicationID int64) ([]*entity.PayoutDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.PayoutDetail
	for _, d := range m.details {
		if d.ApplicationID != applicationID {
			continue
		}
		if b := m.batches[d.BatchID]; b != nil && b.Status != entity.BatchCancelled {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memComplaints is an in-memory ComplaintRepository
type memComplaints struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entity.Complaint
}

func newMemComplaints() *memComplaints {
	return &memComplaints{rows: make(map[int64]*entity.Complaint)}
}

func (m *memComplaints) Create(ctx context.Context, c *entity.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memComplaints) Get(ctx context.Context, id int64) (*entity.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *c
	cp.Attachments = append([]entity.AttachmentRef(nil), c.Attachments...)
	return &cp, nil
}

func (m *memComplaints) Save(ctx context.Context, c *entity.Complaint, expectedStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[c.ID]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Status != expectedStatus {
		return port.ErrConflict
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memComplaints) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return port.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// memHistory is an in-memory HistoryRepository
type memHistory struct {
	mu   sync.Mutex
	rows []*entity.StatusHistory
}

func (m *memHistory) Create(ctx context.Context, h *entity.StatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, h)
	return nil
}

func (m *memHistory) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StatusHistory
	for _, h := range m.rows {
		if h.EntityType == entityType && h.EntityID == entityID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memPrograms map[string]*entity.Program

func (m memPrograms) GetProgram(ctx context.Context, id string) (*entity.Program, error) {
	p, ok := m[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return p, nil
}

// memBlobs is an in-memory BlobStore
type memBlobs struct {
	mu    sync.Mutex
	n     int
	blobs map[string][]byte
}

func (m *memBlobs) Put(ctx context.Context, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blobs == nil {
		m.blobs = make(map[string][]byte)
	}
	m.n++
	id := fmt.Sprintf("blob-%d", m.n)
	m.blobs[id] = content
	return id, nil
}

func (m *memBlobs) Get(ctx context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return b, nil
}

func (m *memBlobs) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}

// magicSniffer recognises a few file signatures
type magicSniffer struct{}

func (magicSniffer) Detect(content []byte) string {
	switch {
	case bytes.HasPrefix(content, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(content, []byte("%PDF")):
		return "application/pdf"
	case bytes.HasPrefix(content, []byte("MZ")):
		return "application/x-msdownload"
	}
	return "application/octet-stream"
}

type fakeParser struct {
	rows []entity.PayoutStatusRow
	err  error
}

func (f *fakeParser) Parse(fileName string, r io.Reader) ([]entity.PayoutStatusRow, error) {
	return f.rows, f.err
}

type seqCodes struct {
	mu sync.Mutex
	n  int
}

func (c *seqCodes) next(prefix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("%s-%04d", prefix, c.n)
}

func (c *seqCodes) ApplicationCode() string { return c.next("HS") }
func (c *seqCodes) ComplaintCode() string   { return c.next("KN") }
func (c *seqCodes) BatchCode() string       { return c.next("PB") }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// passTx runs the function without a real transaction
type passTx struct{}

func (passTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingSink collects notified events
type recordingSink struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *recordingSink) Notify(ctx context.Context, evt *event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingSink) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// recordingMetrics counts recorded outcomes
type recordingMetrics struct {
	mu          sync.Mutex
	transitions []string
	rejections  map[string]int
}

func (r *recordingMetrics) TransitionApplied(entityType, from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, entityType+":"+from+"->"+to)
}

func (r *recordingMetrics) CommandRejected(operation, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejections == nil {
		r.rejections = make(map[string]int)
	}
	r.rejections[kind]++
}

func (r *recordingMetrics) RowsImported(matched, unmatched, issues int) {}

// harness bundles a service with its fakes
type harness struct {
	svc        WorkflowService
	apps       *memApplications
	payouts    *memPayouts
	complaints *memComplaints
	history    *memHistory
	blobs      *memBlobs
	parser     *fakeParser
	sink       *recordingSink
	metrics    *recordingMetrics
}

func newHarness() *harness {
	h := &harness{
		apps:       newMemApplications(),
		payouts:    newMemPayouts(),
		complaints: newMemComplaints(),
		history:    &memHistory{},
		blobs:      &memBlobs{},
		parser:     &fakeParser{},
		sink:       &recordingSink{},
		metrics:    &recordingMetrics{},
	}
	h.svc = NewWorkflowService(Dependencies{
		Applications: h.apps,
		Payouts:      h.payouts,
		Complaints:   h.complaints,
		History:      h.history,
		Programs: memPrograms{
			"housing-support": {ID: "housing-support", Name: "Housing support", DefaultAmount: mustDecimal("2000000"), Active: true},
			"no-default":      {ID: "no-default", Name: "No default", Active: true},
		},
		Blobs:     h.blobs,
		Sniffer:   magicSniffer{},
		Parser:    h.parser,
		Codes:     &seqCodes{},
		Sink:      h.sink,
		TxManager: passTx{},
		Clock:     fixedClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		Metrics:   h.metrics,
	}, nopLogger{})
	return h
}
