package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/saos/service-desk/internal/config"
	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/events"
	"github.com/saos/service-desk/internal/mailer"
	"github.com/saos/service-desk/internal/repository"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func testLifecycleConfig() config.LifecycleConfig {
	return config.LifecycleConfig{
		OpenStatusID:           1,
		ClosedStatusID:         7,
		TerminalStatusIDs:      []int64{6, 7, 8},
		UrgentWindowHours:      24,
		DefaultSLAHours:        72,
		DefaultEscalationHours: 48,
	}
}

// store is a shared in-memory backing for the fake repositories.
type store struct {
	mu         sync.Mutex
	requests   map[int64]domain.Request
	history    []domain.HistoryEntry
	comments   []domain.Comment
	users      map[int64]domain.User
	templates  map[int64]domain.EmailTemplate
	statuses   map[int64]domain.Status
	priorities map[int64]domain.Priority
	categories map[int64]domain.Category
	nextID     int64
}

func newStore() *store {
	s := &store{
		requests:  map[int64]domain.Request{},
		users:     map[int64]domain.User{},
		templates: map[int64]domain.EmailTemplate{},
		statuses: map[int64]domain.Status{
			1: {ID: 1, Name: "Aberto", Color: "#3B82F6", Order: 1, Active: true},
			2: {ID: 2, Name: "Em Análise", Color: "#F59E0B", Order: 2, Active: true},
			3: {ID: 3, Name: "Em Andamento", Color: "#8B5CF6", Order: 3, Active: true},
			6: {ID: 6, Name: "Resolvido", Color: "#10B981", Order: 6, Finalizing: true, Active: true},
			7: {ID: 7, Name: "Fechado", Color: "#6B7280", Order: 7, Finalizing: true, Active: true},
			8: {ID: 8, Name: "Cancelado", Color: "#EF4444", Order: 8, Finalizing: true, Active: true},
		},
		priorities: map[int64]domain.Priority{
			1: {ID: 1, Name: "Baixa", Order: 1, SLAHours: 72, EscalationHours: 48, Active: true},
			2: {ID: 2, Name: "Média", Order: 2, SLAHours: 48, EscalationHours: 24, Active: true},
			3: {ID: 3, Name: "Alta", Order: 3, SLAHours: 24, EscalationHours: 12, Active: true},
		},
		categories: map[int64]domain.Category{
			1: {ID: 1, Name: "Suporte", Active: true},
		},
	}
	s.users[10] = domain.User{ID: 10, Name: "Maria Cliente", Email: "maria@example.com", Role: domain.RoleClient, Active: true}
	s.users[20] = domain.User{ID: 20, Name: "João Técnico", Email: "joao@example.com", Role: domain.RoleTechnician, Active: true}
	s.users[30] = domain.User{ID: 30, Name: "Ana Admin", Email: "ana@example.com", Role: domain.RoleAdmin, Active: true}
	s.nextID = 100
	return s
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) historyFor(requestID int64) []domain.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.HistoryEntry
	for _, h := range s.history {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	return out
}

func (s *store) detail(r domain.Request) domain.RequestDetail {
	d := domain.RequestDetail{Request: r}
	if u, ok := s.users[r.ClientID]; ok {
		d.ClientName = u.Name
		d.ClientEmail = u.Email
	}
	d.CategoryName = s.categories[r.CategoryID].Name
	d.PriorityName = s.priorities[r.PriorityID].Name
	d.StatusName = s.statuses[r.StatusID].Name
	d.StatusColor = s.statuses[r.StatusID].Color
	if r.TechnicianID != nil {
		if u, ok := s.users[*r.TechnicianID]; ok {
			d.TechnicianName = ptr(u.Name)
			d.TechnicianEmail = ptr(u.Email)
		}
	}
	return d
}

type fakeTx struct {
	calls int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.calls++
	return fn(nil)
}

type fakeRequestRepo struct {
	s *store
	// createErrs are returned by successive Create calls before normal behaviour resumes.
	createErrs []error
	creates    int
}

func (r *fakeRequestRepo) Create(_ context.Context, _ pgx.Tx, req *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.creates++
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		return err
	}
	for _, existing := range r.s.requests {
		if existing.ReferenceCode == req.ReferenceCode {
			return repository.ErrDuplicateReference
		}
	}
	req.ID = r.s.id()
	r.s.requests[req.ID] = *req
	return nil
}

func (r *fakeRequestRepo) Update(_ context.Context, _ pgx.Tx, req *domain.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[req.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.requests[req.ID] = *req
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id int64) (*domain.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &req, nil
}

func (r *fakeRequestRepo) GetDetail(_ context.Context, id int64) (*domain.RequestDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	d := r.s.detail(req)
	return &d, nil
}

func (r *fakeRequestRepo) GetDetailByReference(_ context.Context, code string) (*domain.RequestDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		if req.ReferenceCode == code {
			d := r.s.detail(req)
			return &d, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRequestRepo) List(_ context.Context, filter repository.RequestFilter) ([]domain.RequestDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.RequestDetail
	for _, req := range r.s.requests {
		if filter.ClientID != nil && req.ClientID != *filter.ClientID {
			continue
		}
		if filter.StatusID != nil && req.StatusID != *filter.StatusID {
			continue
		}
		out = append(out, r.s.detail(req))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeRequestRepo) flagged(pred func(domain.Request) bool, limit int) []domain.RequestDetail {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.RequestDetail
	for _, req := range r.s.requests {
		if pred(req) {
			out = append(out, r.s.detail(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResolutionDeadline.Before(*out[j].ResolutionDeadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakeRequestRepo) ListUrgent(_ context.Context, now, until time.Time, terminal []int64, limit int) ([]domain.RequestDetail, error) {
	return r.flagged(func(req domain.Request) bool {
		return req.IsUrgent(now, until.Sub(now), terminal)
	}, limit), nil
}

func (r *fakeRequestRepo) ListOverdue(_ context.Context, now time.Time, terminal []int64, limit int) ([]domain.RequestDetail, error) {
	return r.flagged(func(req domain.Request) bool {
		return req.IsOverdue(now, terminal)
	}, limit), nil
}

func (r *fakeRequestRepo) CountByReferencePrefix(_ context.Context, prefix string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, req := range r.s.requests {
		if strings.HasPrefix(req.ReferenceCode, prefix) {
			n++
		}
	}
	return n, nil
}

type fakeHistoryRepo struct {
	s *store
}

func (h *fakeHistoryRepo) Create(_ context.Context, _ pgx.Tx, entry *domain.HistoryEntry) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	entry.ID = h.s.id()
	h.s.history = append(h.s.history, *entry)
	return nil
}

func (h *fakeHistoryRepo) ListByRequest(_ context.Context, requestID int64, _ int) ([]domain.HistoryEntry, error) {
	out := h.s.historyFor(requestID)
	slices.Reverse(out)
	return out, nil
}

func (h *fakeHistoryRepo) List(_ context.Context, filter repository.HistoryFilter) ([]domain.HistoryEntry, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	var out []domain.HistoryEntry
	for _, e := range h.s.history {
		if filter.Action != nil && e.Action != *filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeCommentRepo struct {
	s *store
}

func (c *fakeCommentRepo) Create(_ context.Context, _ pgx.Tx, comment *domain.Comment) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	comment.ID = c.s.id()
	c.s.comments = append(c.s.comments, *comment)
	return nil
}

func (c *fakeCommentRepo) ListByRequest(_ context.Context, requestID int64, includeInternal bool) ([]domain.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []domain.Comment
	for _, cm := range c.s.comments {
		if cm.RequestID != requestID || (cm.Internal && !includeInternal) {
			continue
		}
		out = append(out, cm)
	}
	return out, nil
}

type fakeCatalogRepo struct {
	s *store
}

func (c *fakeCatalogRepo) GetPriority(_ context.Context, id int64) (*domain.Priority, error) {
	p, ok := c.s.priorities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (c *fakeCatalogRepo) GetStatus(_ context.Context, id int64) (*domain.Status, error) {
	st, ok := c.s.statuses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &st, nil
}

func (c *fakeCatalogRepo) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	cat, ok := c.s.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &cat, nil
}

func (c *fakeCatalogRepo) ListPriorities(context.Context, bool) ([]domain.Priority, error) {
	return nil, nil
}

func (c *fakeCatalogRepo) ListStatuses(context.Context, bool) ([]domain.Status, error) {
	return nil, nil
}

func (c *fakeCatalogRepo) ListCategories(context.Context, bool) ([]domain.Category, error) {
	return nil, nil
}

type fakeUserRepo struct {
	s       *store
	touched []int64
}

func (u *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateUser
		}
	}
	user.ID = u.s.id()
	u.s.users[user.ID] = *user
	return nil
}

func (u *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	u.s.users[user.ID] = *user
	return nil
}

func (u *fakeUserRepo) find(pred func(domain.User) bool) (*domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if pred(user) {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (u *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return u.find(func(user domain.User) bool { return user.ID == id })
}

func (u *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return u.find(func(user domain.User) bool { return user.Email == email })
}

func (u *fakeUserRepo) GetByTaxID(_ context.Context, taxID string) (*domain.User, error) {
	return u.find(func(user domain.User) bool { return user.TaxID != nil && *user.TaxID == taxID })
}

func (u *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var out []domain.User
	for _, user := range u.s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.ActiveOnly && !user.Active {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (u *fakeUserRepo) TouchLastAccess(_ context.Context, id int64, _ time.Time) error {
	u.touched = append(u.touched, id)
	return nil
}

type fakeTemplateRepo struct {
	s *store
}

func (t *fakeTemplateRepo) List(_ context.Context, activeOnly bool) ([]domain.EmailTemplate, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var out []domain.EmailTemplate
	for _, tpl := range t.s.templates {
		if activeOnly && !tpl.Active {
			continue
		}
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *fakeTemplateRepo) GetByID(_ context.Context, id int64) (*domain.EmailTemplate, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tpl, ok := t.s.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &tpl, nil
}

func (t *fakeTemplateRepo) GetByName(_ context.Context, name string) (*domain.EmailTemplate, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, tpl := range t.s.templates {
		if tpl.Name == name && tpl.Active {
			return &tpl, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (t *fakeTemplateRepo) Create(_ context.Context, tpl *domain.EmailTemplate) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, existing := range t.s.templates {
		if existing.Active && tpl.Active && existing.Name == tpl.Name {
			return repository.ErrDuplicateTemplateName
		}
	}
	tpl.ID = t.s.id()
	t.s.templates[tpl.ID] = *tpl
	return nil
}

func (t *fakeTemplateRepo) Update(_ context.Context, tpl *domain.EmailTemplate) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.templates[tpl.ID]; !ok {
		return pgx.ErrNoRows
	}
	t.s.templates[tpl.ID] = *tpl
	return nil
}

func (t *fakeTemplateRepo) SetActive(_ context.Context, id int64, active bool, at time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tpl, ok := t.s.templates[id]
	if !ok {
		return pgx.ErrNoRows
	}
	tpl.Active = active
	tpl.UpdatedAt = at
	t.s.templates[id] = tpl
	return nil
}

// fakeDashboardRepo derives its rollups from the shared store.
type fakeDashboardRepo struct {
	s *store
}

func (d *fakeDashboardRepo) CountAll(context.Context) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return int64(len(d.s.requests)), nil
}

func (d *fakeDashboardRepo) CountByStatus(context.Context) ([]domain.GroupCount, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var out []domain.GroupCount
	for _, st := range d.s.statuses {
		g := domain.GroupCount{ID: st.ID, Name: st.Name, Color: st.Color}
		for _, r := range d.s.requests {
			if r.StatusID == st.ID {
				g.Count++
			}
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *fakeDashboardRepo) CountByPriority(context.Context) ([]domain.GroupCount, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var out []domain.GroupCount
	for _, p := range d.s.priorities {
		g := domain.GroupCount{ID: p.ID, Name: p.Name}
		for _, r := range d.s.requests {
			if r.PriorityID == p.ID {
				g.Count++
			}
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *fakeDashboardRepo) CountUrgent(_ context.Context, now, until time.Time, terminal []int64) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var n int64
	for _, r := range d.s.requests {
		if r.IsUrgent(now, until.Sub(now), terminal) {
			n++
		}
	}
	return n, nil
}

func (d *fakeDashboardRepo) CountOverdue(_ context.Context, now time.Time, terminal []int64) (int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var n int64
	for _, r := range d.s.requests {
		if r.IsOverdue(now, terminal) {
			n++
		}
	}
	return n, nil
}

func (d *fakeDashboardRepo) AdminStats(context.Context) (*domain.AdminStats, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	stats := &domain.AdminStats{
		ActiveCategories: int64(len(d.s.categories)),
		ActiveStatuses:   int64(len(d.s.statuses)),
	}
	for _, u := range d.s.users {
		if u.Active {
			stats.ActiveUsers++
		}
	}
	for _, t := range d.s.templates {
		if t.Active {
			stats.ActiveTemplates++
		}
	}
	return stats, nil
}

// fixedSequencer returns successive values from seq, then keeps counting.
type fixedSequencer struct {
	seq  []int
	next int
}

func (f *fixedSequencer) Next(context.Context, string) (int, error) {
	if len(f.seq) > 0 {
		v := f.seq[0]
		f.seq = f.seq[1:]
		f.next = v + 1
		return v, nil
	}
	f.next++
	return f.next - 1, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	ok   bool
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{ok: true}
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.ok
}

type recordingDispatcher struct {
	events   []events.Event
	handlers map[events.EventType][]events.EventHandler
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.events = append(d.events, event)
	for _, h := range d.handlers[event.Type] {
		_ = h(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	if d.handlers == nil {
		d.handlers = map[events.EventType][]events.EventHandler{}
	}
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) types() []events.EventType {
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type lifecycleFixture struct {
	store      *store
	requests   *fakeRequestRepo
	tx         *fakeTx
	users      *fakeUserRepo
	dispatcher *recordingDispatcher
	now        *time.Time
	svc        *LifecycleService
}

func newLifecycleFixture() *lifecycleFixture {
	st := newStore()
	now := baseTime
	f := &lifecycleFixture{
		store:      st,
		requests:   &fakeRequestRepo{s: st},
		tx:         &fakeTx{},
		users:      &fakeUserRepo{s: st},
		dispatcher: &recordingDispatcher{},
		now:        &now,
	}
	f.svc = NewLifecycleService(LifecycleDependencies{
		RequestRepo: f.requests,
		HistoryRepo: &fakeHistoryRepo{s: st},
		CatalogRepo: &fakeCatalogRepo{s: st},
		UserRepo:    f.users,
		TxManager:   f.tx,
		Dispatcher:  f.dispatcher,
		Config:      testLifecycleConfig(),
		Clock:       func() time.Time { return *f.now },
	})
	return f
}

func (f *lifecycleFixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func validCreateInput() CreateRequestInput {
	return CreateRequestInput{
		Title:       "Erro ao emitir nota",
		Description: "O sistema retorna erro 500 ao emitir a nota fiscal",
		ClientID:    10,
		CategoryID:  1,
		PriorityID:  2,
	}
}
