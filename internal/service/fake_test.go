package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/threadline/backend/internal/config"
	"github.com/threadline/backend/internal/model"
	"github.com/threadline/backend/internal/ratelimit"
	"github.com/threadline/backend/internal/vote"
)

// memStore is an in-memory stand-in for db.Postgres.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*model.User
	comments    map[int64]*model.Comment
	nextComment int64
	reports     map[string]*model.Report
	audit       []model.ModerationAction
	webhooks    map[int]model.WebhookConfig
	nextWebhook int
	getUserErr  error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*model.User{},
		comments: map[int64]*model.Comment{},
		reports:  map[string]*model.Report{},
		webhooks: map[int]model.WebhookConfig{},
	}
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	if u.MutedUntil != nil {
		t := *u.MutedUntil
		cp.MutedUntil = &t
	}
	return &cp
}

func cloneComment(c *model.Comment) *model.Comment {
	cp := *c
	cp.Votes = vote.Ledger{}
	for k, v := range c.Votes {
		cp.Votes[k] = v
	}
	return &cp
}

func (m *memStore) GetUser(_ context.Context, id model.Identity) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getUserErr != nil {
		return nil, m.getUserErr
	}
	u, ok := m.users[id.Key()]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneUser(u), nil
}

func (m *memStore) UpsertUserProfile(_ context.Context, ext model.ExternalIdentity) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[ext.Identity.Key()]
	if !ok {
		u = model.DefaultUser(ext.Identity)
		u.ID = int64(len(m.users) + 1)
		m.users[ext.Identity.Key()] = u
	}
	u.Username = ext.Username
	u.AvatarURL = ext.AvatarURL
	return cloneUser(u), nil
}

func (m *memStore) EnsureRole(_ context.Context, id model.Identity, role model.Role) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id.Key()]
	if !ok {
		u = model.DefaultUser(id)
		u.ID = int64(len(m.users) + 1)
		m.users[id.Key()] = u
	}
	u.Role = role
	return cloneUser(u), nil
}

func (m *memStore) UpdateUser(_ context.Context, id model.Identity, fn func(*model.User) error, audit *model.ModerationAction) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id.Key()]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := cloneUser(u)
	if err := fn(cp); err != nil {
		return nil, err
	}
	if cp.WarningCount < 0 {
		cp.WarningCount = 0
	}
	m.users[id.Key()] = cp
	m.recordAudit(audit)
	return cloneUser(cp), nil
}

func (m *memStore) GetUserStats(_ context.Context, id model.Identity) (model.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := model.UserStats{Identity: id}
	for _, c := range m.comments {
		if c.Author != id || c.Deleted {
			continue
		}
		stats.Comments++
		stats.UpvotesReceived += int64(c.Tally.Upvotes)
		stats.DownvotesReceived += int64(c.Tally.Downvotes)
	}
	for _, r := range m.reports {
		if r.Reporter == id {
			stats.ReportsFiled++
		}
	}
	return stats, nil
}

func (m *memStore) recordAudit(a *model.ModerationAction) {
	if a == nil {
		return
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	m.audit = append(m.audit, *a)
}

func (m *memStore) CreateComment(_ context.Context, c *model.Comment) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextComment++
	cp := cloneComment(c)
	cp.ID = m.nextComment
	cp.CreatedAt = time.Now().Add(time.Duration(cp.ID) * time.Millisecond)
	cp.UpdatedAt = cp.CreatedAt
	m.comments[cp.ID] = cp
	return cloneComment(cp), nil
}

func (m *memStore) GetComment(_ context.Context, id int64) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneComment(c), nil
}

func (m *memStore) ListComments(_ context.Context, q model.CommentQuery) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Comment
	for _, c := range m.comments {
		if c.MediaType != q.MediaType || c.MediaID != q.MediaID || c.Deleted {
			continue
		}
		if c.ShadowHidden && !q.IncludeHidden && c.Author != q.Viewer {
			continue
		}
		out = append(out, *cloneComment(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		switch q.Sort {
		case model.SortOld:
			return out[i].ID < out[j].ID
		case model.SortTop:
			if out[i].Tally.Score != out[j].Tally.Score {
				return out[i].Tally.Score > out[j].Tally.Score
			}
		}
		return out[i].ID > out[j].ID
	})
	if q.Offset >= len(out) {
		return []model.Comment{}, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) UpdateComment(_ context.Context, id int64, fn func(*model.Comment) error, audit *model.ModerationAction) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := cloneComment(c)
	if err := fn(cp); err != nil {
		return nil, err
	}
	cp.Version++
	m.comments[id] = cp
	m.recordAudit(audit)
	return cloneComment(cp), nil
}

func (m *memStore) MutateVotes(_ context.Context, id int64, fn func(*model.Comment) error) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := cloneComment(c)
	if err := fn(cp); err != nil {
		return nil, err
	}
	cp.Tally = cp.Votes.Tally()
	cp.Version++
	m.comments[id] = cp
	return cloneComment(cp), nil
}

func (m *memStore) CreateReport(_ context.Context, r *model.Report) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reports {
		if existing.CommentID == r.CommentID && existing.Reporter == r.Reporter {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	cp := *r
	cp.ID = uuid.NewString()
	cp.Status = model.ReportPending
	cp.CreatedAt = time.Now().Add(time.Duration(len(m.reports)) * time.Millisecond)
	m.reports[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetReport(_ context.Context, id string) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) UpdateReport(_ context.Context, id string, fn func(*model.Report) error, audit *model.ModerationAction) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	if err := fn(&cp); err != nil {
		return nil, err
	}
	m.reports[id] = &cp
	m.recordAudit(audit)
	out := cp
	return &out, nil
}

func (m *memStore) ListReportQueue(_ context.Context, status model.ReportStatus, limit, offset int) ([]model.ReportedComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ReportedComment
	for _, r := range m.reports {
		if r.Status != status {
			continue
		}
		out = append(out, model.ReportedComment{Report: *r, Comment: *cloneComment(m.comments[r.CommentID])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Report.CreatedAt.Before(out[j].Report.CreatedAt) })
	if offset >= len(out) {
		return []model.ReportedComment{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListModerationActions(_ context.Context, limit, offset int) ([]model.ModerationAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ModerationAction, 0, len(m.audit))
	for i := len(m.audit) - 1; i >= 0; i-- {
		out = append(out, m.audit[i])
	}
	if offset >= len(out) {
		return []model.ModerationAction{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetWebhookConfigs(_ context.Context) ([]model.WebhookConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.WebhookConfig{}
	for _, cfg := range m.webhooks {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetWebhookConfigByID(_ context.Context, id int) (*model.WebhookConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.webhooks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &cfg, nil
}

func (m *memStore) CreateWebhookConfig(_ context.Context, cfg model.WebhookConfig) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextWebhook++
	cfg.ID = m.nextWebhook
	m.webhooks[cfg.ID] = cfg
	return cfg.ID, nil
}

func (m *memStore) UpdateWebhookConfig(_ context.Context, id int, cfg model.WebhookConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.webhooks[id]; !ok {
		return pgx.ErrNoRows
	}
	cfg.ID = id
	m.webhooks[id] = cfg
	return nil
}

func (m *memStore) DeleteWebhookConfig(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.webhooks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.webhooks, id)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recordingNotifier) Notify(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recordingNotifier) last() model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var (
	alice = model.Identity{SubjectID: "100", Provider: model.ProviderDiscord}
	bob   = model.Identity{SubjectID: "200", Provider: model.ProviderGoogle}
	carol = model.Identity{SubjectID: "300", Provider: model.ProviderDiscord}
	mod   = model.Identity{SubjectID: "400", Provider: model.ProviderDiscord}
	admin = model.Identity{SubjectID: "500", Provider: model.ProviderGoogle}
	boss  = model.Identity{SubjectID: "600", Provider: model.ProviderDiscord}
)

type harness struct {
	store      *memStore
	notifier   *recordingNotifier
	roles      *RoleResolver
	comments   *CommentService
	moderation *ModerationService
	users      *UserService
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	notifier := &recordingNotifier{}
	roles := NewRoleResolver(store)
	log := quietLogger()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	moderation := NewModerationService(store, store, store, roles, notifier, 3, log)
	moderation.now = func() time.Time { return now }

	limits := Limits{Limiter: ratelimit.NewInMemory(time.Minute), Comments: 5, Votes: 60, Reports: 10}
	policy := config.PolicyConfig{AllowSelfVote: true, MaxCommentLength: 50, WarningThreshold: 3}
	comments := NewCommentService(store, store, roles, moderation, limits, policy, notifier, log)
	comments.now = func() time.Time { return now }

	h := &harness{
		store:      store,
		notifier:   notifier,
		roles:      roles,
		comments:   comments,
		moderation: moderation,
		users:      NewUserService(store, roles, 3),
		now:        now,
	}
	h.addUser(alice, model.RoleUser)
	h.addUser(bob, model.RoleUser)
	h.addUser(carol, model.RoleUser)
	h.addUser(mod, model.RoleModerator)
	h.addUser(admin, model.RoleAdmin)
	h.addUser(boss, model.RoleSuperAdmin)
	return h
}

func (h *harness) addUser(id model.Identity, role model.Role, mutate ...func(*model.User)) {
	u := model.DefaultUser(id)
	u.ID = int64(len(h.store.users) + 1)
	u.Role = role
	u.Username = "user-" + id.SubjectID
	for _, fn := range mutate {
		fn(u)
	}
	h.store.users[id.Key()] = u
}

func (h *harness) user(id model.Identity) *model.User {
	return cloneUser(h.store.users[id.Key()])
}

func (h *harness) comment(t *testing.T, author model.Identity, content string) *model.CommentResponse {
	t.Helper()
	c, err := h.comments.Create(context.Background(), author, model.CreateCommentRequest{
		MediaType: "movie",
		MediaID:   "550",
		Content:   content,
	})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}
