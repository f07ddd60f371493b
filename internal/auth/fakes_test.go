package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	qt "github.com/frankban/quicktest"
	"golang.org/x/crypto/bcrypt"

	"github.com/eneogroup/elimu-app-backend/internal/config"
	"github.com/eneogroup/elimu-app-backend/internal/kvstore"
	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/queue"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// clock is a manually advanced time source shared by the store and the
// token manager.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSchools struct {
	byCode map[string]model.School
	err    error
}

func (f *fakeSchools) GetByCode(_ context.Context, code string) (model.School, error) {
	if f.err != nil {
		return model.School{}, f.err
	}
	s, ok := f.byCode[code]
	if !ok {
		return model.School{}, repository.ErrNotFound
	}
	return s, nil
}

type principalKey struct {
	school   uint64
	username string
}

type fakeCreds struct {
	mu       sync.Mutex
	home     map[principalKey]model.Principal
	enrolled map[principalKey]model.Principal
	err      error
	calls    int
}

func (f *fakeCreds) GetByUsername(_ context.Context, schoolID uint64, username string) (model.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return model.Principal{}, f.err
	}
	p, ok := f.home[principalKey{schoolID, username}]
	if !ok {
		return model.Principal{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeCreds) GetEnrolledByUsername(_ context.Context, schoolID uint64, username string) (model.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.enrolled[principalKey{schoolID, username}]
	if !ok {
		return model.Principal{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeCreds) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRefreshStore struct {
	mu   sync.Mutex
	rows map[string]model.RefreshToken
	now  func() time.Time
}

func newFakeRefreshStore(now func() time.Time) *fakeRefreshStore {
	return &fakeRefreshStore{rows: make(map[string]model.RefreshToken), now: now}
}

func (f *fakeRefreshStore) StoreRefresh(_ context.Context, t model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[t.JTI]; ok {
		return repository.ErrDuplicate
	}
	f.rows[t.JTI] = t
	return nil
}

func (f *fakeRefreshStore) GetRefresh(_ context.Context, jti string) (model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[jti]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeRefreshStore) RevokeRefresh(_ context.Context, jti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[jti]
	if !ok {
		return repository.ErrNotFound
	}
	now := f.now()
	t.RevokedAt = &now
	f.rows[jti] = t
	return nil
}

// recorder collects published security events.
type recorder struct {
	mu     sync.Mutex
	events []queue.SecurityEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) OfType(typ string) []queue.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []queue.SecurityEvent
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// brokenStore fails every operation.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errStoreDown
}
func (brokenStore) SetNX(context.Context, string, time.Duration) (bool, error) {
	return false, errStoreDown
}
func (brokenStore) Exists(context.Context, string) (bool, error)       { return false, errStoreDown }
func (brokenStore) TTL(context.Context, string) (time.Duration, error) { return 0, errStoreDown }
func (brokenStore) Del(context.Context, ...string) error               { return errStoreDown }

var testTokenConfig = config.TokenConfig{
	Secret:     "test-secret-0123456789abcdef0123456789",
	Issuer:     "elimu-test",
	AccessTTL:  15 * time.Minute,
	RefreshTTL: 24 * time.Hour,
}

// env bundles a fully wired service over in-memory fakes.
type env struct {
	clock   *clock
	kv      *kvstore.Memory
	schools *fakeSchools
	creds   *fakeCreds
	refresh *fakeRefreshStore
	events  *recorder
	guard   *BruteForceGuard
	tokens  *TokenManager
	svc     *Service
}

const testPassword = "correct horse battery staple"

func newEnv(c *qt.C) *env {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	c.Assert(err, qt.IsNil)

	clk := newClock()
	kv := kvstore.NewMemoryWithClock(clk.Now)
	e := &env{
		clock: clk,
		kv:    kv,
		schools: &fakeSchools{byCode: map[string]model.School{
			"LYC-01": {ID: 1, Code: "LYC-01", Name: "Lycée Savorgnan"},
			"CEG-02": {ID: 2, Code: "CEG-02", Name: "CEG Poto-Poto"},
		}},
		creds: &fakeCreds{
			home: map[principalKey]model.Principal{
				{1, "manager"}: {ID: 10, SchoolID: 1, Username: "manager", PasswordHash: string(hash), Role: model.RoleSchoolManager, IsActive: true},
				{1, "retired"}: {ID: 11, SchoolID: 1, Username: "retired", PasswordHash: string(hash), Role: model.RoleTeacher, IsActive: false},
				{2, "manager"}: {ID: 20, SchoolID: 2, Username: "manager", PasswordHash: string(hash), Role: model.RoleAdmin, IsActive: true},
			},
			enrolled: map[principalKey]model.Principal{
				// Student registered at school 2 and enrolled at school 1.
				{1, "pupil"}: {ID: 21, SchoolID: 2, Username: "pupil", PasswordHash: string(hash), Role: model.RoleStudent, IsActive: true},
			},
		},
		refresh: newFakeRefreshStore(clk.Now),
		events:  &recorder{},
	}
	e.guard = NewBruteForceGuard(NewAttemptLedger(kv, "auth"), config.DefaultBruteForce(), e.events, discardLogger)
	e.guard.now = clk.Now
	e.tokens = NewTokenManager(testTokenConfig, e.refresh, kv)
	e.tokens.now = clk.Now
	e.svc = NewService(e.schools, e.creds, e.guard, e.tokens, e.events, discardLogger)
	return e
}

func (e *env) login(code, username, password, ip string) (TokenPair, error) {
	return e.svc.Login(context.Background(), LoginRequest{
		SchoolCode: code, Username: username, Password: password, ClientIP: ip,
	})
}
