// Package session owns the authentication state of the running client: who is
// signed in, whether the persisted session has been checked yet, and the
// login/register/logout flows against the gateway.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"jotter/internal/gateway"
	"jotter/internal/models"
	"jotter/internal/observe"
)

// ErrSuperseded is returned by Login and Register when a newer session change
// (logout, reset, another login) landed while the call was in flight.
var ErrSuperseded = errors.New("superseded by a newer session change")

// State is where the manager is in checking the persisted session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Snapshot is the reactive view of the session consumers render from.
type Snapshot struct {
	State           State
	User            *models.User
	IsAuthenticated bool
	IsLoading       bool
	IsReady         bool
	Error           string
}

// Storage holds whatever the client persisted to remember the session.
type Storage interface {
	Clear() error
}

// Options tunes the timeouts. Zero fields take the DefaultOptions value.
type Options struct {
	LoginTimeout time.Duration
	LoadTimeout  time.Duration
	// EnsureWait bounds how long EnsureSessionLoaded waits on an in-flight load
	// before forcing a fresh one.
	EnsureWait   time.Duration
	PollInterval time.Duration
}

// DefaultOptions returns the production timeouts.
func DefaultOptions() Options {
	return Options{
		LoginTimeout: 15 * time.Second,
		LoadTimeout:  10 * time.Second,
		EnsureWait:   10 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}
}

// Manager is safe for concurrent use. Build it with NewManager.
type Manager struct {
	gw      gateway.Auth
	storage Storage
	log     *zap.Logger
	opts    Options
	hub     observe.Hub[Snapshot]

	mu            sync.Mutex
	state         State
	user          *models.User
	authenticated bool
	pending       int
	errMsg        string
	lastErr       error
	attempt       uint64
	settled       chan struct{}
}

// NewManager creates a manager in the Uninitialized state. storage may be nil.
func NewManager(gw gateway.Auth, storage Storage, log *zap.Logger, opts Options) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.LoginTimeout == 0 {
		opts.LoginTimeout = def.LoginTimeout
	}
	if opts.LoadTimeout == 0 {
		opts.LoadTimeout = def.LoadTimeout
	}
	if opts.EnsureWait == 0 {
		opts.EnsureWait = def.EnsureWait
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = def.PollInterval
	}
	return &Manager{gw: gw, storage: storage, log: log.Named("session"), opts: opts}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	var u *models.User
	if m.user != nil {
		cp := *m.user
		u = &cp
	}
	return Snapshot{
		State:           m.state,
		User:            u,
		IsAuthenticated: m.authenticated,
		IsLoading:       m.state == StateLoading || m.pending > 0,
		IsReady:         m.state == StateReady,
		Error:           m.errMsg,
	}
}

// User returns a copy of the cached profile, or nil when signed out.
func (m *Manager) User() *models.User { return m.Snapshot().User }

// Err returns the classified error of the last failed operation.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Subscribe calls fn with a fresh Snapshot after every change.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	return m.hub.Subscribe(fn)
}

func (m *Manager) notify() { m.hub.Publish(m.Snapshot()) }

// LoadUserSession checks the persisted session once. A call made while a load
// is in flight issues no gateway request and waits for that load instead.
// Once the session is ready further calls do nothing; use RetryAuth to re-run.
// On return the state is Ready unless ctx ended first or a reset intervened.
func (m *Manager) LoadUserSession(ctx context.Context) {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		m.mu.Unlock()
		return
	case StateLoading:
		m.mu.Unlock()
		m.waitSettled(ctx)
		return
	}
	attempt, settled := m.beginLoadLocked()
	m.mu.Unlock()

	m.notify()
	m.runLoad(ctx, attempt, settled)
}

// EnsureSessionLoaded makes sure a load has completed. If one is stuck in
// flight past EnsureWait, a fresh load replaces it.
func (m *Manager) EnsureSessionLoaded(ctx context.Context) {
	m.mu.Lock()
	st := m.state
	m.mu.Unlock()

	switch st {
	case StateReady:
		return
	case StateUninitialized:
		m.LoadUserSession(ctx)
		return
	}

	if m.pollReady(ctx) || ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	if m.state == StateReady {
		m.mu.Unlock()
		return
	}
	if m.pending > 0 {
		// A login or register owns the in-flight state; it settles on its own
		// timeout.
		m.mu.Unlock()
		m.waitSettled(ctx)
		return
	}
	m.log.Warn("session load still pending; starting a fresh one", zap.Duration("waited", m.opts.EnsureWait))
	attempt, settled := m.beginLoadLocked()
	m.mu.Unlock()

	m.notify()
	m.runLoad(ctx, attempt, settled)
}

func (m *Manager) pollReady(ctx context.Context) bool {
	deadline := time.NewTimer(m.opts.EnsureWait)
	defer deadline.Stop()
	tick := time.NewTicker(m.opts.PollInterval)
	defer tick.Stop()

	for {
		if m.Snapshot().IsReady {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return m.Snapshot().IsReady
		case <-tick.C:
		}
	}
}

// waitSettled blocks until no load is in flight. A load replaced by a newer
// one releases its waiters, so the state is re-checked each time.
func (m *Manager) waitSettled(ctx context.Context) {
	for {
		m.mu.Lock()
		if m.state != StateLoading {
			m.mu.Unlock()
			return
		}
		settled := m.settled
		m.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) beginLoadLocked() (uint64, chan struct{}) {
	m.attempt++
	m.state = StateLoading
	m.errMsg = ""
	m.lastErr = nil
	m.settled = make(chan struct{})
	return m.attempt, m.settled
}

func (m *Manager) runLoad(ctx context.Context, attempt uint64, settled chan struct{}) {
	defer close(settled)

	user, err := gateway.Call(ctx, m.opts.LoadTimeout, m.gw.CurrentUser)

	m.mu.Lock()
	if attempt != m.attempt {
		m.mu.Unlock()
		m.log.Debug("dropping superseded session load", zap.Uint64("attempt", attempt))
		return
	}
	m.state = StateReady
	switch {
	case err != nil:
		m.user, m.authenticated = nil, false
		m.setErrLocked(err)
	case user == nil:
		m.user, m.authenticated = nil, false
	default:
		m.user, m.authenticated = user, true
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("session load failed", zap.Error(err))
		if gateway.IsSessionExpired(err) {
			m.clearStorage()
		}
	}
	m.notify()
}

// Login signs in and caches the profile. An account without a profile is
// reported with gateway.ErrProfileNotFound but the gateway session is kept, so
// saving a profile and reloading recovers it.
func (m *Manager) Login(ctx context.Context, c gateway.Credentials) (*models.User, error) {
	attempt, settled := m.beginAuthOp()
	defer m.endAuthOp(settled)

	res, err := gateway.Call(ctx, m.opts.LoginTimeout, func(ctx context.Context) (gateway.AuthResult, error) {
		return m.gw.SignIn(ctx, c)
	})
	if err != nil {
		return nil, m.failAuth(attempt, fmt.Errorf("login: %w", err))
	}
	if res.User == nil {
		return nil, m.failAuth(attempt, fmt.Errorf("login: %w", gateway.ErrProfileNotFound))
	}
	return m.succeedAuth(attempt, res.User)
}

// Register creates the account. Unlike Login, a missing profile is fatal: the
// account is unusable, so the gateway session is dropped.
func (m *Manager) Register(ctx context.Context, r gateway.Registration) (*models.User, error) {
	attempt, settled := m.beginAuthOp()
	defer m.endAuthOp(settled)

	res, err := gateway.Call(ctx, m.opts.LoginTimeout, func(ctx context.Context) (gateway.AuthResult, error) {
		return m.gw.SignUp(ctx, r)
	})
	if err != nil {
		return nil, m.failAuth(attempt, fmt.Errorf("register: %w", err))
	}
	if res.User == nil {
		if err := m.gw.SignOut(ctx); err != nil {
			m.log.Warn("sign out after profile-less registration failed", zap.Error(err))
		}
		m.clearStorage()
		return nil, m.failAuth(attempt, fmt.Errorf("register: %w", gateway.ErrProfileNotFound))
	}
	return m.succeedAuth(attempt, res.User)
}

// beginAuthOp marks a login or register as in flight. Before the first load
// has settled the state becomes Loading, so a concurrent LoadUserSession waits
// for the auth op instead of superseding it.
func (m *Manager) beginAuthOp() (uint64, chan struct{}) {
	m.mu.Lock()
	m.attempt++
	m.pending++
	if m.state != StateReady {
		m.state = StateLoading
	}
	m.errMsg = ""
	m.lastErr = nil
	attempt := m.attempt
	m.settled = make(chan struct{})
	settled := m.settled
	m.mu.Unlock()
	m.notify()
	return attempt, settled
}

func (m *Manager) endAuthOp(settled chan struct{}) {
	m.mu.Lock()
	m.pending--
	m.mu.Unlock()
	close(settled)
	m.notify()
}

func (m *Manager) succeedAuth(attempt uint64, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempt != m.attempt {
		return nil, ErrSuperseded
	}
	m.state = StateReady
	m.user, m.authenticated = u, true
	cp := *u
	return &cp, nil
}

func (m *Manager) failAuth(attempt uint64, err error) error {
	m.log.Warn("authentication failed", zap.Error(err))
	m.mu.Lock()
	defer m.mu.Unlock()
	if attempt != m.attempt {
		return err
	}
	m.state = StateReady
	m.user, m.authenticated = nil, false
	m.setErrLocked(err)
	return err
}

func (m *Manager) setErrLocked(err error) {
	m.lastErr = err
	m.errMsg = gateway.UserMessage(err)
}

// Logout always succeeds for the caller. Local state is cleared first, then
// persisted artifacts, then the gateway is told.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.attempt++
	m.user, m.authenticated = nil, false
	m.errMsg, m.lastErr = "", nil
	m.state = StateReady
	m.mu.Unlock()
	m.notify()

	m.clearStorage()
	if err := m.gw.SignOut(ctx); err != nil {
		m.log.Warn("gateway sign out failed", zap.Error(err))
	}
}

// ResetAuthState forgets everything, including persisted artifacts, and puts
// the manager back to Uninitialized.
func (m *Manager) ResetAuthState() {
	m.mu.Lock()
	m.attempt++
	m.state = StateUninitialized
	m.user, m.authenticated = nil, false
	m.errMsg, m.lastErr = "", nil
	m.mu.Unlock()

	m.clearStorage()
	m.notify()
}

// RetryAuth resets and then loads the session again.
func (m *Manager) RetryAuth(ctx context.Context) {
	m.ResetAuthState()
	m.LoadUserSession(ctx)
}

// HandleError lets consumers route a failure from elsewhere (typically the
// journal store) through the session: an expired session signs the user out
// locally and reports true so the caller can send them to login.
func (m *Manager) HandleError(err error) bool {
	if !gateway.IsSessionExpired(err) {
		return false
	}
	m.mu.Lock()
	m.attempt++
	m.user, m.authenticated = nil, false
	m.state = StateReady
	m.setErrLocked(err)
	m.mu.Unlock()

	m.clearStorage()
	m.notify()
	return true
}

func (m *Manager) clearStorage() {
	if m.storage == nil {
		return
	}
	if err := m.storage.Clear(); err != nil {
		m.log.Warn("clearing persisted session failed", zap.Error(err))
	}
}
