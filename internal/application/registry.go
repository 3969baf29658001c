package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/bnema/chatlink/internal/syncx"
	"github.com/rs/zerolog"
)

// Registry owns one Session per configured account and reconciles that set
// against the configuration store.
type Registry struct {
	store   ports.ConfigurationStore
	secrets ports.SecretStore
	deps    SessionDeps
	opts    SessionOptions
	logger  zerolog.Logger

	// reconcileLock bounds how long Update waits for a running
	// reconciliation; after LockTimeout it proceeds anyway.
	reconcileLock syncx.TimedMutex

	mu       sync.RWMutex
	sessions map[domain.AccountID]*Session
}

func NewRegistry(deps SessionDeps, secrets ports.SecretStore, opts SessionOptions) (*Registry, error) {
	if deps.Store == nil {
		return nil, errors.New("configuration store is nil")
	}
	if deps.Bus == nil {
		return nil, errors.New("event bus is nil")
	}

	return &Registry{
		store:    deps.Store,
		secrets:  secrets,
		deps:     deps,
		opts:     opts.withDefaults(),
		logger:   deps.Logger,
		sessions: map[domain.AccountID]*Session{},
	}, nil
}

// Update converges the live sessions to the configuration store. Failures
// are reported as events or log lines, never returned.
func (r *Registry) Update(ctx context.Context) {
	release, ok := r.reconcileLock.Acquire(r.opts.LockTimeout)
	if !ok {
		r.logger.Warn().Dur("timeout", r.opts.LockTimeout).Msg("registry lock wait timed out, proceeding without it")
	}
	defer release()

	accounts, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("list accounts")
		return
	}

	presence, err := r.store.Presence(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("read presence, assuming available")
		presence = domain.PresenceAvailable
	}

	configured := make(map[domain.AccountID]struct{}, len(accounts))
	for _, account := range accounts {
		configured[account.ID] = struct{}{}
	}
	for _, session := range r.removeObsolete(configured) {
		r.logger.Debug().Str("account", string(session.ID())).Msg("account removed, tearing down session")
		session.Close(ctx)
	}

	for _, account := range accounts {
		password := r.resolvePassword(ctx, account)
		if !account.IsValid(password) {
			if !account.ForceDisabled {
				r.publish(domain.NewErrorEvent(account.ID, domain.FailureInvalidSettings, domain.PolicyDeactivate, fmt.Sprintf("account %q is incomplete", account.Title)))
			}
			continue
		}

		params := domain.ParamsFor(account, password, presence)
		if account.SettingsChanged {
			r.resetChanged(ctx, account.ID)
		}
		if params.RequestHardwareStandby && params.State == domain.AccountStateEnabled && !r.hardwareSlotAvailable(ctx, account.ID) {
			r.publish(domain.NewErrorEvent(account.ID, domain.FailureNoHardwareSlotsAllowed, domain.PolicyDeactivate, "no hardware standby slot available"))
			continue
		}

		session, created, err := r.sessionFor(account.ID)
		if err != nil {
			r.logger.Error().Err(err).Str("account", string(account.ID)).Msg("create session")
			r.publish(domain.NewErrorEvent(account.ID, domain.FailureInvalidConnectionID, domain.PolicyDeactivate, err.Error()))
			continue
		}
		if created {
			r.logger.Debug().Str("account", string(account.ID)).Str("title", account.Title).Msg("session added")
			params.UpdatedSettings = true
		}

		session.Update(ctx, params)
	}
}

func (r *Registry) removeObsolete(configured map[domain.AccountID]struct{}) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Session
	for id, session := range r.sessions {
		if _, ok := configured[id]; ok {
			continue
		}
		delete(r.sessions, id)
		removed = append(removed, session)
	}
	return removed
}

func (r *Registry) sessionFor(id domain.AccountID) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[id]; ok {
		return session, false, nil
	}

	session, err := NewSession(id, r.deps, r.opts)
	if err != nil {
		return nil, false, err
	}
	r.sessions[id] = session
	return session, true, nil
}

func (r *Registry) resolvePassword(ctx context.Context, account domain.AccountConfig) string {
	if r.secrets == nil || account.CredentialRef == "" {
		return ""
	}

	password, err := r.secrets.Get(ctx, account.CredentialRef)
	if err != nil {
		if !errors.Is(err, domain.ErrSecretNotFound) {
			r.logger.Warn().Err(err).Str("account", string(account.ID)).Msg("resolve credential")
		}
		return ""
	}
	return password
}

// resetChanged clears the dirty flag as soon as the entry has been read, so
// an edit saved while the session applies it marks the entry dirty again.
func (r *Registry) resetChanged(ctx context.Context, id domain.AccountID) {
	if err := r.store.ResetChanged(ctx, id); err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		r.logger.Warn().Err(err).Str("account", string(id)).Msg("reset changed flag")
	}
}

func (r *Registry) hardwareSlotAvailable(ctx context.Context, id domain.AccountID) bool {
	if r.deps.Standby == nil {
		return false
	}
	return r.deps.Standby.AvailableHardwareSlots(ctx, id) > 0
}

func (r *Registry) publish(event domain.Event) {
	if !r.deps.Bus.Publish(event) {
		r.logger.Debug().Str("event", event.String()).Msg("event bus closed, dropping event")
	}
}

func (r *Registry) session(id domain.AccountID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Send returns false when the account has no session or is not connected.
func (r *Registry) Send(id domain.AccountID, payload string) bool {
	session, ok := r.session(id)
	if !ok {
		return false
	}
	return session.Send(payload)
}

func (r *Registry) CheckKeepAlive(id domain.AccountID, trip ports.TripWire) {
	if session, ok := r.session(id); ok {
		session.CheckKeepAlive(trip)
	}
}

func (r *Registry) WaitProcessing(id domain.AccountID) bool {
	session, ok := r.session(id)
	if !ok {
		return false
	}
	return session.WaitProcessing()
}

// IDs returns the accounts that currently have a session, sorted.
func (r *Registry) IDs() []domain.AccountID {
	r.mu.RLock()
	ids := make([]domain.AccountID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type SessionSnapshot struct {
	ID          domain.AccountID
	State       domain.StateType
	LastFailure domain.FailureKind
	Connected   bool
}

func (r *Registry) Snapshot() []SessionSnapshot {
	ids := r.IDs()
	out := make([]SessionSnapshot, 0, len(ids))
	for _, id := range ids {
		session, ok := r.session(id)
		if !ok {
			continue
		}
		out = append(out, SessionSnapshot{
			ID:          id,
			State:       session.State(),
			LastFailure: session.LastFailure(),
			Connected:   session.Connected(),
		})
	}
	return out
}

// Close tears down every session.
func (r *Registry) Close(ctx context.Context) {
	release, ok := r.reconcileLock.Acquire(r.opts.LockTimeout)
	if !ok {
		r.logger.Warn().Msg("registry lock wait timed out during close")
	}
	defer release()

	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, session := range r.sessions {
		sessions = append(sessions, session)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, session := range sessions {
		session.Close(ctx)
	}
}
