package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/bnema/chatlink/internal/syncx"
	"github.com/rs/zerolog"
)

const (
	DefaultRetryDelay        = 3 * time.Second
	DefaultLockTimeout       = 4 * time.Second
	DefaultMaxRetryPasses    = 5
	DefaultProcessingTimeout = 4 * time.Second
	DefaultKeepAlive         = 15 * time.Minute
)

type SessionOptions struct {
	RetryDelay        time.Duration
	LockTimeout       time.Duration
	MaxRetryPasses    int
	ProcessingTimeout time.Duration
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = DefaultLockTimeout
	}
	if o.MaxRetryPasses <= 0 {
		o.MaxRetryPasses = DefaultMaxRetryPasses
	}
	if o.ProcessingTimeout <= 0 {
		o.ProcessingTimeout = DefaultProcessingTimeout
	}
	return o
}

type SessionDeps struct {
	Clients ports.ProtocolClientFactory
	Standby ports.StandbyService
	Network ports.NetworkMonitor
	Store   ports.ConfigurationStore
	Clock   ports.Clock
	Bus     *EventBus
	Logger  zerolog.Logger
}

// Session drives the connection of one account.
//
// Update passes are serialized by a bounded-wait lock; see syncx.TimedMutex
// for what happens when the wait times out. Fields shared with client
// callbacks and retry timers are guarded by mu.
type Session struct {
	id      domain.AccountID
	client  ports.ProtocolClient
	standby ports.StandbyService
	network ports.NetworkMonitor
	clock   ports.Clock
	bus     *EventBus
	logger  zerolog.Logger
	opts    SessionOptions

	ctx    context.Context
	cancel context.CancelFunc

	updateLock syncx.TimedMutex

	mu             sync.Mutex
	params         domain.ConnectionParams
	state          domain.StateType
	lastFailure    domain.FailureKind
	updating       int
	retryRequested bool
	retryPending   bool
	retryGen       uint64
	retryTimer     *time.Timer
	lastReceive    time.Time
	registration   ports.StandbyRegistration
	closed         bool
}

func NewSession(id domain.AccountID, deps SessionDeps, opts SessionOptions) (*Session, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, errors.New("session id is empty")
	}
	if deps.Clients == nil {
		return nil, errors.New("protocol client factory is nil")
	}
	if deps.Bus == nil {
		return nil, errors.New("event bus is nil")
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      id,
		standby: deps.Standby,
		network: deps.Network,
		clock:   deps.Clock,
		bus:     deps.Bus,
		logger:  deps.Logger.With().Str("account", string(id)).Logger(),
		opts:    opts.withDefaults(),
		ctx:     ctx,
		cancel:  cancel,
		state:   domain.StateDisconnected,
	}
	s.lastReceive = s.clock.Now()

	client, err := deps.Clients(id, sessionHandler{s: s})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create protocol client: %w", err)
	}
	s.client = client

	return s, nil
}

func (s *Session) ID() domain.AccountID {
	return s.id
}

func (s *Session) State() domain.StateType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LastFailure() domain.FailureKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailure
}

func (s *Session) Connected() bool {
	return s.client.Connected()
}

// Update applies params and converges the connection to the desired state.
// A retry requested by an error handler while the pass ran is scheduled
// after the retry delay instead of running inline.
func (s *Session) Update(ctx context.Context, params domain.ConnectionParams) {
	s.run(ctx, params, 1)
}

func (s *Session) run(ctx context.Context, params domain.ConnectionParams, pass int) {
	if s.isClosed() {
		return
	}
	if s.pass(ctx, params) {
		s.scheduleRetry(pass + 1)
	}
}

// pass runs one update and reports whether a retry was requested meanwhile.
func (s *Session) pass(ctx context.Context, params domain.ConnectionParams) bool {
	release, ok := s.updateLock.Acquire(s.opts.LockTimeout)
	if !ok {
		s.logger.Warn().Dur("timeout", s.opts.LockTimeout).Msg("update lock wait timed out, proceeding without it")
	}
	defer release()

	s.mu.Lock()
	s.updating++
	s.params = params
	s.mu.Unlock()

	disconnected := false
	failed := false

	if s.client.Connected() && !s.internetAvailable() {
		s.emitError(domain.FailureNoInternet, domain.PolicyInformative, "internet connection lost")
		s.disconnect(ctx)
		disconnected = true
	}

	if params.UpdatedSettings {
		if !disconnected {
			s.logger.Debug().Msg("settings changed, disconnecting")
			s.disconnect(ctx)
			disconnected = true
		}
		failed = !s.configure(params)
	}

	if !failed {
		switch params.State {
		case domain.AccountStateDisabled:
			s.mu.Lock()
			s.lastFailure = domain.FailureNone
			s.mu.Unlock()
			if !disconnected {
				s.disconnect(ctx)
			}
		case domain.AccountStateEnabled:
			switch {
			case s.client.Connected():
				s.logger.Debug().Msg("already connected")
			case !s.internetAvailable():
				s.emitError(domain.FailureNoInternet, domain.PolicyInformative, "no internet connection")
			default:
				s.connect(ctx, params)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.UpdatedSettings = false
	s.updating--
	if s.updating > 0 || !s.retryRequested {
		return false
	}
	s.retryRequested = false
	return true
}

func (s *Session) configure(params domain.ConnectionParams) bool {
	valid := true
	if strings.TrimSpace(params.Host) == "" {
		s.emitError(domain.FailureInvalidHostname, domain.PolicyDeactivate, "host is empty")
		valid = false
	}
	if strings.TrimSpace(params.JID) == "" {
		s.emitError(domain.FailureInvalidJID, domain.PolicyDeactivate, "jid is empty")
		valid = false
	}
	if params.Password == "" {
		s.emitError(domain.FailureMissingPassword, domain.PolicyDeactivate, "password is empty")
		valid = false
	}
	if !valid {
		return false
	}

	if err := s.client.Configure(params.ClientSettings(s.id)); err != nil {
		s.emitError(domain.FailureInvalidSettings, domain.PolicyDeactivate, err.Error())
		return false
	}
	return true
}

func (s *Session) connect(ctx context.Context, params domain.ConnectionParams) {
	if !s.internetAvailable() {
		return
	}

	if s.standby != nil {
		if err := s.standby.Unregister(ctx, s.id); err != nil {
			s.handleError(domain.FailureUnregisterControlChannel, domain.PolicyReconnect, err.Error())
			return
		}

		registration, err := s.standby.Register(ctx, s.id, domain.ScopeFor(params.RequestHardwareStandby))
		if err != nil {
			kind := domain.FailureRegisterControlChannel
			if errors.Is(err, domain.ErrBackgroundTaskCreate) {
				kind = domain.FailureBackgroundTaskCreate
			}
			s.handleError(kind, domain.PolicyReconnect, err.Error())
			return
		}
		s.mu.Lock()
		s.registration = registration
		s.mu.Unlock()
		s.logger.Debug().Str("scope", string(domain.ScopeFor(params.RequestHardwareStandby))).Msg("control channel registered")
	}

	s.transition(domain.StateConnecting)
	if err := s.client.Connect(); err != nil {
		s.handleError(domain.FailureConnectionFailed, domain.PolicyReconnect, err.Error())
	}
}

// disconnect is a no-op when nothing is connected or registered.
func (s *Session) disconnect(ctx context.Context) {
	s.mu.Lock()
	idle := s.state == domain.StateDisconnected && s.registration == nil
	s.mu.Unlock()
	if idle && !s.client.Connected() {
		return
	}

	s.transition(domain.StateDisconnecting)
	if err := s.client.Disconnect(); err != nil {
		s.logger.Debug().Err(err).Msg("disconnect protocol client")
	}

	s.mu.Lock()
	registration := s.registration
	s.registration = nil
	s.mu.Unlock()

	if registration != nil && s.standby != nil {
		if err := s.standby.Unregister(ctx, s.id); err != nil {
			s.emitError(domain.FailureUnregisterControlChannel, domain.PolicyReconnect, err.Error())
		}
	}

	s.transition(domain.StateDisconnected)
}

// handleError applies the failure policy. Reconnect failures are swallowed
// without network, deactivated when they repeat the remembered kind, and
// otherwise retried after the retry delay.
func (s *Session) handleError(kind domain.FailureKind, policy domain.Policy, message string) {
	if policy == domain.PolicyReconnect && !s.internetAvailable() {
		s.logger.Debug().Str("failure", kind.String()).Msg("no internet, dropping reconnect failure")
		return
	}

	if policy.Disconnects() {
		s.forceState(domain.StateDisconnected)
	}

	switch policy {
	case domain.PolicyReconnect:
		s.mu.Lock()
		if kind != domain.FailureNone && kind == s.lastFailure {
			s.lastFailure = domain.FailureNone
			s.stopRetryLocked()
			s.mu.Unlock()
			s.logger.Info().Str("failure", kind.String()).Msg("failure repeated, deactivating")
			s.emitError(kind, domain.PolicyDeactivate, message)
			return
		}

		s.lastFailure = kind
		if s.updating > 0 {
			s.retryRequested = true
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		s.scheduleRetry(1)
	case domain.PolicyDeactivate:
		s.mu.Lock()
		s.stopRetryLocked()
		s.mu.Unlock()
		s.emitError(kind, policy, message)
	default:
		s.emitError(kind, policy, message)
	}
}

// scheduleRetry arms at most one pending retry. pass counts the retries
// chained since the last external Update.
func (s *Session) scheduleRetry(pass int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.retryPending {
		return
	}
	if pass > s.opts.MaxRetryPasses {
		s.logger.Warn().Int("passes", s.opts.MaxRetryPasses).Msg("retry limit reached, waiting for the next update")
		return
	}

	s.retryGen++
	gen := s.retryGen
	s.retryPending = true
	s.retryTimer = time.AfterFunc(s.opts.RetryDelay, func() {
		s.mu.Lock()
		if s.closed || !s.retryPending || gen != s.retryGen {
			s.mu.Unlock()
			return
		}
		s.retryPending = false
		s.retryTimer = nil
		params := s.params
		params.UpdatedSettings = true
		s.mu.Unlock()

		s.logger.Debug().Int("pass", pass).Msg("retrying update")
		s.run(s.ctx, params, pass)
	})
}

func (s *Session) stopRetryLocked() {
	s.retryRequested = false
	if !s.retryPending {
		return
	}
	s.retryPending = false
	s.retryGen++
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// Send forwards payload when connected. Otherwise it reports NotConnected
// and returns false.
func (s *Session) Send(payload string) bool {
	if !s.client.Connected() {
		s.emitError(domain.FailureNotConnected, domain.PolicyInformative, "not connected")
		return false
	}
	if err := s.client.Send(payload); err != nil {
		s.logger.Debug().Err(err).Msg("send payload")
		s.emitError(domain.FailureNotConnected, domain.PolicyInformative, err.Error())
		return false
	}
	return true
}

// CheckKeepAlive pings the server and reports a lost connection when
// nothing was received for longer than the trip wire interval.
func (s *Session) CheckKeepAlive(trip ports.TripWire) {
	if s.client.Connected() {
		if err := s.client.Ping(); err != nil {
			s.logger.Debug().Err(err).Msg("keepalive ping")
		}
	} else {
		s.emitError(domain.FailureNotConnected, domain.PolicyInformative, "not connected")
	}

	if trip == nil {
		s.mu.Lock()
		if s.registration != nil {
			trip = s.registration.TripWire()
		}
		s.mu.Unlock()
	}

	interval := DefaultKeepAlive
	if trip != nil {
		interval = trip.CurrentInterval()
	}

	s.mu.Lock()
	elapsed := s.clock.Now().Sub(s.lastReceive)
	s.mu.Unlock()

	if int64(elapsed/time.Minute) <= int64(interval/time.Minute) {
		return
	}

	if trip != nil {
		trip.DecreaseInterval()
	}
	s.handleError(domain.FailureNotConnected, domain.PolicyReconnect, "connection to server lost")
}

func (s *Session) WaitProcessing() bool {
	return s.client.WaitProcessing(s.opts.ProcessingTimeout)
}

// Close tears the session down. Pending retries are dropped and later
// callbacks are ignored.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopRetryLocked()
	s.mu.Unlock()

	release, ok := s.updateLock.Acquire(s.opts.LockTimeout)
	if !ok {
		s.logger.Warn().Msg("update lock wait timed out during close")
	}
	s.disconnect(ctx)
	release()

	s.mu.Lock()
	s.closed = true
	s.lastFailure = domain.FailureNone
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) internetAvailable() bool {
	return s.network == nil || s.network.InternetAvailable()
}

func (s *Session) transition(state domain.StateType) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()
	s.publish(domain.StateEvent{Meta: domain.Meta{Account: s.id}, State: state})
}

func (s *Session) forceState(state domain.StateType) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.publish(domain.StateEvent{Meta: domain.Meta{Account: s.id}, State: state})
}

func (s *Session) emitError(kind domain.FailureKind, policy domain.Policy, message string) {
	s.publish(domain.NewErrorEvent(s.id, kind, policy, message))
}

func (s *Session) publish(event domain.Event) {
	if s.isClosed() {
		return
	}
	if !s.bus.Publish(event) {
		s.logger.Debug().Str("event", event.String()).Msg("event bus closed, dropping event")
	}
}

// sessionHandler adapts protocol client notifications to the session.
type sessionHandler struct {
	s *Session
}

var _ ports.ProtocolHandler = sessionHandler{}

func (h sessionHandler) OnConnected() {
	s := h.s
	s.mu.Lock()
	registration := s.registration
	s.lastReceive = s.clock.Now()
	s.mu.Unlock()

	if registration != nil {
		ctx, cancel := context.WithTimeout(s.ctx, s.opts.ProcessingTimeout)
		err := registration.WaitForPushEnabled(ctx)
		cancel()
		if err != nil {
			s.disconnect(s.ctx)
			s.handleError(domain.FailureWaitForPushEnabled, domain.PolicyReconnect, err.Error())
			return
		}
	}

	s.transition(domain.StateConnected)
}

func (h sessionHandler) OnDisconnected() {
	h.s.transition(domain.StateDisconnected)
}

func (h sessionHandler) OnReady() {
	s := h.s
	s.mu.Lock()
	s.lastFailure = domain.FailureNone
	s.mu.Unlock()
	s.transition(domain.StateRunning)
}

// OnResourceBound does not change the session state.
func (h sessionHandler) OnResourceBound(resource string) {
	s := h.s
	s.logger.Debug().Str("resource", resource).Msg("resource bound")
	s.publish(domain.StateEvent{Meta: domain.Meta{Account: s.id}, State: domain.StateResourceBound})
}

func (h sessionHandler) OnReceive(payload string) {
	s := h.s
	s.mu.Lock()
	s.lastReceive = s.clock.Now()
	s.mu.Unlock()
	s.publish(domain.NewMessageEvent(s.id, payload))
}

func (h sessionHandler) OnError(kind domain.FailureKind, policy domain.Policy, message string) {
	h.s.handleError(kind, policy, message)
}

func (h sessionHandler) OnLog(level domain.LogLevel, message string) {
	s := h.s
	s.publish(domain.LogEvent{Meta: domain.Meta{Account: s.id}, Level: level, Message: message})
}
