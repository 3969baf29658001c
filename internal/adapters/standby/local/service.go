package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
)

const (
	defaultInterval    = 15 * time.Minute
	defaultMinInterval = time.Minute
	triggerBuffer      = 16
)

type Options struct {
	HardwareSlots int
	// Interval is where every trip wire starts; MinInterval is its floor.
	Interval    time.Duration
	MinInterval time.Duration
	Access      domain.BackgroundAccess
}

// Service is an in-process standby service. Each registration runs a timer
// that emits a keep-alive trigger whenever its trip wire interval elapses.
type Service struct {
	opts   Options
	logger zerolog.Logger

	triggers chan domain.Trigger

	mu            sync.Mutex
	access        domain.BackgroundAccess
	registrations map[domain.AccountID]*registration
	closed        bool
}

var _ ports.StandbyService = (*Service)(nil)

func NewService(opts Options, logger zerolog.Logger) *Service {
	if opts.HardwareSlots < 0 {
		opts.HardwareSlots = 0
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = defaultMinInterval
	}
	if opts.MinInterval > opts.Interval {
		opts.MinInterval = opts.Interval
	}
	if opts.Access == "" {
		opts.Access = domain.BackgroundAccessGranted
	}

	return &Service{
		opts:          opts,
		logger:        logger,
		triggers:      make(chan domain.Trigger, triggerBuffer),
		access:        opts.Access,
		registrations: map[domain.AccountID]*registration{},
	}
}

// Triggers delivers keep-alive wake-ups. A trigger is dropped when the
// buffer is full; the next interval produces another one.
func (s *Service) Triggers() <-chan domain.Trigger {
	return s.triggers
}

func (s *Service) Register(ctx context.Context, id domain.AccountID, scope domain.StandbyScope) (ports.StandbyRegistration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: standby service closed", domain.ErrBackgroundTaskCreate)
	}
	if scope == domain.StandbyScopeHardware && s.availableLocked(id) <= 0 {
		return nil, fmt.Errorf("%w: no hardware slot for %s", domain.ErrRegistrationFailed, id)
	}

	if previous, ok := s.registrations[id]; ok {
		previous.stop()
	}

	reg := &registration{
		id:    id,
		scope: scope,
		trip:  newTripWire(s.opts.Interval, s.opts.MinInterval),
		done:  make(chan struct{}),
	}
	s.registrations[id] = reg
	go reg.run(s.fire)

	s.logger.Debug().Str("account", string(id)).Str("scope", string(scope)).Msg("standby registered")
	return reg, nil
}

func (s *Service) Unregister(_ context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[id]
	if !ok {
		return nil
	}
	reg.stop()
	delete(s.registrations, id)
	return nil
}

func (s *Service) AvailableHardwareSlots(_ context.Context, holder domain.AccountID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableLocked(holder)
}

func (s *Service) availableLocked(holder domain.AccountID) int {
	used := 0
	for id, reg := range s.registrations {
		if id != holder && reg.scope == domain.StandbyScopeHardware {
			used++
		}
	}
	return max(s.opts.HardwareSlots-used, 0)
}

func (s *Service) AccessStatus(context.Context) domain.BackgroundAccess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// RequestAccess grants access unless it was explicitly denied.
func (s *Service) RequestAccess(ctx context.Context) (domain.BackgroundAccess, error) {
	if err := ctx.Err(); err != nil {
		return domain.BackgroundAccessUnspecified, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access == domain.BackgroundAccessUnspecified {
		s.access = domain.BackgroundAccessGranted
	}
	return s.access, nil
}

func (s *Service) SetAccess(access domain.BackgroundAccess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
}

func (s *Service) fire(id domain.AccountID) {
	trigger := domain.Trigger{Kind: domain.TriggerKeepAlive, Account: id}
	select {
	case s.triggers <- trigger:
	default:
		s.logger.Debug().Str("trigger", trigger.Name()).Msg("trigger buffer full, dropping")
	}
}

// Close stops every registration. Triggers is not closed so late readers
// do not observe a zero trigger.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, reg := range s.registrations {
		reg.stop()
		delete(s.registrations, id)
	}
}

type registration struct {
	id    domain.AccountID
	scope domain.StandbyScope
	trip  *tripWire
	done  chan struct{}
	once  sync.Once
}

// WaitForPushEnabled succeeds at once: the local push channel is the
// trigger channel itself.
func (r *registration) WaitForPushEnabled(ctx context.Context) error {
	select {
	case <-r.done:
		return fmt.Errorf("%w: registration for %s stopped", domain.ErrRegistrationFailed, r.id)
	default:
	}
	return ctx.Err()
}

func (r *registration) TripWire() ports.TripWire {
	return r.trip
}

func (r *registration) run(fire func(domain.AccountID)) {
	timer := time.NewTimer(r.trip.CurrentInterval())
	defer timer.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-timer.C:
			fire(r.id)
			timer.Reset(r.trip.CurrentInterval())
		}
	}
}

func (r *registration) stop() {
	r.once.Do(func() { close(r.done) })
}

// tripWire halves its interval on every decrease, down to a floor.
type tripWire struct {
	mu       sync.Mutex
	interval time.Duration
	floor    time.Duration
}

func newTripWire(interval, floor time.Duration) *tripWire {
	return &tripWire{interval: interval, floor: floor}
}

func (t *tripWire) CurrentInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

func (t *tripWire) DecreaseInterval() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = max(t.interval/2, t.floor)
}
