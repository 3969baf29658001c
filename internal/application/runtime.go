package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
)

const DefaultLifecycleDelay = 3 * time.Second

var ErrRuntimeClosed = errors.New("runtime closed")

type RuntimeDeps struct {
	Registry *Registry
	Queue    *EventQueue
	Bus      *EventBus
	Store    ports.ConfigurationStore
	Standby  ports.StandbyService
	Logger   zerolog.Logger
}

type RuntimeOptions struct {
	LifecycleDelay time.Duration
	// Persist decides which events are mirrored to durable storage.
	// Nil persists message events.
	Persist func(domain.Event) bool
}

func persistMessages(event domain.Event) bool {
	return event.Kind() == domain.EventKindMessage
}

// Runtime owns the registry, the event bus and the queue for one process.
// The process entry point constructs it, calls Start and finally Close.
type Runtime struct {
	registry *Registry
	queue    *EventQueue
	bus      *EventBus
	store    ports.ConfigurationStore
	standby  ports.StandbyService
	logger   zerolog.Logger
	delay    time.Duration
	persist  func(domain.Event) bool

	ctx    context.Context
	cancel context.CancelFunc

	startOnce     sync.Once
	pumpStarted   atomic.Bool
	pumpDone      chan struct{}
	initialized   atomic.Bool
	closed        atomic.Bool
	updatePending atomic.Bool

	// tasksMu orders tasks.Add against the closed flag so Close never
	// waits while a task is being added.
	tasksMu sync.Mutex
	tasks   sync.WaitGroup
}

func NewRuntime(deps RuntimeDeps, opts RuntimeOptions) (*Runtime, error) {
	if deps.Registry == nil {
		return nil, errors.New("registry is nil")
	}
	if deps.Queue == nil {
		return nil, errors.New("event queue is nil")
	}
	if deps.Bus == nil {
		return nil, errors.New("event bus is nil")
	}
	if opts.LifecycleDelay <= 0 {
		opts.LifecycleDelay = DefaultLifecycleDelay
	}
	if opts.Persist == nil {
		opts.Persist = persistMessages
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		registry: deps.Registry,
		queue:    deps.Queue,
		bus:      deps.Bus,
		store:    deps.Store,
		standby:  deps.Standby,
		logger:   deps.Logger,
		delay:    opts.LifecycleDelay,
		persist:  opts.Persist,
		ctx:      ctx,
		cancel:   cancel,
		pumpDone: make(chan struct{}),
	}, nil
}

func (r *Runtime) Queue() *EventQueue {
	return r.queue
}

func (r *Runtime) Registry() *Registry {
	return r.registry
}

func (r *Runtime) Initialized() bool {
	return r.initialized.Load()
}

// Start runs the event pump and, when background access is already granted,
// the first reconciliation. Without access the consumer is asked for it.
func (r *Runtime) Start(ctx context.Context) error {
	if r.closed.Load() {
		return ErrRuntimeClosed
	}
	r.startOnce.Do(func() {
		r.pumpStarted.Store(true)
		go r.pump()
	})

	if r.accessStatus(ctx).Granted() {
		r.init(ctx)
		return nil
	}

	r.logger.Info().Msg("background access missing, requesting it")
	r.publish(domain.RequestEvent{Type: domain.RequestBackgroundAccess})
	return nil
}

func (r *Runtime) init(ctx context.Context) {
	if !r.initialized.CompareAndSwap(false, true) {
		return
	}
	r.publish(domain.RequestEvent{Type: domain.RequestUIHandle})
	r.registry.Update(ctx)
}

func (r *Runtime) accessStatus(ctx context.Context) domain.BackgroundAccess {
	if r.standby == nil {
		return domain.BackgroundAccessGranted
	}
	return r.standby.AccessStatus(ctx)
}

// RequestBackgroundAccess asks the standby service for access and
// initializes on success. Failure or denial is reported as a severe error.
func (r *Runtime) RequestBackgroundAccess(ctx context.Context) bool {
	if r.accessStatus(ctx).Granted() {
		r.init(ctx)
		return true
	}

	status, err := r.standby.RequestAccess(ctx)
	if err != nil {
		r.publish(domain.NewErrorEvent("", domain.FailureRequestBackgroundAccess, domain.PolicySevere, err.Error()))
		return false
	}
	return r.onAccessStatus(ctx, status)
}

func (r *Runtime) onAccessStatus(ctx context.Context, status domain.BackgroundAccess) bool {
	switch status {
	case domain.BackgroundAccessGranted:
		r.init(ctx)
		return true
	case domain.BackgroundAccessDenied:
		r.publish(domain.NewErrorEvent("", domain.FailureRequestBackgroundAccess, domain.PolicySevere, "background access denied"))
	default:
		r.publish(domain.RequestEvent{Type: domain.RequestBackgroundAccess})
	}
	return false
}

// Update reconciles the registry. It is ignored until initialized.
func (r *Runtime) Update(ctx context.Context) {
	if r.closed.Load() || !r.initialized.Load() {
		r.logger.Debug().Msg("runtime not ready, skipping update")
		return
	}
	r.registry.Update(ctx)
}

func (r *Runtime) Send(id domain.AccountID, payload string) bool {
	if !r.initialized.Load() {
		return false
	}
	return r.registry.Send(id, payload)
}

// HandleLifecycle records an OS lifecycle notification and reacts to it.
// Network and channel changes reconcile after the lifecycle delay.
func (r *Runtime) HandleLifecycle(ctx context.Context, kind domain.LifecycleType, canceled bool, reason string) {
	if canceled {
		r.publish(domain.LifecycleEvent{Type: kind, Canceled: true, Reason: reason})
		return
	}

	switch kind {
	case domain.LifecycleControlChannelReset,
		domain.LifecycleInternetAvailable,
		domain.LifecycleInternetNotAvailable,
		domain.LifecycleSessionConnected:
		r.after(r.delay, func(ctx context.Context) {
			r.publish(domain.LifecycleEvent{Type: kind})
			r.Update(ctx)
		})
	case domain.LifecycleLockScreenApplicationAdded, domain.LifecycleLockScreenApplicationRemoved:
		r.publish(domain.LifecycleEvent{Type: kind})
		r.onAccessStatus(ctx, r.accessStatus(ctx))
	default:
		r.publish(domain.LifecycleEvent{Type: kind, Reason: reason})
	}
}

// HandleTrigger runs a named background wake-up such as KAwork or PNwork.
func (r *Runtime) HandleTrigger(ctx context.Context, name string) error {
	trigger, err := domain.ParseTrigger(name)
	if err != nil {
		return err
	}
	if !r.initialized.Load() {
		return nil
	}

	switch trigger.Kind {
	case domain.TriggerKeepAlive:
		r.registry.CheckKeepAlive(trigger.Account, nil)
	case domain.TriggerPush:
		if !r.registry.WaitProcessing(trigger.Account) {
			r.logger.Debug().Str("account", string(trigger.Account)).Msg("processing wait timed out")
		}
	}
	return nil
}

func (r *Runtime) after(delay time.Duration, fn func(ctx context.Context)) {
	r.tasksMu.Lock()
	if r.closed.Load() {
		r.tasksMu.Unlock()
		return
	}
	r.tasks.Add(1)
	r.tasksMu.Unlock()

	go func() {
		defer r.tasks.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			fn(r.ctx)
		case <-r.ctx.Done():
		}
	}()
}

// scheduleUpdate coalesces reconciliation requests raised by the pump.
func (r *Runtime) scheduleUpdate() {
	if !r.updatePending.CompareAndSwap(false, true) {
		return
	}
	r.after(0, func(ctx context.Context) {
		r.updatePending.Store(false)
		r.Update(ctx)
	})
}

func (r *Runtime) publish(event domain.Event) {
	if !r.bus.Publish(event) {
		r.logger.Debug().Str("event", event.String()).Msg("event bus closed, dropping event")
	}
}

func (r *Runtime) pump() {
	defer close(r.pumpDone)

	for {
		select {
		case event := <-r.bus.Events():
			r.dispatch(event)
		case <-r.bus.Done():
			for {
				select {
				case event := <-r.bus.Events():
					r.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Runtime) dispatch(event domain.Event) {
	ctx := context.WithoutCancel(r.ctx)

	if failure, ok := event.(domain.ErrorEvent); ok {
		r.logger.Debug().Str("account", string(failure.Account)).Str("failure", failure.Failure.String()).Str("policy", string(failure.Policy)).Msg(failure.Message)
		if failure.Policy == domain.PolicyDeactivate && failure.Account != "" {
			r.deactivate(ctx, failure.Account)
		}
	}

	if r.persist(event) {
		event = domain.WithPersist(event, true)
	}
	r.queue.Enqueue(ctx, event)
}

func (r *Runtime) deactivate(ctx context.Context, id domain.AccountID) {
	if r.store == nil {
		return
	}
	if err := r.store.Deactivate(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			r.logger.Error().Err(err).Str("account", string(id)).Msg("deactivate account")
		}
		return
	}
	r.logger.Info().Str("account", string(id)).Msg("account deactivated")
	r.scheduleUpdate()
}

// Close tears down every session, drains the pump and stops it.
func (r *Runtime) Close(ctx context.Context) {
	r.tasksMu.Lock()
	closing := r.closed.CompareAndSwap(false, true)
	r.tasksMu.Unlock()
	if !closing {
		return
	}

	r.cancel()
	r.tasks.Wait()
	r.registry.Close(ctx)
	r.bus.Close()

	r.startOnce.Do(func() {})
	if r.pumpStarted.Load() {
		<-r.pumpDone
	}
}
