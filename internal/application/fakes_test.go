package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
)

// fakeClient completes a connection synchronously when autoConnect is set:
// Connect calls OnConnected and, if still connected afterwards, OnReady.
type fakeClient struct {
	handler ports.ProtocolHandler

	mu           sync.Mutex
	autoConnect  bool
	connected    bool
	configureErr error
	connectErr   error
	sendErr      error
	configured   []domain.ClientSettings
	connects     int
	disconnects  int
	pings        int
	sent         []string
	waitResult   bool
	// onConnect replaces the connection outcome when set.
	onConnect func(attempt int) error
}

func (c *fakeClient) Configure(settings domain.ClientSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configured = append(c.configured, settings)
	return c.configureErr
}

func (c *fakeClient) Connect() error {
	c.mu.Lock()
	c.connects++
	if c.connectErr != nil {
		err := c.connectErr
		c.mu.Unlock()
		return err
	}
	if hook := c.onConnect; hook != nil {
		attempt := c.connects
		c.mu.Unlock()
		return hook(attempt)
	}
	auto := c.autoConnect
	if auto {
		c.connected = true
	}
	c.mu.Unlock()

	if !auto {
		return nil
	}
	c.handler.OnConnected()
	if c.Connected() {
		c.handler.OnReady()
	}
	return nil
}

func (c *fakeClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.connected = false
	return nil
}

func (c *fakeClient) Send(payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeClient) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return nil
}

func (c *fakeClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) WaitProcessing(time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitResult
}

func (c *fakeClient) set(fn func(c *fakeClient)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

func (c *fakeClient) counts() (configures, connects, disconnects int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.configured), c.connects, c.disconnects
}

// fakeClients hands out one fakeClient per account.
type fakeClients struct {
	mu      sync.Mutex
	clients map[domain.AccountID]*fakeClient
	err     error
}

func newFakeClients() *fakeClients {
	return &fakeClients{clients: map[domain.AccountID]*fakeClient{}}
}

func (f *fakeClients) factory(id domain.AccountID, handler ports.ProtocolHandler) (ports.ProtocolClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	client := &fakeClient{handler: handler, autoConnect: true, waitResult: true}
	f.clients[id] = client
	return client, nil
}

func (f *fakeClients) get(id domain.AccountID) *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[id]
}

type fakeTrip struct {
	mu        sync.Mutex
	interval  time.Duration
	decreases int
}

func (t *fakeTrip) CurrentInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

func (t *fakeTrip) DecreaseInterval() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.decreases++
	t.interval -= time.Minute
}

func (t *fakeTrip) decreased() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decreases
}

type fakeRegistration struct {
	pushErr error
	trip    *fakeTrip
}

func (r *fakeRegistration) WaitForPushEnabled(context.Context) error {
	return r.pushErr
}

func (r *fakeRegistration) TripWire() ports.TripWire {
	return r.trip
}

type fakeStandby struct {
	mu            sync.Mutex
	registerErr   error
	unregisterErr error
	pushErr       error
	trip          *fakeTrip
	slots         int
	access        domain.BackgroundAccess
	requestResult domain.BackgroundAccess
	requestErr    error
	registers     map[domain.AccountID]domain.StandbyScope
	unregisters   int
}

func newFakeStandby() *fakeStandby {
	return &fakeStandby{
		trip:          &fakeTrip{interval: DefaultKeepAlive},
		slots:         domain.MaxHardwareSlots,
		access:        domain.BackgroundAccessGranted,
		requestResult: domain.BackgroundAccessGranted,
		registers:     map[domain.AccountID]domain.StandbyScope{},
	}
}

func (s *fakeStandby) Register(_ context.Context, id domain.AccountID, scope domain.StandbyScope) (ports.StandbyRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	s.registers[id] = scope
	return &fakeRegistration{pushErr: s.pushErr, trip: s.trip}, nil
}

func (s *fakeStandby) Unregister(context.Context, domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisters++
	return s.unregisterErr
}

func (s *fakeStandby) AvailableHardwareSlots(context.Context, domain.AccountID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots
}

func (s *fakeStandby) AccessStatus(context.Context) domain.BackgroundAccess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *fakeStandby) RequestAccess(context.Context) (domain.BackgroundAccess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requestErr != nil {
		return "", s.requestErr
	}
	s.access = s.requestResult
	return s.requestResult, nil
}

func (s *fakeStandby) set(fn func(s *fakeStandby)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

type fakeNetwork struct {
	down atomic.Bool
}

func (n *fakeNetwork) InternetAvailable() bool {
	return !n.down.Load()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeConfigStore is an in-memory ConfigurationStore.
type fakeConfigStore struct {
	mu          sync.Mutex
	accounts    []domain.AccountConfig
	presence    domain.Presence
	resets      []domain.AccountID
	deactivated []domain.AccountID
}

func (s *fakeConfigStore) List(context.Context) ([]domain.AccountConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AccountConfig(nil), s.accounts...), nil
}

func (s *fakeConfigStore) Presence(context.Context) (domain.Presence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presence == "" {
		return domain.PresenceAvailable, nil
	}
	return s.presence, nil
}

func (s *fakeConfigStore) ResetChanged(_ context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, id)
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].SettingsChanged = false
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

func (s *fakeConfigStore) Deactivate(_ context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.deactivated = append(s.deactivated, id)
			s.accounts[i].State = domain.AccountStateDisabled
			s.accounts[i].ForceDisabled = true
			s.accounts[i].SettingsChanged = true
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

func (s *fakeConfigStore) put(account domain.AccountConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == account.ID {
			s.accounts[i] = account
			return
		}
	}
	s.accounts = append(s.accounts, account)
}

func (s *fakeConfigStore) remove(id domain.AccountID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return
		}
	}
}

func (s *fakeConfigStore) get(id domain.AccountID) domain.AccountConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.ID == id {
			return account
		}
	}
	return domain.AccountConfig{}
}

// memoryEventStore is an in-memory EventStore with insertion order.
type memoryEventStore struct {
	mu      sync.Mutex
	entries []ports.StoredEntry
	putErr  error
}

func (s *memoryEventStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	for i := range s.entries {
		if s.entries[i].Key == key {
			s.entries[i].Value = value
			return nil
		}
	}
	s.entries = append(s.entries, ports.StoredEntry{Key: key, Value: value})
	return nil
}

func (s *memoryEventStore) Entries(context.Context) ([]ports.StoredEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.StoredEntry(nil), s.entries...), nil
}

func (s *memoryEventStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, entry := range s.entries {
		if key, _ := splitFragmentKey(entry.Key); key == id {
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return nil
}

func (s *memoryEventStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

func (s *memoryEventStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// recorder collects everything published on a bus.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func record(t *testing.T, bus *EventBus) *recorder {
	t.Helper()

	rec := &recorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event := <-bus.Events():
				rec.mu.Lock()
				rec.events = append(rec.events, event)
				rec.mu.Unlock()
			case <-bus.Done():
				return
			}
		}
	}()
	t.Cleanup(func() {
		bus.Close()
		<-done
	})
	return rec
}

func (r *recorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) states() []domain.StateType {
	var states []domain.StateType
	for _, event := range r.all() {
		if state, ok := event.(domain.StateEvent); ok {
			states = append(states, state.State)
		}
	}
	return states
}

func (r *recorder) errors() []domain.ErrorEvent {
	var failures []domain.ErrorEvent
	for _, event := range r.all() {
		if failure, ok := event.(domain.ErrorEvent); ok {
			failures = append(failures, failure)
		}
	}
	return failures
}

func (r *recorder) errorsWith(policy domain.Policy) []domain.ErrorEvent {
	var failures []domain.ErrorEvent
	for _, failure := range r.errors() {
		if failure.Policy == policy {
			failures = append(failures, failure)
		}
	}
	return failures
}

var errBoom = errors.New("boom")

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
