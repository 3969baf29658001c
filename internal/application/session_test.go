package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	session *Session
	client  *fakeClient
	standby *fakeStandby
	network *fakeNetwork
	store   *fakeConfigStore
	clock   *fakeClock
	events  *recorder
}

func newSessionFixture(t *testing.T, opts SessionOptions) *sessionFixture {
	t.Helper()

	clients := newFakeClients()
	f := &sessionFixture{
		standby: newFakeStandby(),
		network: &fakeNetwork{},
		store:   &fakeConfigStore{},
		clock:   newFakeClock(),
	}
	bus := NewEventBus(0)
	f.events = record(t, bus)

	session, err := NewSession("work", SessionDeps{
		Clients: clients.factory,
		Standby: f.standby,
		Network: f.network,
		Store:   f.store,
		Clock:   f.clock,
		Bus:     bus,
		Logger:  testLogger(),
	}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close(context.Background()) })

	f.session = session
	f.client = clients.get("work")
	return f
}

func enabledParams() domain.ConnectionParams {
	return domain.ConnectionParams{
		Host:            "chat.work.example",
		JID:             "me@work.example",
		Password:        "hunter2",
		Port:            domain.DefaultPort,
		TLS:             domain.TLSModeNone,
		Mechanisms:      domain.DefaultMechanisms,
		State:           domain.AccountStateEnabled,
		UpdatedSettings: true,
	}
}

func TestNewSessionValidatesInputs(t *testing.T) {
	bus := NewEventBus(0)
	defer bus.Close()

	_, err := NewSession(" ", SessionDeps{Clients: newFakeClients().factory, Bus: bus}, SessionOptions{})
	require.Error(t, err)

	_, err = NewSession("work", SessionDeps{Bus: bus}, SessionOptions{})
	require.Error(t, err)

	failing := newFakeClients()
	failing.err = errBoom
	_, err = NewSession("work", SessionDeps{Clients: failing.factory, Bus: bus}, SessionOptions{})
	require.ErrorIs(t, err, errBoom)
}

func TestSessionUpdateConnects(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})

	f.session.Update(context.Background(), enabledParams())

	require.Eventually(t, func() bool { return len(f.events.states()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.StateType{domain.StateConnecting, domain.StateConnected, domain.StateRunning}, f.events.states())
	assert.Empty(t, f.events.errors())
	assert.Equal(t, domain.StateRunning, f.session.State())
	assert.True(t, f.session.Connected())

	configures, connects, _ := f.client.counts()
	assert.Equal(t, 1, configures)
	assert.Equal(t, 1, connects)
	assert.Equal(t, domain.StandbyScopeSoftware, f.standby.registers["work"])
}

func TestSessionUpdateWithoutChangesKeepsConnection(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})
	ctx := context.Background()

	f.session.Update(ctx, enabledParams())
	params := enabledParams()
	params.UpdatedSettings = false
	f.session.Update(ctx, params)

	configures, connects, disconnects := f.client.counts()
	assert.Equal(t, 1, configures)
	assert.Equal(t, 1, connects)
	assert.Zero(t, disconnects)
}

func TestSessionInvalidSettingsReportAllProblems(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})

	f.session.Update(context.Background(), domain.ConnectionParams{State: domain.AccountStateEnabled, UpdatedSettings: true})

	require.Eventually(t, func() bool { return len(f.events.errors()) == 3 }, time.Second, 5*time.Millisecond)
	kinds := make([]domain.FailureKind, 0, 3)
	for _, failure := range f.events.errors() {
		assert.Equal(t, domain.PolicyDeactivate, failure.Policy)
		assert.Equal(t, domain.AccountID("work"), failure.Account)
		kinds = append(kinds, failure.Failure)
	}
	assert.Equal(t, []domain.FailureKind{domain.FailureInvalidHostname, domain.FailureInvalidJID, domain.FailureMissingPassword}, kinds)

	configures, connects, _ := f.client.counts()
	assert.Zero(t, configures)
	assert.Zero(t, connects)
}

func TestSessionConfigureErrorDeactivates(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})
	f.client.set(func(c *fakeClient) { c.configureErr = errBoom })

	f.session.Update(context.Background(), enabledParams())

	require.Eventually(t, func() bool { return len(f.events.errors()) == 1 }, time.Second, 5*time.Millisecond)
	failure := f.events.errors()[0]
	assert.Equal(t, domain.FailureInvalidSettings, failure.Failure)
	assert.Equal(t, domain.PolicyDeactivate, failure.Policy)
}

func TestSessionDisabledDisconnects(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})
	ctx := context.Background()

	f.session.Update(ctx, enabledParams())
	params := enabledParams()
	params.UpdatedSettings = false
	params.State = domain.AccountStateDisabled
	f.session.Update(ctx, params)

	require.Eventually(t, func() bool { return len(f.events.states()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.StateType{
		domain.StateConnecting, domain.StateConnected, domain.StateRunning,
		domain.StateDisconnecting, domain.StateDisconnected,
	}, f.events.states())
	assert.False(t, f.session.Connected())
	assert.Equal(t, domain.FailureNone, f.session.LastFailure())
}

func TestSessionDisconnectWhenIdleIsNoop(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})

	params := enabledParams()
	params.UpdatedSettings = false
	params.State = domain.AccountStateDisabled
	f.session.Update(context.Background(), params)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, f.events.count())
	_, _, disconnects := f.client.counts()
	assert.Zero(t, disconnects)
}

func TestSessionWithoutInternetReportsAndSwallowsReconnects(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: 10 * time.Millisecond})
	f.network.down.Store(true)

	f.session.Update(context.Background(), enabledParams())

	require.Eventually(t, func() bool { return len(f.events.errors()) == 1 }, time.Second, 5*time.Millisecond)
	failure := f.events.errors()[0]
	assert.Equal(t, domain.FailureNoInternet, failure.Failure)
	assert.Equal(t, domain.PolicyInformative, failure.Policy)

	before := f.events.count()
	f.client.handler.OnError(domain.FailureProtocol, domain.PolicyReconnect, "stream reset")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, before, f.events.count(), "reconnect failures are dropped while offline")
	assert.Equal(t, domain.FailureNone, f.session.LastFailure())
	_, connects, _ := f.client.counts()
	assert.Zero(t, connects)
}

func TestSessionLosingInternetWhileConnectedDisconnects(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})
	ctx := context.Background()

	f.session.Update(ctx, enabledParams())
	f.network.down.Store(true)
	params := enabledParams()
	params.UpdatedSettings = false
	f.session.Update(ctx, params)

	require.Eventually(t, func() bool { return f.session.State() == domain.StateDisconnected }, time.Second, 5*time.Millisecond)
	noInternet := 0
	for _, failure := range f.events.errors() {
		if failure.Failure == domain.FailureNoInternet {
			noInternet++
		}
	}
	assert.Equal(t, 2, noInternet, "one for the lost connection, one for the enabled account")
	_, connects, _ := f.client.counts()
	assert.Equal(t, 1, connects)
}

func TestSessionRepeatedFailureDeactivatesOnce(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: 10 * time.Millisecond})
	f.client.set(func(c *fakeClient) { c.connectErr = errBoom })

	f.session.Update(context.Background(), enabledParams())

	require.Eventually(t, func() bool { return len(f.events.errorsWith(domain.PolicyDeactivate)) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	deactivations := f.events.errorsWith(domain.PolicyDeactivate)
	require.Len(t, deactivations, 1)
	assert.Equal(t, domain.FailureConnectionFailed, deactivations[0].Failure)
	assert.Equal(t, domain.FailureNone, f.session.LastFailure())

	_, connects, _ := f.client.counts()
	assert.Equal(t, 2, connects, "first attempt plus exactly one retry")
}

func TestSessionReconnectFailureRetriesAfterDelay(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: 20 * time.Millisecond})
	f.session.Update(context.Background(), enabledParams())

	f.client.handler.OnError(domain.FailureProtocol, domain.PolicyReconnect, "stream reset")
	assert.Equal(t, domain.FailureProtocol, f.session.LastFailure())
	assert.Equal(t, domain.StateDisconnected, f.session.State())

	require.Eventually(t, func() bool {
		_, connects, _ := f.client.counts()
		return connects == 2 && f.session.State() == domain.StateRunning
	}, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	configures, connects, _ := f.client.counts()
	assert.Equal(t, 2, configures)
	assert.Equal(t, 2, connects)
	assert.Empty(t, f.events.errorsWith(domain.PolicyDeactivate))
	assert.Equal(t, domain.FailureNone, f.session.LastFailure(), "ready clears the remembered failure")
}

func TestSessionCoalescesPendingRetries(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: 30 * time.Millisecond})
	f.session.Update(context.Background(), enabledParams())

	f.client.handler.OnError(domain.FailureProtocol, domain.PolicyReconnect, "stream reset")
	f.client.handler.OnError(domain.FailureConnectionFailed, domain.PolicyReconnect, "socket closed")

	require.Eventually(t, func() bool {
		_, connects, _ := f.client.counts()
		return connects == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	_, connects, _ := f.client.counts()
	assert.Equal(t, 2, connects)
}

func TestSessionRetryLimitStopsChain(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: 5 * time.Millisecond, MaxRetryPasses: 3})

	// Alternating kinds never repeat, so only the pass limit ends the chain.
	kinds := []domain.FailureKind{domain.FailureProtocol, domain.FailureConnectionFailed}
	f.client.set(func(c *fakeClient) {
		c.onConnect = func(attempt int) error {
			c.handler.OnError(kinds[attempt%2], domain.PolicyReconnect, "flap")
			return nil
		}
	})

	f.session.Update(context.Background(), enabledParams())

	require.Eventually(t, func() bool {
		_, connects, _ := f.client.counts()
		return connects == 3
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	_, connects, _ := f.client.counts()
	assert.Equal(t, 3, connects)
	assert.Empty(t, f.events.errorsWith(domain.PolicyDeactivate))
}

func TestSessionDeactivateCancelsPendingRetry(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: 30 * time.Millisecond})
	f.session.Update(context.Background(), enabledParams())

	f.client.handler.OnError(domain.FailureProtocol, domain.PolicyReconnect, "stream reset")
	f.client.handler.OnError(domain.FailureAuthentication, domain.PolicyDeactivate, "not authorized")

	time.Sleep(80 * time.Millisecond)
	_, connects, _ := f.client.counts()
	assert.Equal(t, 1, connects)

	deactivations := f.events.errorsWith(domain.PolicyDeactivate)
	require.Len(t, deactivations, 1)
	assert.Equal(t, domain.FailureAuthentication, deactivations[0].Failure)
}

func TestSessionInformativeErrorKeepsConnection(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})
	f.session.Update(context.Background(), enabledParams())
	states := len(f.events.states())

	f.client.handler.OnError(domain.FailureNotConnected, domain.PolicyInformative, "slow link")

	require.Eventually(t, func() bool { return len(f.events.errors()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, f.events.states(), states)
	assert.Equal(t, domain.StateRunning, f.session.State())
}

func TestSessionSend(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})

	assert.False(t, f.session.Send("<presence/>"))
	require.Eventually(t, func() bool { return len(f.events.errors()) == 1 }, time.Second, 5*time.Millisecond)
	failure := f.events.errors()[0]
	assert.Equal(t, domain.FailureNotConnected, failure.Failure)
	assert.Equal(t, domain.PolicyInformative, failure.Policy)
	assert.Empty(t, f.events.states())

	f.session.Update(context.Background(), enabledParams())
	assert.True(t, f.session.Send("<presence/>"))
	assert.Equal(t, []string{"<presence/>"}, f.client.sent)

	f.client.set(func(c *fakeClient) { c.sendErr = errBoom })
	assert.False(t, f.session.Send("<message/>"))
}

func TestSessionReceiveEmitsMessage(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})
	f.session.Update(context.Background(), enabledParams())

	f.client.handler.OnReceive("<message>hi</message>")
	f.client.handler.OnLog(domain.LogInfo, "stream features")
	f.client.handler.OnResourceBound("laptop")

	require.Eventually(t, func() bool { return f.events.count() == 6 }, time.Second, 5*time.Millisecond)
	events := f.events.all()

	message, ok := events[3].(domain.MessageEvent)
	require.True(t, ok)
	assert.Equal(t, "<message>hi</message>", message.Payload)
	assert.NotEmpty(t, message.ID)
	assert.Equal(t, domain.AccountID("work"), message.Account)

	log, ok := events[4].(domain.LogEvent)
	require.True(t, ok)
	assert.Equal(t, domain.LogInfo, log.Level)

	bound, ok := events[5].(domain.StateEvent)
	require.True(t, ok)
	assert.Equal(t, domain.StateResourceBound, bound.State)
	assert.Equal(t, domain.StateRunning, f.session.State())
}

func TestSessionKeepAlive(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: time.Hour})
	f.session.Update(context.Background(), enabledParams())
	trip := &fakeTrip{interval: 15 * time.Minute}

	f.clock.Advance(15*time.Minute + 30*time.Second)
	f.session.CheckKeepAlive(trip)
	assert.Zero(t, trip.decreased(), "partial minutes do not trip")
	assert.Equal(t, 1, f.client.pings)

	f.clock.Advance(time.Minute)
	f.session.CheckKeepAlive(trip)
	assert.Equal(t, 1, trip.decreased())
	assert.Equal(t, domain.FailureNotConnected, f.session.LastFailure())
	assert.Equal(t, domain.StateDisconnected, f.session.State())
}

func TestSessionKeepAliveUsesRegistrationTripWire(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: time.Hour})
	f.standby.trip.interval = 5 * time.Minute
	f.session.Update(context.Background(), enabledParams())

	f.client.handler.OnReceive("ping")
	f.clock.Advance(4 * time.Minute)
	f.session.CheckKeepAlive(nil)
	assert.Zero(t, f.standby.trip.decreased())

	f.clock.Advance(2 * time.Minute)
	f.session.CheckKeepAlive(nil)
	assert.Equal(t, 1, f.standby.trip.decreased())
}

func TestSessionKeepAliveWhileDisconnectedReportsNotConnected(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})

	f.session.CheckKeepAlive(nil)

	require.Eventually(t, func() bool { return len(f.events.errors()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.PolicyInformative, f.events.errors()[0].Policy)
	assert.Zero(t, f.client.pings)
}

func TestSessionRegistrationFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureKind
	}{
		{name: "background task", err: fmt.Errorf("%w: quota", domain.ErrBackgroundTaskCreate), want: domain.FailureBackgroundTaskCreate},
		{name: "control channel", err: errBoom, want: domain.FailureRegisterControlChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t, SessionOptions{RetryDelay: time.Hour})
			f.standby.set(func(s *fakeStandby) { s.registerErr = tt.err })

			f.session.Update(context.Background(), enabledParams())

			assert.Equal(t, tt.want, f.session.LastFailure())
			_, connects, _ := f.client.counts()
			assert.Zero(t, connects)
			assert.Empty(t, f.events.errorsWith(domain.PolicyDeactivate))
		})
	}
}

func TestSessionUnregisterFailure(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: time.Hour})
	f.standby.set(func(s *fakeStandby) { s.unregisterErr = errBoom })

	f.session.Update(context.Background(), enabledParams())

	assert.Equal(t, domain.FailureUnregisterControlChannel, f.session.LastFailure())
}

func TestSessionHardwareScope(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})
	params := enabledParams()
	params.RequestHardwareStandby = true

	f.session.Update(context.Background(), params)

	assert.Equal(t, domain.StandbyScopeHardware, f.standby.registers["work"])
}

func TestSessionWaitForPushEnabledFailure(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: time.Hour})
	f.standby.set(func(s *fakeStandby) { s.pushErr = errBoom })

	f.session.Update(context.Background(), enabledParams())

	assert.Equal(t, domain.FailureWaitForPushEnabled, f.session.LastFailure())
	assert.False(t, f.session.Connected())
	assert.NotContains(t, f.events.states(), domain.StateRunning)
}

func TestSessionWaitProcessing(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{})
	assert.True(t, f.session.WaitProcessing())

	f.client.set(func(c *fakeClient) { c.waitResult = false })
	assert.False(t, f.session.WaitProcessing())
}

func TestSessionCloseIgnoresLaterCallbacks(t *testing.T) {
	f := newSessionFixture(t, SessionOptions{RetryDelay: 10 * time.Millisecond})
	f.session.Update(context.Background(), enabledParams())

	f.session.Close(context.Background())
	f.session.Close(context.Background())

	require.Eventually(t, func() bool { return len(f.events.states()) == 5 }, time.Second, 5*time.Millisecond)
	before := f.events.count()

	f.client.handler.OnReceive("late")
	f.client.handler.OnError(domain.FailureProtocol, domain.PolicyReconnect, "late")
	f.session.Update(context.Background(), enabledParams())
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, before, f.events.count())
	_, connects, disconnects := f.client.counts()
	assert.Equal(t, 1, connects)
	assert.Equal(t, 1, disconnects)
}
