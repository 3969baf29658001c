package line

import (
	"bufio"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	arg  string
}

type recordingHandler struct {
	calls chan call
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{calls: make(chan call, 32)}
}

func (h *recordingHandler) OnConnected()                      { h.calls <- call{name: "connected"} }
func (h *recordingHandler) OnDisconnected()                   { h.calls <- call{name: "disconnected"} }
func (h *recordingHandler) OnReady()                          { h.calls <- call{name: "ready"} }
func (h *recordingHandler) OnResourceBound(res string)        { h.calls <- call{name: "bound", arg: res} }
func (h *recordingHandler) OnReceive(payload string)          { h.calls <- call{name: "receive", arg: payload} }
func (h *recordingHandler) OnLog(_ domain.LogLevel, m string) { h.calls <- call{name: "log", arg: m} }
func (h *recordingHandler) OnError(kind domain.FailureKind, _ domain.Policy, _ string) {
	h.calls <- call{name: "error", arg: string(kind)}
}

func (h *recordingHandler) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-h.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no handler call")
		return call{}
	}
}

// lineServer accepts one connection and hands it to serve.
func lineServer(t *testing.T, serve func(conn net.Conn, lines *bufio.Scanner)) (string, int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		serve(conn, bufio.NewScanner(conn))
	}()
	t.Cleanup(func() {
		_ = listener.Close()
		wg.Wait()
	})

	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	portNumber, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, portNumber
}

func newTestClient(t *testing.T, handler ports.ProtocolHandler) ports.ProtocolClient {
	t.Helper()

	client, err := NewFactory(Options{DialTimeout: time.Second}, zerolog.Nop())("work", handler)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect() })
	return client
}

func TestClientHandshakeAndTraffic(t *testing.T) {
	received := make(chan string, 8)
	host, port := lineServer(t, func(conn net.Conn, lines *bufio.Scanner) {
		if !lines.Scan() {
			return
		}
		received <- lines.Text()
		_, _ = conn.Write([]byte("OK laptop\nLOG motd\n<message>hi</message>\n"))
		for lines.Scan() {
			received <- lines.Text()
			if lines.Text() == "PING" {
				_, _ = conn.Write([]byte("PONG\n"))
			}
		}
	})

	handler := newRecordingHandler()
	client := newTestClient(t, handler)
	require.NoError(t, client.Configure(domain.ClientSettings{
		Account:    "work",
		JID:        "me@work.example",
		Password:   "hunter2",
		Host:       host,
		Port:       port,
		TLS:        domain.TLSModeNone,
		Mechanisms: domain.MechanismPlain | domain.MechanismSCRAM,
	}))
	require.NoError(t, client.Connect())

	assert.Equal(t, call{name: "connected"}, handler.next(t))
	assert.Equal(t, "AUTH SCRAM me@work.example hunter2", <-received)
	assert.Equal(t, call{name: "bound", arg: "laptop"}, handler.next(t))
	assert.Equal(t, call{name: "ready"}, handler.next(t))
	assert.Equal(t, call{name: "log", arg: "motd"}, handler.next(t))
	assert.Equal(t, call{name: "receive", arg: "<message>hi</message>"}, handler.next(t))
	assert.True(t, client.Connected())

	require.NoError(t, client.Send("<presence/>"))
	assert.Equal(t, "<presence/>", <-received)
	require.ErrorIs(t, client.Send("a\nb"), ErrMultiline)

	require.NoError(t, client.Ping())
	assert.Equal(t, "PING", <-received)
	assert.True(t, client.WaitProcessing(time.Second))

	require.NoError(t, client.Disconnect())
	assert.False(t, client.Connected())
	require.ErrorIs(t, client.Send("late"), domain.ErrNotConnected)

	select {
	case c := <-handler.calls:
		assert.NotEqual(t, "disconnected", c.name, "requested disconnects are not reported")
	case <-time.After(50 * time.Millisecond):
	}
}

// blockingHandler holds OnReceive until release is closed.
type blockingHandler struct {
	*recordingHandler
	entered chan struct{}
	release chan struct{}
}

func (h *blockingHandler) OnReceive(payload string) {
	h.entered <- struct{}{}
	<-h.release
	h.recordingHandler.OnReceive(payload)
}

func TestClientWaitProcessingTracksHandledLine(t *testing.T) {
	host, port := lineServer(t, func(conn net.Conn, lines *bufio.Scanner) {
		if !lines.Scan() {
			return
		}
		_, _ = conn.Write([]byte("OK\nfirst\n"))
		for lines.Scan() {
		}
	})

	handler := &blockingHandler{
		recordingHandler: newRecordingHandler(),
		entered:          make(chan struct{}, 1),
		release:          make(chan struct{}),
	}
	client := newTestClient(t, handler)
	require.NoError(t, client.Configure(domain.ClientSettings{
		Account:  "work",
		JID:      "me@work.example",
		Password: "hunter2",
		Host:     host,
		Port:     port,
	}))
	require.NoError(t, client.Connect())

	select {
	case <-handler.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("line never reached the handler")
	}

	waited := make(chan bool, 1)
	go func() { waited <- client.WaitProcessing(time.Second) }()
	assert.False(t, client.WaitProcessing(20*time.Millisecond))

	close(handler.release)
	assert.True(t, <-waited)
	assert.True(t, client.WaitProcessing(10*time.Millisecond))
}

func TestClientReportsAuthenticationFailure(t *testing.T) {
	host, port := lineServer(t, func(conn net.Conn, lines *bufio.Scanner) {
		lines.Scan()
		_, _ = conn.Write([]byte("ERR not-authorized\n"))
		lines.Scan()
	})

	handler := newRecordingHandler()
	client := newTestClient(t, handler)
	require.NoError(t, client.Configure(domain.ClientSettings{JID: "me@work.example", Password: "wrong", Host: host, Port: port}))
	require.NoError(t, client.Connect())

	assert.Equal(t, "connected", handler.next(t).name)
	assert.Equal(t, call{name: "error", arg: string(domain.FailureAuthentication)}, handler.next(t))
}

func TestClientReportsServerClose(t *testing.T) {
	host, port := lineServer(t, func(conn net.Conn, lines *bufio.Scanner) {
		lines.Scan()
	})

	handler := newRecordingHandler()
	client := newTestClient(t, handler)
	require.NoError(t, client.Configure(domain.ClientSettings{JID: "me@work.example", Password: "pw", Host: host, Port: port}))
	require.NoError(t, client.Connect())

	assert.Equal(t, "connected", handler.next(t).name)
	assert.Equal(t, "disconnected", handler.next(t).name)
	assert.Equal(t, call{name: "error", arg: string(domain.FailureProtocol)}, handler.next(t))
	assert.Eventually(t, func() bool { return !client.Connected() }, time.Second, 5*time.Millisecond)
}

func TestClientReportsDialFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	handler := newRecordingHandler()
	client := newTestClient(t, handler)
	require.NoError(t, client.Configure(domain.ClientSettings{Host: "127.0.0.1", Port: port}))
	require.NoError(t, client.Connect())

	assert.Equal(t, call{name: "error", arg: string(domain.FailureConnectionFailed)}, handler.next(t))
	assert.False(t, client.Connected())
}

func TestClientRequiresConfiguration(t *testing.T) {
	client := newTestClient(t, newRecordingHandler())

	require.ErrorIs(t, client.Connect(), ErrNotConfigured)
	require.Error(t, client.Configure(domain.ClientSettings{Host: "", Port: 5222}))
	require.Error(t, client.Configure(domain.ClientSettings{Host: "example.org", Port: 0}))
	require.NoError(t, client.Disconnect())
	assert.True(t, client.WaitProcessing(10*time.Millisecond))
}

func TestFactoryRejectsNilHandler(t *testing.T) {
	_, err := NewFactory(Options{}, zerolog.Nop())("work", nil)
	require.Error(t, err)
}
