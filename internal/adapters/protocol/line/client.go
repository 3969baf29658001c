// Package line implements a minimal newline-delimited protocol client.
//
// After dialing, the client sends "AUTH <mechanism> <jid> <password>". The
// server answers "OK <resource>" or "ERR <reason>". Every later line is an
// inbound payload, except "PONG" which answers a ping.
package line

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
)

const (
	defaultDialTimeout = 10 * time.Second
	maxLineSize        = 1 << 20
)

var (
	ErrNotConfigured = errors.New("client not configured")
	ErrMultiline     = errors.New("payload contains a newline")
)

// mechanismPreference lists mechanisms strongest first.
var mechanismPreference = []struct {
	bit  domain.Mechanism
	name string
}{
	{domain.MechanismSCRAM, "SCRAM"},
	{domain.MechanismDigestMD5, "DIGEST-MD5"},
	{domain.MechanismOAuth2, "OAUTH2"},
	{domain.MechanismPlain, "PLAIN"},
}

type Options struct {
	DialTimeout time.Duration
	// TLSConfig is cloned for every connection. ServerName defaults to the
	// configured host.
	TLSConfig *tls.Config
}

// NewFactory returns a factory producing one Client per account.
func NewFactory(opts Options, logger zerolog.Logger) ports.ProtocolClientFactory {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	return func(id domain.AccountID, handler ports.ProtocolHandler) (ports.ProtocolClient, error) {
		if handler == nil {
			return nil, errors.New("protocol handler is nil")
		}
		return &Client{
			id:      id,
			handler: handler,
			opts:    opts,
			logger:  logger.With().Str("account", string(id)).Logger(),
		}, nil
	}
}

// Client is not safe for concurrent Connect calls; the session serializes
// them. Handler callbacks run on one goroutine per connection.
type Client struct {
	id      domain.AccountID
	handler ports.ProtocolHandler
	opts    Options
	logger  zerolog.Logger

	mu         sync.Mutex
	settings   domain.ClientSettings
	configured bool
	conn       net.Conn
	connected  bool
	cancelDial context.CancelFunc
	done       chan struct{}

	// busy counts lines being handled; idle is closed when it drops to 0.
	busyMu sync.Mutex
	busy   int
	idle   chan struct{}
}

var _ ports.ProtocolClient = (*Client)(nil)

func (c *Client) Configure(settings domain.ClientSettings) error {
	if strings.TrimSpace(settings.Host) == "" {
		return errors.New("host is empty")
	}
	if settings.Port <= 0 || settings.Port > 65535 {
		return fmt.Errorf("port %d out of range", settings.Port)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = settings
	c.configured = true
	return nil
}

// Connect dials in the background. The outcome is reported to the handler.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.configured {
		return ErrNotConfigured
	}
	if c.done != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancelDial = cancel
	c.done = done
	settings := c.settings

	go c.run(ctx, settings, done)
	return nil
}

func (c *Client) run(ctx context.Context, settings domain.ClientSettings, done chan struct{}) {
	defer close(done)
	defer c.clear(done)

	conn, err := c.dial(ctx, settings)
	if err != nil {
		if ctx.Err() == nil {
			c.handler.OnError(domain.FailureConnectionFailed, domain.PolicyReconnect, err.Error())
		}
		return
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.handler.OnConnected()

	if err := c.writeLine(authLine(settings)); err != nil {
		c.fail(ctx, done, domain.FailureProtocol, err)
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		c.handle(ctx, scanner.Text())
	}

	err = scanner.Err()
	if err == nil {
		err = errors.New("connection closed by server")
	}
	c.fail(ctx, done, domain.FailureProtocol, err)
}

// handle dispatches one inbound line. Lines read after Disconnect are
// dropped.
func (c *Client) handle(ctx context.Context, line string) {
	if ctx.Err() != nil {
		return
	}
	c.beginProcessing()
	defer c.endProcessing()

	switch {
	case line == "PONG":
		c.logger.Trace().Msg("pong")
	case strings.HasPrefix(line, "OK"):
		resource := strings.TrimSpace(strings.TrimPrefix(line, "OK"))
		if resource != "" {
			c.handler.OnResourceBound(resource)
		}
		c.handler.OnReady()
	case strings.HasPrefix(line, "ERR"):
		c.handler.OnError(domain.FailureAuthentication, domain.PolicyDeactivate, strings.TrimSpace(strings.TrimPrefix(line, "ERR")))
	case strings.HasPrefix(line, "LOG "):
		c.handler.OnLog(domain.LogInfo, strings.TrimPrefix(line, "LOG "))
	default:
		c.handler.OnReceive(line)
	}
}

// fail reports a connection lost on the server side. Nothing is reported
// when the caller disconnected.
func (c *Client) fail(ctx context.Context, done chan struct{}, kind domain.FailureKind, err error) {
	c.mu.Lock()
	if c.done == done {
		c.connected = false
	}
	c.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	c.handler.OnDisconnected()
	c.handler.OnError(kind, domain.PolicyReconnect, err.Error())
}

func (c *Client) clear(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != done {
		return
	}
	c.resetLocked()
}

// resetLocked drops the current connection and cancels its reader.
func (c *Client) resetLocked() {
	conn := c.conn
	if c.cancelDial != nil {
		c.cancelDial()
	}
	c.conn = nil
	c.connected = false
	c.done = nil
	c.cancelDial = nil
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) dial(ctx context.Context, settings domain.ClientSettings) (net.Conn, error) {
	address := net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port))
	dialer := net.Dialer{Timeout: c.opts.DialTimeout}

	rawConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	if settings.TLS == "" || settings.TLS == domain.TLSModeNone {
		return rawConn, nil
	}

	conn := tls.Client(rawConn, c.tlsConfig(settings.Host))
	handshakeCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", address, err)
	}
	return conn, nil
}

func (c *Client) tlsConfig(host string) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.opts.TLSConfig != nil {
		cfg = c.opts.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

func authLine(settings domain.ClientSettings) string {
	mechanism := "PLAIN"
	for _, entry := range mechanismPreference {
		if settings.Mechanisms.Has(entry.bit) {
			mechanism = entry.name
			break
		}
	}
	return fmt.Sprintf("AUTH %s %s %s", mechanism, settings.JID, settings.Password)
}

// Disconnect closes the connection. The handler is not notified of a
// disconnect the caller asked for, and lines still in flight are dropped.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		return nil
	}
	c.resetLocked()
	return nil
}

func (c *Client) Send(payload string) error {
	if strings.ContainsAny(payload, "\r\n") {
		return ErrMultiline
	}
	return c.writeLine(payload)
}

func (c *Client) Ping() error {
	return c.writeLine("PING")
}

func (c *Client) writeLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected {
		return domain.ErrNotConnected
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) beginProcessing() {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()
	if c.busy == 0 {
		c.idle = make(chan struct{})
	}
	c.busy++
}

func (c *Client) endProcessing() {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()
	c.busy--
	if c.busy == 0 {
		close(c.idle)
	}
}

// WaitProcessing waits until the line being handled, if any, is done.
func (c *Client) WaitProcessing(timeout time.Duration) bool {
	c.busyMu.Lock()
	if c.busy == 0 {
		c.busyMu.Unlock()
		return true
	}
	idle := c.idle
	c.busyMu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-idle:
		return true
	case <-timer.C:
		return false
	}
}
