package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	sqlitequeue "github.com/bnema/chatlink/internal/adapters/queue/sqlite"
	statusadapter "github.com/bnema/chatlink/internal/adapters/render/status"
	tomlrepo "github.com/bnema/chatlink/internal/adapters/repo/toml"
	standbylocal "github.com/bnema/chatlink/internal/adapters/standby/local"
	"github.com/bnema/chatlink/internal/application"
	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
)

const (
	networkPollInterval = 5 * time.Second
	shutdownTimeout     = 10 * time.Second
	// statusCommand on an input line prints the overview with live sessions.
	statusCommand = "/status"
)

type daemon struct {
	runtime     *application.Runtime
	queue       *application.EventQueue
	store       *sqlitequeue.Store
	standby     *standbylocal.Service
	network     ports.NetworkMonitor
	watcher     *tomlrepo.Watcher
	logger      zerolog.Logger
	formatEvent func(domain.Event, time.Time) string
	now         func() time.Time
	overview    func(context.Context) (application.Overview, error)
	render      func(application.Overview, statusadapter.RenderOptions) (string, error)

	outMu sync.Mutex
}

type daemonOptions struct {
	// input, when set, is read as "<account> <payload>" lines to send, or
	// the status command.
	input io.Reader
	// startup runs the restore and the first reconciliation; nil runs it
	// inline.
	startup func(ctx context.Context, fn func(context.Context) error) error
}

// run is the event consumer loop. It returns once ctx is done and the
// runtime has been shut down.
func (d *daemon) run(ctx context.Context, out io.Writer, opts daemonOptions) error {
	defer d.release()

	startup := opts.startup
	if startup == nil {
		startup = func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
	}

	err := startup(ctx, func(ctx context.Context) error {
		if restored := d.queue.Restore(ctx); restored > 0 {
			d.logger.Info().Int("count", restored).Msg("pending events restored")
		}
		return d.runtime.Start(ctx)
	})
	if err != nil {
		d.shutdown()
		return fmt.Errorf("start runtime: %w", err)
	}

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		if err := d.watcher.Run(ctx, d.runtime.Update); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("accounts watcher stopped")
		}
	}()
	go func() {
		defer workers.Done()
		d.watchNetwork(ctx)
	}()

	if opts.input != nil {
		go d.readInput(ctx, opts.input, out)
	}

	signal, unsubscribe := d.queue.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("shutting down")
			d.shutdown()
			workers.Wait()
			d.drain(context.Background(), out)
			return nil
		case <-signal:
			d.drain(ctx, out)
		case trigger := <-d.standby.Triggers():
			if err := d.runtime.HandleTrigger(ctx, trigger.Name()); err != nil {
				d.logger.Warn().Err(err).Str("trigger", trigger.Name()).Msg("handle trigger")
			}
		}
	}
}

// drain prints every queued event. A background-access request is
// answered right away since the consumer is the one allowed to ask.
func (d *daemon) drain(ctx context.Context, out io.Writer) {
	for {
		event, ok := d.queue.Dequeue(ctx)
		if !ok {
			return
		}

		d.outMu.Lock()
		_, _ = fmt.Fprintln(out, d.formatEvent(event, d.now()))
		d.outMu.Unlock()

		if request, ok := event.(domain.RequestEvent); ok && request.Type == domain.RequestBackgroundAccess {
			d.runtime.RequestBackgroundAccess(ctx)
		}
	}
}

func (d *daemon) watchNetwork(ctx context.Context) {
	ticker := time.NewTicker(networkPollInterval)
	defer ticker.Stop()

	available := d.network.InternetAvailable()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := d.network.InternetAvailable()
			if now == available {
				continue
			}
			available = now

			kind := domain.LifecycleInternetNotAvailable
			if available {
				kind = domain.LifecycleInternetAvailable
			}
			d.logger.Info().Str("change", string(kind)).Msg("network path changed")
			d.runtime.HandleLifecycle(ctx, kind, false, "")
		}
	}
}

func (d *daemon) readInput(ctx context.Context, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == statusCommand {
			d.printStatus(ctx, out)
			continue
		}

		id, payload, ok := strings.Cut(line, " ")
		if !ok || id == "" || payload == "" {
			d.logger.Warn().Msg("input lines must be \"<account> <payload>\"")
			continue
		}
		if !d.runtime.Send(domain.AccountID(id), payload) {
			d.logger.Warn().Str("account", id).Msg("payload not sent")
		}
	}
	if err := scanner.Err(); err != nil {
		d.logger.Warn().Err(err).Msg("read input")
	}
}

// printStatus renders the configured accounts together with the sessions
// the runtime holds right now.
func (d *daemon) printStatus(ctx context.Context, out io.Writer) {
	overview, err := d.overview(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("load overview")
		return
	}

	rendered, err := d.render(overview, statusadapter.RenderOptions{Sessions: d.runtime.Registry().Snapshot})
	if err != nil {
		d.logger.Warn().Err(err).Msg("render overview")
		return
	}

	d.outMu.Lock()
	defer d.outMu.Unlock()
	_, _ = fmt.Fprintln(out, rendered)
}

func (d *daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	d.runtime.HandleLifecycle(ctx, domain.LifecycleApplicationExiting, false, "")
	d.runtime.Close(ctx)
}

func (d *daemon) release() {
	d.standby.Close()
	if err := d.store.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("close event store")
	}
}
