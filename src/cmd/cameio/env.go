package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cameio-cli/src/broker"
	"cameio-cli/src/config"
	"cameio-cli/src/contracts"
	"cameio-cli/src/dashboard"
	"cameio-cli/src/fetch"
	"cameio-cli/src/logger"
	"cameio-cli/src/prompt"
	"cameio-cli/src/runner"
	"cameio-cli/src/service"
	"cameio-cli/src/session"
	"cameio-cli/src/store"
	"cameio-cli/src/telemetry"
	"cameio-cli/src/ui"
	"cameio-cli/src/versioncheck"
)

// fetchTimeout bounds manifest and archive downloads outside the dashboard.
const fetchTimeout = 5 * time.Minute

var (
	appConfig *config.Config
	log       logger.Logger = logger.NewSilentLogger()
	printer   *ui.Printer
	prompter  prompt.Prompter

	closers []func(context.Context) error
)

// setup loads the configuration and the ambient services every command
// shares. It runs before any command.
func setup(ctx context.Context) error {
	printer = ui.Stdio()
	prompter = prompt.NewTeaPrompter(os.Stdin, os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("Configuration error: %w", err)
	}
	if debugFlag {
		cfg.Debug = true
	}
	if traceFlag {
		cfg.Trace = true
	}
	appConfig = cfg

	if zl, err := logger.NewFileLogger(cfg.PrivateDir, cfg.Debug); err == nil {
		log = zl
	}
	if zl, ok := log.(*logger.ZapLogger); ok {
		closers = append(closers, func(context.Context) error { return zl.Sync() })
	}

	if cfg.Trace {
		shutdown, err := telemetry.InitTracer(ctx, "cameio-cli", version, cfg.PrivateDir)
		if err != nil {
			log.Error("tracing disabled: %v", err)
		} else {
			closers = append(closers, shutdown)
		}
	}

	if client, err := newFetch(); err == nil {
		checker = versioncheck.New(store.OpenPrivate(cfg.PrivateDir, "cameio.config"), client, cfg.RegistryURL, version, log)
		checker.Start(ctx)
	}
	return nil
}

// teardown flushes the logger and the tracer.
func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i](ctx)
	}
	closers = nil
}

func workDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return dir, nil
}

func newFetch() (*fetch.Client, error) {
	return fetch.NewClient(appConfig.Proxy, fetchTimeout, log)
}

func newRunner() *runner.Exec {
	return runner.NewExec(log)
}

func newDashboard() (*dashboard.Client, error) {
	return dashboard.NewClient(appConfig, log)
}

// sessionFlags are the --email/--password flags of commands that log in.
type sessionFlags struct {
	email    string
	password string
}

func (f *sessionFlags) credentials() session.Credentials {
	creds := session.Credentials{Email: appConfig.Email, Password: appConfig.Password}
	if f.email != "" {
		creds.Email = f.email
	}
	if f.password != "" {
		creds.Password = f.password
	}
	return creds
}

func newSessions(dash *dashboard.Client, flags *sessionFlags, p prompt.Prompter) *session.Manager {
	cookies := store.OpenPrivate(appConfig.PrivateDir, session.CookieStoreName)
	return session.NewManager(dash, cookies, dash.DashURL(), flags.credentials(), p, printer, log)
}

// openHistory opens the Postgres history when a DSN is configured, the
// JSON lines file in the private directory otherwise.
func openHistory(ctx context.Context) (store.History, error) {
	if appConfig.HistoryDSN != "" {
		h, err := store.NewPostgresHistory(ctx, appConfig.HistoryDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open build history: %w", err)
		}
		closers = append(closers, func(context.Context) error { return h.Close() })
		return h, nil
	}
	return store.NewFileHistory(appConfig.PrivateDir), nil
}

// newBuildEvents publishes to Redpanda when brokers are configured. Without
// them events go to an in-memory broker whose only subscriber is the debug
// log.
func newBuildEvents(ctx context.Context, history store.History) (*broker.BuildEvents, error) {
	brokers := compact(appConfig.EventBrokers)
	if len(brokers) > 0 {
		b, err := broker.NewRedpandaBroker(brokers, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to event brokers: %w", err)
		}
		closers = append(closers, func(context.Context) error { return b.Close() })
		return broker.NewBuildEvents(b, history, log), nil
	}

	b := broker.NewInMemoryBroker()
	ch, err := b.Subscribe(ctx, contracts.TopicBuilds, "cameio-cli")
	if err != nil {
		return nil, err
	}
	go func() {
		for msg := range ch {
			log.Debug("build event %s: %s", msg.Key, msg.Value)
		}
	}()
	closers = append(closers, func(context.Context) error { return b.Close() })
	return broker.NewBuildEvents(b, history, log), nil
}

// followBuilds tails the build event topic on the configured brokers. Each
// follower reads every partition on its own, without a consumer group.
func followBuilds(ctx context.Context) (<-chan broker.Message, error) {
	brokers := compact(appConfig.EventBrokers)
	if len(brokers) == 0 {
		return nil, service.Usagef("--follow needs event brokers (event_brokers or CAMEIO_EVENT_BROKERS)")
	}
	b, err := broker.NewRedpandaBroker(brokers, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event brokers: %w", err)
	}
	closers = append(closers, func(context.Context) error { return b.Close() })
	return b.Subscribe(ctx, contracts.TopicBuilds, "")
}

func compact(list []string) []string {
	var out []string
	for _, s := range list {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
