// Package cordova passes project commands through to the cordova CLI,
// optionally serving the app with live reload while it runs on a device.
package cordova

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"cameio-cli/src/configxml"
	"cameio-cli/src/devserver"
	"cameio-cli/src/logger"
	"cameio-cli/src/runner"
	"cameio-cli/src/ui"
)

// Commands are the cordova commands passed through.
var Commands = []string{"platform", "run", "emulate", "build", "plugin", "prepare", "compile"}

// Options are the parsed arguments of a passthrough command.
type Options struct {
	Command     string
	Args        []string
	LiveReload  bool
	Port        int
	ConsoleLogs bool
	ServerLogs  bool
}

// ParseArgs splits the live reload flags from the arguments that go to
// cordova unchanged.
func ParseArgs(command string, args []string) (Options, error) {
	opts := Options{Command: command, Port: devserver.DefaultPort}
	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "--livereload", "-l":
			opts.LiveReload = true
		case "--consolelogs", "-c":
			opts.ConsoleLogs = true
		case "--serverlogs", "-s":
			opts.ServerLogs = true
		case "--port", "-p":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s needs a value", a)
			}
			port, err := strconv.Atoi(args[i+1])
			if err != nil || port < 0 || port > 65535 {
				return opts, fmt.Errorf("invalid port %q", args[i+1])
			}
			opts.Port = port
			i++
		case "--livereload-port", "-r":
			// reload events share the dev server port
			if i+1 < len(args) {
				i++
			}
		default:
			opts.Args = append(opts.Args, a)
		}
	}
	if opts.LiveReload && opts.Command != "run" && opts.Command != "emulate" {
		opts.LiveReload = false
	}
	return opts, nil
}

// Server is a running dev server.
type Server interface {
	Run(ctx context.Context) error
}

// Task runs cordova commands in a project.
type Task struct {
	Dir     string
	Runner  runner.Runner
	Printer *ui.Printer
	Log     logger.Logger
	// NewServer builds the live reload server.
	NewServer func(devserver.Options) Server
	// Host is the address the device reaches the dev server on.
	Host func() string
}

// NewTask creates a task for the project in dir.
func NewTask(dir string, r runner.Runner, printer *ui.Printer, log logger.Logger) *Task {
	return &Task{
		Dir:     dir,
		Runner:  r,
		Printer: printer,
		Log:     log,
		NewServer: func(o devserver.Options) Server {
			return devserver.New(o, printer, log)
		},
		Host: devserver.LiveReloadHost,
	}
}

// Run runs the command. With live reload the dev server keeps serving
// after cordova returns, until ctx is done.
func (t *Task) Run(ctx context.Context, opts Options) error {
	if err := configxml.ResetContent(t.Dir, false); err != nil {
		return err
	}
	args := append([]string{opts.Command}, opts.Args...)
	if !opts.LiveReload {
		return t.Runner.Run(ctx, t.Dir, "cordova", args...)
	}

	url := fmt.Sprintf("http://%s:%d", t.Host(), opts.Port)
	if err := configxml.SetDevServer(t.Dir, url); err != nil {
		return err
	}
	defer func() {
		if err := configxml.ResetContent(t.Dir, false); err != nil {
			t.Log.Error("reset config.xml: %v", err)
		}
	}()

	srv := t.NewServer(devserver.Options{
		Dir:         t.Dir,
		Port:        opts.Port,
		LiveReload:  true,
		ConsoleLogs: opts.ConsoleLogs,
		ServerLogs:  opts.ServerLogs,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		if err := t.Runner.Run(gctx, t.Dir, "cordova", args...); err != nil {
			return err
		}
		t.Printer.Info("Live reload running at %s. Press Ctrl+C to stop.", url)
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
