package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cameio-cli/src/cordova"
	"cameio-cli/src/devserver"
	"cameio-cli/src/store"
)

var serveFlags struct {
	port         int
	consoleLogs  bool
	serverLogs   bool
	noBrowser    bool
	noLiveReload bool
}

// serveCmd runs the development server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local development server for app dev/testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		project := store.OpenProject(dir)

		srv := devserver.New(devserver.Options{
			Dir:           dir,
			Port:          serveFlags.port,
			LiveReload:    !serveFlags.noLiveReload,
			ConsoleLogs:   serveFlags.consoleLogs,
			ServerLogs:    serveFlags.serverLogs,
			WatchPatterns: projectStrings(project, "watchPatterns"),
		}, printer, log)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return srv.Run(ctx)
		})
		if tasks := projectStrings(project, "gulpStartupTasks"); len(tasks) > 0 {
			g.Go(func() error {
				printer.Info("Gulp startup tasks: %v", tasks)
				if err := newRunner().Run(ctx, dir, "gulp", tasks...); err != nil && ctx.Err() == nil {
					printer.Error("Gulp startup tasks failed: %v", err)
				}
				return nil
			})
		}
		if !serveFlags.noBrowser {
			g.Go(func() error {
				openBrowser(ctx, fmt.Sprintf("http://localhost:%d", serveFlags.port))
				return nil
			})
		}
		return g.Wait()
	},
}

// openBrowser opens url once the server had a moment to listen.
func openBrowser(ctx context.Context, url string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(500 * time.Millisecond):
	}
	if err := devserver.OpenBrowser(url); err != nil {
		log.Debug("open browser: %v", err)
	}
}

// projectStrings reads a string list from the project file.
func projectStrings(project store.Store, key string) []string {
	raw, ok := project.Get(key)
	if !ok {
		return nil
	}
	list, _ := raw.([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// addressCmd prints the addresses the dev server is reachable on
var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "List the addresses the dev server can be reached on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addrs, err := devserver.Addresses()
		if err != nil {
			return err
		}
		if len(addrs) == 0 {
			printer.Warn("No network address found, using localhost")
			addrs = []string{"localhost"}
		}
		for _, a := range addrs {
			printer.Plain(" %s", a)
		}
		return nil
	},
}

// cordovaCommand builds a passthrough command. Flags are parsed by
// cordova.ParseArgs so unknown ones reach cordova untouched.
func cordovaCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:                name + " [options] <PLATFORM>",
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, a := range args {
				if a == "--help" || a == "-h" {
					return cmd.Help()
				}
			}
			opts, err := cordova.ParseArgs(name, args)
			if err != nil {
				return err
			}
			dir, err := workDir()
			if err != nil {
				return err
			}
			return cordova.NewTask(dir, newRunner(), printer, log).Run(cmd.Context(), opts)
		},
	}
}

var cordovaSummaries = map[string]string{
	"platform": "Add platform target for building an Cameio app",
	"run":      "Run an Cameio project on a connected device",
	"emulate":  "Emulate an Cameio project on a simulator or emulator",
	"build":    "Locally build an Cameio project for a given platform",
	"plugin":   "Add a Cordova plugin",
	"prepare":  "Copy project files into the native platform projects",
	"compile":  "Compile the native platform projects",
}

func init() {
	f := serveCmd.Flags()
	f.IntVarP(&serveFlags.port, "port", "p", devserver.DefaultPort, "Dev server HTTP port")
	f.BoolVarP(&serveFlags.consoleLogs, "consolelogs", "c", false, "Print app console logs to Cameio CLI")
	f.BoolVarP(&serveFlags.serverLogs, "serverlogs", "s", false, "Print dev server logs to Cameio CLI")
	f.BoolVarP(&serveFlags.noBrowser, "nobrowser", "b", false, "Disable launching a browser")
	f.BoolVar(&serveFlags.noLiveReload, "nolivereload", false, "Do not start live reload")

	rootCmd.AddCommand(serveCmd)
	for _, name := range cordova.Commands {
		rootCmd.AddCommand(cordovaCommand(name, cordovaSummaries[name]))
	}
	rootCmd.AddCommand(addressCmd)
}
