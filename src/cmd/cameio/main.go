// Package main is the cameio command line tool: project scaffolding, the
// dev server, cordova passthrough and the remote build service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cameio-cli/src/service"
	"cameio-cli/src/store"
	"cameio-cli/src/ui"
	"cameio-cli/src/versioncheck"
)

// version is overridden at link time.
var version = "1.3.0"

// errNoCommand ends a run that only printed the task list.
var errNoCommand = errors.New("no command")

var (
	debugFlag       bool
	traceFlag       bool
	statsOptOutFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "cameio",
	Short:         "Cameio - create, serve and package hybrid apps",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context())
	},
}

func init() {
	// RunE is assigned here rather than in the literal to avoid an
	// initialization cycle (printTasks refers to rootCmd).
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if statsOptOutFlag {
			priv := store.OpenPrivate(appConfig.PrivateDir, "cameio.config")
			priv.Set("statsOptOut", true)
			if err := priv.Save(); err != nil {
				return err
			}
			printer.Plain("Successful stats opt-out")
			return nil
		}
		printTasks()
		return errNoCommand
	}
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "Write build service spans to the private directory")
	rootCmd.Flags().BoolVar(&statsOptOutFlag, "stats-opt-out", false, "Opt out of usage statistics")
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

const banner = `  ___ __ _ _ __ ___   ___(_) ___
 / __/ _' | '_ ' _ \ / _ \ |/ _ \
| (_| (_| | | | | | |  __/ | (_) |
 \___\__,_|_| |_| |_|\___|_|\___/  CLI v%s
`

// printTasks prints the banner and one line per command.
func printTasks() {
	fmt.Fprintf(os.Stdout, banner, version)
	fmt.Fprintln(os.Stderr, "\nUsage: cameio task args\n\n=======================")
	fmt.Fprint(os.Stderr, "\nAvailable tasks: (use --help or -h for more info)\n\n")
	fmt.Fprint(os.Stderr, ui.DefaultStyles().TaskList(taskLines(rootCmd)))
	fmt.Fprintln(os.Stderr)
}

func taskLines(root *cobra.Command) []ui.TaskLine {
	var lines []ui.TaskLine
	for _, c := range root.Commands() {
		if c.Hidden || c.Short == "" || c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		lines = append(lines, ui.TaskLine{Name: c.Name(), Summary: c.Short})
	}
	return lines
}

// failMessage renders err for the fail path.
func failMessage(err error) string {
	return fmt.Sprintf("%s (CLI v%s)", strings.Join(service.Messages(service.WrapError(err)), "\n"), version)
}

// fail prints err, the usage of cmd for argument errors, and returns the
// exit code.
func fail(cmd *cobra.Command, err error) int {
	if errors.Is(err, errNoCommand) {
		return 1
	}
	p := printer
	if p == nil {
		p = ui.Stdio()
	}
	p.Error("%s", failMessage(err))

	var usage *service.UsageError
	if errors.As(err, &usage) && cmd != nil {
		fmt.Fprintln(os.Stderr, cmd.UsageString())
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	defer teardown()

	code := 0
	if err != nil {
		code = fail(cmd, err)
	}
	warnOutdated()
	return code
}

// warnOutdated prints the banner of a finished version check, waiting a
// moment for one still in flight.
func warnOutdated() {
	if checker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	checker.PrintWarning(os.Stdout, checker.Wait(ctx))
}

var checker *versioncheck.Checker
