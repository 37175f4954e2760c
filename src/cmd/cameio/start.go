package main

import (
	"os"

	"github.com/spf13/cobra"

	"cameio-cli/src/sass"
	"cameio-cli/src/scaffold"
	"cameio-cli/src/service"
)

var startOpts scaffold.Options

// startCmd creates a new project
var startCmd = &cobra.Command{
	Use:   "start <PATH> [template]",
	Short: "Starts a new Cameio project in the specified PATH",
	Long: `Create a new Cameio app in PATH.

The template is a starter name (tabs, sidemenu, blank), a Codepen URL,
a GitHub repository URL, "creator:<id>" or a local directory.
Defaults to the "tabs" starter.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args) > 2 {
			return service.Usagef("Invalid command")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := startOpts
		opts.Dir = args[0]
		if len(args) > 1 {
			opts.Template = args[1]
		}

		client, err := newFetch()
		if err != nil {
			return err
		}
		r := newRunner()
		starter := scaffold.New(scaffold.Config{
			Fetch:     client,
			Git:       scaffold.GitCloner{},
			Runner:    r,
			Sass:      &sass.Setup{Runner: r, Printer: printer, Log: log},
			Prompter:  prompter,
			Printer:   printer,
			Log:       log,
			GitHubOrg: appConfig.GitHubOrg,
			APIURL:    appConfig.APIURL,
		})
		starter.Progress = os.Stderr
		return starter.Start(cmd.Context(), opts)
	},
}

func init() {
	f := startCmd.Flags()
	f.StringVarP(&startOpts.AppName, "appname", "a", "", "Human readable name for the app (Use quotes around the name)")
	f.StringVarP(&startOpts.PackageID, "id", "i", "", "Package name for <widget id> config, ex: com.mycompany.myapp")
	f.BoolVarP(&startOpts.NoCordova, "no-cordova", "w", false, "Create a basic structure without Cordova requirements")
	f.BoolVarP(&startOpts.Sass, "sass", "s", false, "Setup the project to use Sass CSS precompiling")
	f.StringVarP(&startOpts.Template, "template", "t", "", "Starter template name")
	f.StringVarP(&startOpts.Lib, "lib", "l", "", "Framework library path or a local framework checkout")
	f.BoolVar(&startOpts.IOS, "ios", false, "Add the ios platform")
	f.BoolVar(&startOpts.Android, "android", false, "Add the android platform")

	rootCmd.AddCommand(startCmd)
}
