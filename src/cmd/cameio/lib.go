package main

import (
	"os"

	"github.com/spf13/cobra"

	"cameio-cli/src/libupdate"
	"cameio-cli/src/sass"
	"cameio-cli/src/service"
)

var libVersion string

// libCmd shows or updates the framework library in www/lib/cameio
var libCmd = &cobra.Command{
	Use:   "lib [update|up]",
	Short: "Gets framework library version or updates the Cameio library",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 || (len(args) == 1 && args[0] != "update" && args[0] != "up") {
			return service.Usagef("Invalid command")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		client, err := newFetch()
		if err != nil {
			return err
		}
		u := &libupdate.Updater{
			Dir:       dir,
			Fetch:     client,
			Runner:    newRunner(),
			Prompter:  prompter,
			Printer:   printer,
			Log:       log,
			CodeHost:  appConfig.CodeHost,
			GitHubOrg: appConfig.GitHubOrg,
			Progress:  os.Stderr,
		}
		if len(args) == 0 {
			return u.PrintVersions(cmd.Context())
		}
		return u.Update(cmd.Context(), libVersion)
	},
}

// setupCmd configures project tooling
var setupCmd = &cobra.Command{
	Use:   "setup [sass]",
	Short: "Configure the project with a build tool",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 || args[0] != "sass" {
			return service.Usagef("Invalid command")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := workDir()
		if err != nil {
			return err
		}
		s := &sass.Setup{Runner: newRunner(), Printer: printer, Log: log}
		return s.Run(cmd.Context(), dir)
	},
}

func init() {
	libCmd.Flags().StringVarP(&libVersion, "version", "v", "", "Specific Cameio version, otherwise it defaults to the latest version")
	rootCmd.AddCommand(libCmd)
	rootCmd.AddCommand(setupCmd)
}
