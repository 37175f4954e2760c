package main

import (
	"github.com/spf13/cobra"

	"cameio-cli/src/apps"
	"cameio-cli/src/service"
	"cameio-cli/src/store"
	"cameio-cli/src/upload"
)

var appFlags struct {
	session  sessionFlags
	versions bool
	deploy   bool
	note     string
	uuid     string
	builds   int
	follow   bool
}

// appCmd manages the uploaded versions of the app
var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage the uploaded versions and builds of the app",
	Long: `List the versions uploaded to the build service, deploy one of them,
or list the builds recorded on this machine. With --follow, build events
published by any machine to the configured event brokers are printed live.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cmd.Flags().Changed("builds") || appFlags.follow {
			m := &apps.Manager{Printer: printer, Log: log}
			if !appFlags.follow {
				history, err := openHistory(ctx)
				if err != nil {
					return err
				}
				m.History = history
				return m.Builds(ctx, appFlags.builds)
			}
			msgs, err := followBuilds(ctx)
			if err != nil {
				return err
			}
			return m.Follow(ctx, msgs)
		}

		dir, err := workDir()
		if err != nil {
			return err
		}
		project, err := store.RequireProject(dir)
		if err != nil {
			return err
		}
		dash, err := newDashboard()
		if err != nil {
			return err
		}
		m := &apps.Manager{
			Dashboard: dash,
			Uploader:  upload.NewClient(dash, project, dir, printer, log),
			Sessions:  newSessions(dash, &appFlags.session, prompter),
			Project:   project,
			Printer:   printer,
			Log:       log,
		}

		switch {
		case appFlags.deploy:
			return m.Deploy(ctx, appFlags.note, appFlags.uuid)
		case appFlags.versions:
			return m.Versions(ctx)
		}
		return service.Usagef("Invalid command")
	},
}

func init() {
	f := appCmd.Flags()
	f.BoolVarP(&appFlags.versions, "versions", "v", false, "List the uploaded versions")
	f.BoolVarP(&appFlags.deploy, "deploy", "d", false, "Upload the current content, or the --uuid version, and make it active")
	f.StringVarP(&appFlags.note, "note", "n", "", "Note for the uploaded version")
	f.StringVarP(&appFlags.uuid, "uuid", "u", "", "Version to deploy")
	f.IntVarP(&appFlags.builds, "builds", "b", 20, "List up to N recorded builds")
	f.Lookup("builds").NoOptDefVal = "20"
	f.BoolVarP(&appFlags.follow, "follow", "f", false, "Print build events from the event brokers as they are published")
	addSessionFlags(appCmd, &appFlags.session)
	rootCmd.AddCommand(appCmd)
}
