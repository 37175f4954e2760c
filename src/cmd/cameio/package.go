package main

import (
	"github.com/spf13/cobra"

	"cameio-cli/src/packaging"
	"cameio-cli/src/store"
	"cameio-cli/src/upload"
)

// signingFlag binds one signing value flag to its dashed field name.
type signingFlag struct {
	name      string
	shorthand string
	usage     string
	file      bool
}

var signingFlags = []signingFlag{
	{"android-keystore-file", "k", "Android keystore file", true},
	{"android-keystore-alias", "a", "Android keystore alias", false},
	{"android-keystore-password", "w", "Android keystore password", false},
	{"android-key-password", "r", "Android key password", false},
	{"ios-certificate-file", "c", "iOS certificate file", true},
	{"ios-certificate-password", "d", "iOS certificate password", false},
	{"ios-profile-file", "f", "iOS mobile provisioning profile", true},
}

var packageFlags struct {
	session      sessionFlags
	noEmail      bool
	output       string
	clearSigning bool
	values       map[string]*string
}

// packageCmd submits a remote build
var packageCmd = &cobra.Command{
	Use:     "package <MODE> <PLATFORM>",
	Aliases: []string{"pack"},
	Short:   "Use the build service to build an app package",
	Long: `Upload the app content and build release or debug packages on the build
service. MODE is "debug" or "release", PLATFORM is "android" and/or "ios".
Missing signing values are prompted for and cached on the service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
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
		sessions := newSessions(dash, &packageFlags.session, prompter)

		history, err := openHistory(ctx)
		if err != nil {
			return err
		}
		events, err := newBuildEvents(ctx, history)
		if err != nil {
			return err
		}

		p := packaging.New(packaging.Config{
			Dashboard: dash,
			Uploader:  upload.NewClient(dash, project, dir, printer, log),
			Sessions:  sessions,
			Project:   project,
			Private: func(appID string) store.Store {
				return store.OpenPrivate(appConfig.PrivateDir, appID)
			},
			Prompter: prompter,
			Printer:  printer,
			Events:   events,
			Log:      log,
			Dir:      dir,
		})
		if packageFlags.clearSigning {
			return p.ClearSigning(ctx)
		}

		opts := packaging.Options{
			Args:    args,
			Values:  map[string]string{},
			Files:   map[string]string{},
			NoEmail: packageFlags.noEmail,
			Output:  packageFlags.output,
		}
		for _, sf := range signingFlags {
			if !cmd.Flags().Changed(sf.name) {
				continue
			}
			v := *packageFlags.values[sf.name]
			if sf.file {
				opts.Files[sf.name] = v
			} else {
				opts.Values[sf.name] = v
			}
		}
		return p.Run(ctx, opts)
	},
}

var uploadFlags struct {
	session sessionFlags
	note    string
}

// uploadCmd uploads the app content as a new version
var uploadCmd = &cobra.Command{
	Use:     "upload",
	Aliases: []string{"up"},
	Short:   "Upload an app to your Cameio account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		sess, err := newSessions(dash, &uploadFlags.session, prompter).Get(cmd.Context())
		if err != nil {
			return err
		}
		_, err = upload.NewClient(dash, project, dir, printer, log).Upload(cmd.Context(), sess, uploadFlags.note)
		return err
	},
}

var loginFlags sessionFlags

// loginCmd logs in and caches the session cookies
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to your Cameio account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dash, err := newDashboard()
		if err != nil {
			return err
		}
		_, err = newSessions(dash, &loginFlags, prompter).Get(cmd.Context())
		return err
	},
}

func addSessionFlags(cmd *cobra.Command, flags *sessionFlags) {
	cmd.Flags().StringVarP(&flags.email, "email", "e", "", "Cameio account email")
	cmd.Flags().StringVarP(&flags.password, "password", "p", "", "Cameio account password")
}

func init() {
	f := packageCmd.Flags()
	f.BoolVarP(&packageFlags.noEmail, "no-email", "n", false, "Do not send a build package email")
	f.StringVarP(&packageFlags.output, "output", "o", "", "File path to save the downloaded package to")
	f.BoolVarP(&packageFlags.clearSigning, "clear-signing", "l", false, "Clear out all signing data stored on the build service")
	packageFlags.values = map[string]*string{}
	for _, sf := range signingFlags {
		packageFlags.values[sf.name] = f.StringP(sf.name, sf.shorthand, "", sf.usage)
	}
	addSessionFlags(packageCmd, &packageFlags.session)
	rootCmd.AddCommand(packageCmd)

	addSessionFlags(uploadCmd, &uploadFlags.session)
	uploadCmd.Flags().StringVar(&uploadFlags.note, "note", "", "The note to signify the upload")
	rootCmd.AddCommand(uploadCmd)

	addSessionFlags(loginCmd, &loginFlags)
	rootCmd.AddCommand(loginCmd)
}
