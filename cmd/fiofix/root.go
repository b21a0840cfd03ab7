package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shpitdev/fiofix/internal/app"
	"github.com/shpitdev/fiofix/internal/config"
	"github.com/shpitdev/fiofix/internal/version"
	"github.com/shpitdev/fiofix/pkg/logger"
	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
	"github.com/shpitdev/fiofix/pkg/portal"
)

// state is shared by every subcommand once the root pre-run has loaded it.
type state struct {
	configPath string
	envFile    string
	cfg        config.Config
	log        logger.Logger
}

func newRootCmd() *cobra.Command {
	st := &state{}
	root := &cobra.Command{
		Use:           "fiofix",
		Short:         "Normalize author names in the cabinet roster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&st.configPath, "config", "", "YAML config file (default fiofix.yaml when present)")
	pf.StringVar(&st.envFile, "env-file", "", "dotenv file with credentials (default .env when present)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	pf.Bool("log-json", false, "Emit JSON logs")
	pf.Bool("log-source", false, "Report the caller in log lines")

	root.AddCommand(
		scrapeCmd(st),
		fixCmd(st),
		dispatchCmd(st),
		versionCmd(),
	)
	return root
}

func (st *state) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(config.LoadOptions{ConfigPath: st.configPath, EnvFile: st.envFile})
	if err != nil {
		return configError(err)
	}

	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return configError(err)
	}
	if level == "" {
		level = cfg.LogLevel
	}
	logJSON = logJSON || cfg.LogJSON
	logger.SetupLogger(level, logJSON, logSource)

	st.cfg = cfg
	st.log = logger.GetDefault()
	return nil
}

// portalClient builds the HTTP client from config and EMAIL/PASSWORD.
func (st *state) portalClient() (*portal.Client, error) {
	creds, err := portal.LoadCredentials()
	if err != nil {
		return nil, configError(err)
	}
	c, err := portal.NewClient(portal.Options{
		BaseURL:         st.cfg.Portal.URL,
		Credentials:     creds,
		DefaultCAPath:   st.cfg.Portal.CAPath,
		PageSize:        st.cfg.Portal.PageSize,
		KeepAbbreviated: st.cfg.Portal.KeepAbbreviated,
		Timeout:         st.cfg.RequestTimeout,
		UserAgent:       version.UserAgent(),
		Logger:          st.log,
	})
	if err != nil {
		return nil, configError(err)
	}
	return c, nil
}

// runContext is cancelled on SIGINT/SIGTERM. In-flight corrections still
// finish; no new ones are issued.
func runContext(cmd *cobra.Command, log logger.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	return logger.ContextWithLogger(ctx, log), stop
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fiofix version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Current)
		},
	}
}

func scrapeCmd(st *state) *cobra.Command {
	var filter, output string
	var keepAbbreviated bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Download the author roster from the cabinet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "" {
				st.cfg.Paths.Roster = output
			}
			if cmd.Flags().Changed("keep-abbreviated") {
				st.cfg.Portal.KeepAbbreviated = keepAbbreviated
			}
			client, err := st.portalClient()
			if err != nil {
				return err
			}
			ctx, stop := runContext(cmd, st.log)
			defer stop()

			_, err = app.RunScrape(ctx, st.cfg, client, filter)
			return runError(err)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only authors whose name starts with this prefix")
	cmd.Flags().StringVar(&output, "output", "", "Roster file to write (default paths.roster)")
	cmd.Flags().BoolVar(&keepAbbreviated, "keep-abbreviated", false, `Also keep names already shaped like "Surname I. I."`)
	return cmd
}

func fixCmd(st *state) *cobra.Command {
	var mode, input, outputDir, style, noop string
	var review bool
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Normalize the roster and write the review files",
		Long: "Normalizes every roster name and writes \"changed info.json\" and \"unchanged info.json\".\n" +
			"In direct_change mode the changed names are also pushed to the cabinet.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if f.Changed("mode") {
				st.cfg.Mode = mode
			}
			if f.Changed("style") {
				st.cfg.NameStyle = style
			}
			if f.Changed("noop-policy") {
				st.cfg.NoOpPolicy = noop
			}
			if f.Changed("review-xlsx") {
				st.cfg.ReviewXLSX = review
			}
			if input != "" {
				st.cfg.Paths.Roster = input
			}
			if outputDir != "" {
				st.cfg.Paths.OutputDir = outputDir
			}
			if err := st.cfg.Validate(); err != nil {
				return configError(err)
			}

			var corrector core.Corrector
			if m, _ := st.cfg.ChangeMode(); m == schema.ModeDirectChange {
				c, err := st.portalClient()
				if err != nil {
					return err
				}
				corrector = c
			}
			ctx, stop := runContext(cmd, st.log)
			defer stop()

			res, err := app.RunFix(ctx, st.cfg, corrector)
			if errors.Is(err, app.ErrReferenceData) {
				return configError(err)
			}
			if err != nil {
				return runError(err)
			}
			if res.Dispatch != nil && res.Dispatch.Err != nil {
				return runError(fmt.Errorf("dispatch incomplete, see %s: %w", res.UpdatedPath, res.Dispatch.Err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "direct_change or changes_in_json (default from config)")
	cmd.Flags().StringVar(&input, "input", "", "Roster file to read (default paths.roster)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for result files (default paths.output_dir)")
	cmd.Flags().StringVar(&style, "style", "", "Output style for full names: full or initials")
	cmd.Flags().StringVar(&noop, "noop-policy", "", "drop or record already-correct names")
	cmd.Flags().BoolVar(&review, "review-xlsx", false, "Also write review.xlsx")
	return cmd
}

func dispatchCmd(st *state) *cobra.Command {
	var input string
	var maxTabs int
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Push a reviewed changed file to the cabinet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("max-tabs") {
				st.cfg.MaxTabs = maxTabs
			}
			if err := st.cfg.Validate(); err != nil {
				return configError(err)
			}
			client, err := st.portalClient()
			if err != nil {
				return err
			}
			ctx, stop := runContext(cmd, st.log)
			defer stop()

			rep, path, err := app.RunDispatch(ctx, st.cfg, input, client)
			if err != nil {
				return runError(err)
			}
			if rep.Err != nil {
				return runError(fmt.Errorf("dispatch incomplete, see %s: %w", path, rep.Err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", `Changed file to push (default "<output_dir>/changed info.json")`)
	cmd.Flags().IntVar(&maxTabs, "max-tabs", 0, "Concurrent corrections per batch (default from config)")
	return cmd
}
