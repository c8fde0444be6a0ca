package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ui_verification/application/verifier"
	"ui_verification/domain/entities"
	"ui_verification/domain/interfaces"
	"ui_verification/infrastructure/browser"
	"ui_verification/infrastructure/config"
	"ui_verification/infrastructure/security"
	"ui_verification/infrastructure/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type TerminalInterface struct {
	root   *cobra.Command
	viper  *viper.Viper
	logger *logrus.Logger
	out    io.Writer
}

func NewTerminalInterface() (*TerminalInterface, error) {
	return newTerminalInterface(os.Stdout, config.NewViper()), nil
}

func newTerminalInterface(out io.Writer, v *viper.Viper) *TerminalInterface {
	// Setup logger
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	t := &TerminalInterface{
		viper:  v,
		logger: logger,
		out:    out,
	}
	t.root = t.newRootCommand()
	return t
}

// Run executes the command line. SIGINT and SIGTERM cancel the run; the
// browser session is still closed before Run returns.
func (t *TerminalInterface) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return t.root.ExecuteContext(ctx)
}

func (t *TerminalInterface) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ui-verify",
		Short: "Verify that the app's tab icons render",
		Long: `ui-verify opens the app in a browser, waits for the navigation tab,
checks that an icon font glyph is visible and saves a screenshot.

Every flag can also be set with a VERIFY_* environment variable or a .env file,
e.g. --base-url is VERIFY_BASE_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(t.viper, cmd.Flags()); err != nil {
				return err
			}
			return t.applyLogLevel(t.viper.GetString("log-level"))
		},
		RunE: t.runVerify,
	}

	pf := root.PersistentFlags()
	pf.String("driver", t.viper.GetString("driver"), "browser driver: playwright, rod or selenium")
	pf.String("report-dir", t.viper.GetString("report-dir"), "directory holding the run history")
	pf.String("log-level", t.viper.GetString("log-level"), "log level: debug, info, warn, error")

	addRunFlags(root, t.viper)

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the verification scenario (default)",
		RunE:  t.runVerify,
	}
	addRunFlags(run, t.viper)

	history := &cobra.Command{
		Use:   "history",
		Short: "Show previous verification runs",
		RunE:  t.showHistory,
	}
	history.Flags().Int("limit", 10, "number of runs to show, 0 for all")

	install := &cobra.Command{
		Use:   "install",
		Short: "Download the browser the selected driver needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return browser.Install(t.viper.GetString("driver"), t.logger)
		},
	}

	root.AddCommand(run, history, install)
	return root
}

func addRunFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.Flags()
	f.String("base-url", v.GetString("base-url"), "address of the running app")
	f.String("scenario", v.GetString("scenario"), "YAML scenario file replacing the built-in tab icon scenario")
	f.String("screenshot-path", v.GetString("screenshot-path"), "relative path of the PNG screenshot")
	f.Bool("full-page", v.GetBool("full-page"), "capture the whole page instead of the viewport")
	f.Bool("headless", v.GetBool("headless"), "run the browser without a window")
	f.Duration("slow-mo", v.GetDuration("slow-mo"), "delay between browser operations")
	f.Duration("navigation-timeout", v.GetDuration("navigation-timeout"), "upper bound for the page to load")
	f.Duration("element-timeout", v.GetDuration("element-timeout"), "upper bound for the navigation tab to become visible")
	f.Duration("assert-timeout", v.GetDuration("assert-timeout"), "bound for immediate visibility assertions")
	f.Bool("wait-for-server", v.GetBool("wait-for-server"), "keep retrying while the app refuses connections")
	f.String("nav-text", v.GetString("nav-text"), "exact text of the navigation tab to wait for")
	f.String("icon-style-marker", v.GetString("icon-style-marker"), "style substring identifying the icon font")
	f.Bool("allow-remote", v.GetBool("allow-remote"), "allow targets outside localhost and private networks")
	f.Bool("install-browsers", v.GetBool("install-browsers"), "install browsers before the run")
}

func (t *TerminalInterface) applyLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	t.logger.SetLevel(lvl)
	return nil
}

func (t *TerminalInterface) runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(t.viper)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	scenario, err := cfg.Scenario()
	if err != nil {
		return err
	}

	store, err := storage.NewReportStore(cfg.ReportDir)
	if err != nil {
		return err
	}

	v := verifier.NewVerifier(
		func() (interfaces.Browser, error) { return browser.New(cfg, t.logger) },
		store,
		security.NewSecurityLayer(t.logger, cfg.AllowRemote),
		t.logger,
		verifier.Options{
			NavigationTimeout: cfg.NavigationTimeout,
			AssertTimeout:     cfg.AssertTimeout,
			PollInterval:      cfg.PollInterval,
			WaitForServer:     cfg.WaitForServer,
		},
	)

	fmt.Fprintf(t.out, "Verifying %q with %s\n", scenario.Name, cfg.Driver)
	report, err := v.Run(cmd.Context(), scenario)
	t.printReport(report)
	return err
}

func (t *TerminalInterface) printReport(report *entities.Report) {
	for _, step := range report.Steps {
		if step.Passed {
			fmt.Fprintf(t.out, "  PASS  %s (%s)\n", step.Name, step.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(t.out, "  FAIL  %s (%s): %s\n", step.Name, step.Duration.Round(time.Millisecond), step.ErrorKind)
	}

	if report.Passed() {
		fmt.Fprintf(t.out, "PASSED in %s, screenshot: %s\n", report.Duration().Round(time.Millisecond), report.Screenshot)
		return
	}
	fmt.Fprintf(t.out, "FAILED: %s\n", report.Error)
}

func (t *TerminalInterface) showHistory(cmd *cobra.Command, args []string) error {
	store, err := storage.NewReportStore(t.viper.GetString("report-dir"))
	if err != nil {
		return err
	}

	history, err := store.LoadHistory()
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(t.out, "No runs recorded")
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		fmt.Fprintf(t.out, "%s  %s  %-6s  %-10s  %-12s  %s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Status, r.Driver, r.Scenario, r.Duration().Round(time.Millisecond))
	}
	return nil
}
