package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metcalfc/pagepal/internal/api"
	"github.com/metcalfc/pagepal/internal/chunk"
	"github.com/metcalfc/pagepal/internal/config"
	"github.com/metcalfc/pagepal/internal/explain"
	"github.com/metcalfc/pagepal/internal/logging"
	"github.com/metcalfc/pagepal/internal/session"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds what the commands share: flags, the loaded configuration and
// the logger.
type app struct {
	cfgFile string
	verbose bool
	level   string

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func()

	out    io.Writer
	errOut io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout, errOut: os.Stderr}

	root := &cobra.Command{
		Use:   "pagepal",
		Short: "Read books in another language and ask about any phrase",
		Long: `PagePal shows a book one page at a time. Select a phrase on the page and
PagePal asks the explanation service what it means, using the words around it
as context and pitching the answer at your language level.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(
		&a.cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pagepal/config.yaml)",
	)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")
	root.PersistentFlags().StringVar(&a.level, "level", "", "language level for explanations, e.g. A2 or B1")

	root.AddCommand(
		a.readCmd(),
		a.openCmd(),
		a.explainCmd(),
		a.languagesCmd(),
		a.levelsCmd(),
		a.booksCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root
}

// load reads the configuration and opens the log. With onScreen the
// terminal belongs to the reader, so logs only go to the configured file;
// otherwise a verbose run logs to stderr.
func (a *app) load(onScreen bool) error {
	if a.cfg != nil {
		return nil
	}

	mgr, err := config.NewManager(a.cfgFile)
	if err != nil {
		return err
	}
	if a.level != "" {
		if err := mgr.Set("language_level", a.level); err != nil {
			return err
		}
	}
	a.cfg = mgr.Get()

	switch {
	case a.cfg.LogFile != "":
		logger, closeLog, err := logging.Open(a.cfg.LogFile, a.verbose)
		if err != nil {
			return err
		}
		a.logger, a.closeLog = logger, closeLog
	case a.verbose && !onScreen:
		a.logger = logging.New(true, a.errOut)
		a.closeLog = func() { _ = a.logger.Sync() }
	default:
		a.logger, a.closeLog = zap.NewNop(), func() {}
	}

	a.logger.Debug("configuration loaded",
		zap.String("file", mgr.File()),
		zap.String("api_url", a.cfg.APIURL),
		zap.String("language_level", a.cfg.LanguageLevel))
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}

func (a *app) client() *api.Client {
	return api.New(a.cfg.APIURL, a.cfg.ResolvedAPIKey(),
		api.WithTimeout(a.cfg.Timeout),
		api.WithLogger(a.logger.Named("api")))
}

// newSession wires a session over source with the configured explanation
// client.
func (a *app) newSession(source chunk.Source, client *api.Client) (*session.Session, error) {
	store, err := chunk.NewStore(source,
		chunk.WithLogger(a.logger.Named("chunk")),
		chunk.WithCache(a.cfg.PageCache))
	if err != nil {
		return nil, err
	}
	requester := explain.NewRequester(client,
		explain.WithLogger(a.logger.Named("explain")),
		explain.WithRateLimit(a.cfg.ExplainRate, a.cfg.ExplainBurst),
		explain.WithBreaker(a.cfg.BreakerFailures, a.cfg.BreakerCooldown))
	return session.New(store, requester, session.Config{
		LanguageLevel: a.cfg.LanguageLevel,
		Logger:        a.logger.Named("session"),
	}), nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pagepal %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
