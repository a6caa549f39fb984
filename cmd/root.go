package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fosterushka/Chronoflow-sub000/internal/notify"
	"github.com/fosterushka/Chronoflow-sub000/internal/output"
	"github.com/fosterushka/Chronoflow-sub000/internal/session"
	"github.com/fosterushka/Chronoflow-sub000/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	logger    *slog.Logger
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "cf",
	Short: "Chronoflow - a kanban board that tracks time per card",
	Long: `cf manages a five-column kanban board (todo, in progress, code review,
testing, done) and tracks time spent on one card at a time, warning you
when a card approaches or exceeds its estimate.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/chronoflow/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CHRONOFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	defaultConfigDir, _ := configDirFunc()
	setDefaults(defaultConfigDir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every configuration key with its default value.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "chronoflow.db"))
	viper.SetDefault("clock.tick_interval", "1s")
	viper.SetDefault("archive.retention", "24h")
	viper.SetDefault("threshold.warning_ratio", 0.5)
	viper.SetDefault("notifications.limit", 100)
	viper.SetDefault("serve.port", 8080)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("debug", false)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
	logger = newLogger(os.Stderr)

	// Initialize store lazily: only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// newLogger builds the structured logger from log.level and log.format.
// --verbose lowers the level to debug.
func newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(viper.GetString("log.format"), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// getStore returns the shared store, initializing it on first call.
func getStore(ctx context.Context) (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// sessionConfig reads the engine tunables from viper.
func sessionConfig() session.Config {
	cfg := session.DefaultConfig()
	if d := viper.GetDuration("clock.tick_interval"); d > 0 {
		cfg.TickInterval = d
	}
	if d := viper.GetDuration("archive.retention"); d > 0 {
		cfg.Retention = d
	}
	if r := viper.GetFloat64("threshold.warning_ratio"); r > 0 && r < 1 {
		cfg.WarningRatio = r
	}
	if n := viper.GetInt("notifications.limit"); n > 0 {
		cfg.NotificationLimit = n
	}
	cfg.Debug = viper.GetBool("debug")
	return cfg
}

// openSession opens the board session over the shared store. Console
// notifications are printed only when interactive is set.
func openSession(ctx context.Context, interactive bool) (*session.Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore(ctx)
	if err != nil {
		return nil, err
	}
	var opts []session.Option
	if logger != nil {
		opts = append(opts, session.WithLogger(logger))
	}
	if interactive {
		opts = append(opts, session.WithSink(notify.Console{UI: ui}))
	}
	return session.Open(ctx, s, sessionConfig(), opts...)
}

// withSession runs fn against an opened session and closes it afterwards,
// saving the board.
func withSession(ctx context.Context, fn func(sess *session.Session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := openSession(ctx, false)
	if err != nil {
		return err
	}
	runErr := fn(sess)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil && runErr == nil {
		return fmt.Errorf("save board: %w", err)
	}
	return runErr
}
