package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"go.aimuz.me/rimay/audiocapture"
	"go.aimuz.me/rimay/clipboard"
	"go.aimuz.me/rimay/config"
	"go.aimuz.me/rimay/history"
	"go.aimuz.me/rimay/hotkey"
	"go.aimuz.me/rimay/internal/app"
	"go.aimuz.me/rimay/internal/types"
	"go.aimuz.me/rimay/langdetect"
	"go.aimuz.me/rimay/notify"
	"go.aimuz.me/rimay/stt"
	"go.aimuz.me/rimay/tray"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	eventBuffer = 32
	historyDir  = "history"
)

var (
	cfgFile      string
	logLevel     string
	historyLimit int
)

var rootCmd = &cobra.Command{
	Use:   "rimay",
	Short: "Push-to-talk dictation",
	Long: `rimay records while a hotkey is held, transcribes the recording when it
is released and types the text into the focused application.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and list hotkey bindings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkConfig()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent transcripts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listHistory()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rimay %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/rimay/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of transcripts to show, 0 for all")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("rimay stopped", "error", err)
		os.Exit(1)
	}
}

// setupLogger installs the console handler. The flag wins over the
// config file.
func setupLogger(cfgLevel string) error {
	name := logLevel
	if name == "" {
		name = cfgLevel
	}
	var level slog.Level
	if name != "" {
		if err := level.UnmarshalText([]byte(name)); err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
	return nil
}

func loadConfig() (*config.Config, []hotkey.Binding, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, app.NewFatal("load config", err)
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		return nil, nil, app.NewFatal("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, app.NewFatal("validate config", fmt.Errorf("%s: %w", cfg.Path(), err))
	}
	bindings, err := cfg.Bindings()
	if err != nil {
		return nil, nil, app.NewFatal("validate config", err)
	}
	return cfg, bindings, nil
}

func runDaemon() (err error) {
	cfg, bindings, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("starting rimay", "version", version, "commit", commit, "date", date, "config", cfg.Path())

	defer func() {
		if err != nil && cfg.NotifyErrors {
			notify.Fatal(err)
		}
	}()

	transcriber, err := stt.NewClient(stt.Config{
		APIKey:  cfg.GroqKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout(),
	})
	if err != nil {
		return app.NewFatal("create transcription client", err)
	}

	delivery, err := hotkey.NewDelivery(cfg.HotkeyBackend)
	if err != nil {
		return app.NewFatal("create hotkey delivery", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indicator := tray.New(stop)

	opts := app.Options{
		Device:      audiocapture.PortAudio{},
		Transcriber: transcriber,
		Injector: clipboard.NewPaster(clipboard.Options{
			RestoreClipboard: cfg.Paste.RestoreClipboard,
			Settle:           cfg.SettleDelay(),
		}),
		Tray: indicator.Commands(),
	}
	if cfg.History.Enabled {
		store, err := history.Open(filepath.Join(cfg.Dir(), historyDir), cfg.Retention())
		if err != nil {
			slog.Warn("history disabled", "error", err)
		} else {
			defer store.Close()
			opts.History = store
			if cfg.History.DetectLanguage {
				go langdetect.Warm()
				opts.Detect = langdetect.Detect
			}
		}
	}

	events := make(chan types.KeyEvent, eventBuffer)
	fatal := make(chan error, 4)
	app.Supervise(ctx, "hotkey listener", fatal, func(ctx context.Context) error {
		return hotkey.Listen(ctx, bindings, delivery, events)
	})

	coordinator := app.New(opts)
	done := make(chan error, 1)
	go func() {
		done <- coordinator.Run(ctx, events, fatal)
		indicator.Quit()
	}()

	// The native loop needs the main goroutine.
	trayErr := indicator.Run(ctx)

	select {
	case err = <-done:
	default:
		if ferr := trayExit(ctx, trayErr); ferr != nil {
			select {
			case fatal <- ferr:
			default:
			}
		}
		err = <-done
	}

	if err != nil {
		return err
	}
	slog.Info("rimay stopped")
	return nil
}

// trayExit classifies a tray loop that stopped before the coordinator.
// After a shutdown request that is the normal order; otherwise the tray
// failed.
func trayExit(ctx context.Context, trayErr error) error {
	if ctx.Err() != nil {
		return nil
	}
	if trayErr == nil {
		trayErr = errors.New("exited unexpectedly")
	}
	return app.NewFatal("tray", trayErr)
}

func checkConfig() error {
	cfg, bindings, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("config: %s\n", cfg.Path())
	fmt.Printf("endpoint: %s\n", cfg.BaseURL)
	if cfg.GroqKey == "" {
		fmt.Printf("api key: missing (set groq_key or %s)\n", config.EnvAPIKey)
	} else {
		fmt.Println("api key: set")
	}
	fmt.Printf("hotkey backend: %s\n\n", cfg.HotkeyBackend)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HOTKEY\tID\tOPTIONS")
	for _, b := range bindings {
		fmt.Fprintf(w, "%s\t%d\t%s\n", b.Key, b.Key.ID(), b.Options)
	}
	return w.Flush()
}

func listHistory() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		return err
	}

	store, err := history.Open(filepath.Join(cfg.Dir(), historyDir), cfg.Retention())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no transcripts")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMODEL\tLANG\tTEXT")
	for _, e := range entries {
		lang := e.Detected
		if lang == "" {
			lang = e.Language
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Model, lang, strings.ReplaceAll(e.Text, "\n", " "))
	}
	return w.Flush()
}
