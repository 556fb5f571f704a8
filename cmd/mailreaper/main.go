// Command mailreaper triages a Gmail inbox: protects priority mail, trashes
// expired mail and duplicates, labels newsletters and categories, and
// reports unsubscribe links.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"

	"mailreaper/internal/config"
	"mailreaper/internal/gmail"
	"mailreaper/internal/ledger"
	"mailreaper/internal/sched"
	"mailreaper/internal/store"
	"mailreaper/internal/triage"
	"mailreaper/internal/tui"
)

// cacheMaxAge is how fresh the scan cache must be for report-only commands
// to reuse it instead of refetching.
const cacheMaxAge = time.Hour

func main() {
	var (
		action   = flag.String("action", "all", "which action to run: all, delete-old, unsubscribe, organize, duplicates")
		dryRun   = flag.Bool("dry-run", false, "preview what would happen, change nothing")
		days     = flag.Int("days", 0, "override: trash emails older than N days")
		yes      = flag.Bool("yes", false, "skip the confirmation prompt")
		attempt  = flag.Bool("attempt", false, "with -action unsubscribe: actually attempt the unsubscribes")
		auto     = flag.Bool("auto", false, "run the scheduled cleanup loop")
		useTUI   = flag.Bool("tui", false, "launch the interactive decision screen")
		logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	home, err := os.UserHomeDir()
	if err != nil {
		logger.Error("cannot determine home directory", "error", err)
		os.Exit(1)
	}
	configDir := filepath.Join(home, ".config", "mailreaper")

	led := ledger.New(filepath.Join(configDir, "reviewed.json"))

	// Subcommands that need no Gmail connection.
	switch flag.Arg(0) {
	case "signout":
		if err := gmail.Signout(configDir); err != nil {
			logger.Error("signout failed", "error", err)
			os.Exit(1)
		}
		fmt.Println("Signed out. Local token deleted.")
		fmt.Println("To fully revoke app access: https://myaccount.google.com/permissions")
		return
	case "clear-reviewed":
		n := led.Count()
		if err := led.Clear(); err != nil {
			logger.Error("clear failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Review history cleared (%d emails will reappear on the next scan).\n", n)
		return
	}

	cfg, err := config.Load(filepath.Join(configDir, "config.toml"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *days > 0 {
		cfg.Rules.DeleteOlderThanDays = *days
	}
	tcfg := triage.Config{
		DeleteOlderThanDays:  cfg.Rules.DeleteOlderThanDays,
		PriorityKeywords:     cfg.Rules.PriorityKeywords,
		PrioritySenders:      cfg.Rules.PrioritySenders,
		MaxTrashPerRun:       cfg.Automation.MaxTrashPerRun,
		StrictDuplicateDates: cfg.Duplicates.StrictDates,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := gmail.NewClient(ctx, configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cache, err := store.New(filepath.Join(configDir, "cache.db"))
	if err != nil {
		// The cache is an optimization; run without it.
		logger.Warn("scan cache unavailable", "error", err)
	} else {
		defer cache.Close()
	}

	tr := &triage.Triager{Mailbox: client, Ledger: led, Cache: cache, Logger: logger}
	app := &cli{tr: tr, cfg: tcfg, logger: logger, dryRun: *dryRun, yes: *yes}

	switch {
	case *useTUI:
		model := tui.NewAppModel(tr, tcfg, tcfg.MaxTrashPerRun)
		p := tea.NewProgram(&model, tea.WithAltScreen())
		model.SetProgram(p)
		final, err := p.Run()
		if err == nil {
			if m, ok := final.(*tui.AppModel); ok && m.Err != nil {
				err = m.Err
			}
		}
		if err != nil {
			logger.Error("tui failed", "error", err)
			os.Exit(1)
		}
		return
	case *auto:
		err = sched.Run(ctx, cfg.Automation.Schedule, logger, func(ctx context.Context) error {
			return app.cleanup(ctx, true)
		})
	default:
		switch *action {
		case "all":
			err = app.cleanup(ctx, false)
		case "delete-old":
			err = app.deleteOld(ctx)
		case "unsubscribe":
			err = app.unsubscribe(ctx, cache, *attempt)
		case "organize":
			err = app.organize(ctx)
		case "duplicates":
			err = app.duplicates(ctx)
		default:
			fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
			os.Exit(2)
		}
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	}))
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(sc.Text()), "y")
}

func progress(done, total int) {
	if done%50 == 0 || done == total {
		fmt.Printf("  Fetching email %d/%d...\r", done, total)
		if done == total {
			fmt.Println()
		}
	}
}

// unsubPacing spaces consecutive mailto unsubscribes; they send through
// the rate-limited account itself.
const unsubPacing = 2 * time.Second

type cli struct {
	tr     *triage.Triager
	cfg    triage.Config
	logger *slog.Logger
	dryRun bool
	yes    bool
}
