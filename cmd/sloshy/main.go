// Command sloshy visits the configured chat rooms and posts to any room in
// danger of an inactivity freeze. It is a one-shot batch job: an external
// scheduler runs it nightly, each invocation performs exactly one mode and
// exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tripleee/sloshy/internal/bot"
	"github.com/tripleee/sloshy/internal/chat"
	"github.com/tripleee/sloshy/internal/config"
	"github.com/tripleee/sloshy/internal/transcript"
	"github.com/tripleee/sloshy/pkg/logx"
)

type modeKind int

const (
	modeScan modeKind = iota
	modeMigrate
	modeTestRooms
	modeAnnounce
)

// invocation is the parsed command line: one mode plus the data it needs.
type invocation struct {
	kind       modeKind
	configPath string
	message    string
	local      bool
	identities map[string]int64 // migrate only
}

func parseArgs(args []string) (*invocation, error) {
	fs := pflag.NewFlagSet("sloshy", pflag.ContinueOnError)
	configPath := fs.String("config", "sloshy.yaml", "path to the config file")
	message := fs.String("message", "", "startup message (scan) or text to post (announce)")
	local := fs.Bool("local", false, "dry run: read everything, post nothing")
	migrate := fs.Bool("migrate", false, "migrate a legacy config file and exit")
	testRooms := fs.Bool("test-rooms", false, "probe all rooms and report reachability; no posting")
	announce := fs.Bool("announce", false, "post the introduction message to every configured room")
	botIDs := fs.StringArray("bot-id", nil,
		"host=id pair recording the bot's user id on a network (migrate only; repeatable)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	inv := &invocation{configPath: *configPath, message: *message, local: *local}

	picked := 0
	for _, f := range []struct {
		set  bool
		kind modeKind
	}{
		{*migrate, modeMigrate},
		{*testRooms, modeTestRooms},
		{*announce, modeAnnounce},
	} {
		if f.set {
			inv.kind = f.kind
			picked++
		}
	}
	if picked > 1 {
		return nil, errors.New("--migrate, --test-rooms, and --announce are mutually exclusive")
	}

	if len(*botIDs) > 0 {
		if inv.kind != modeMigrate {
			return nil, errors.New("--bot-id only makes sense with --migrate")
		}
		inv.identities = make(map[string]int64, len(*botIDs))
		for _, pair := range *botIDs {
			host, idStr, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid --bot-id %q (want host=id)", pair)
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --bot-id %q: %w", pair, err)
			}
			inv.identities[host] = id
		}
	}
	return inv, nil
}

func main() {
	// Credentials may live in a .env during development; missing file is fine.
	_ = godotenv.Load()

	inv, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "sloshy:", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, inv); err != nil {
		fmt.Fprintln(os.Stderr, "sloshy:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, inv *invocation) error {
	// Migration works on the raw document, before any validation could
	// reject the legacy layout.
	if inv.kind == modeMigrate {
		return runMigrate(inv)
	}

	cfg, err := config.Load(inv.configPath)
	if err != nil {
		return err
	}
	if inv.local {
		cfg.Local = true
	}

	log, closer := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.FileEnabled,
			Path:    cfg.Logging.FilePath,
		},
	})
	defer closer.Close()
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	creds := chat.Credentials{
		Email:    os.Getenv("SLOSHY_EMAIL"),
		Password: os.Getenv("SLOSHY_PASSWORD"),
	}
	if creds.Email == "" {
		creds.Email = cfg.Email
	}
	if creds.Password == "" {
		creds.Password = cfg.Password
	}
	if !cfg.Local && inv.kind != modeTestRooms && !creds.Valid() {
		return chat.ErrNoCredentials
	}

	b := bot.New(bot.Params{
		Config:    cfg,
		Probe:     transcript.NewClient(transcript.Options{}, log),
		Sender:    chat.NewRegistry(creds, cfg.Local, chat.Options{}, log),
		Log:       log,
		HealthURL: os.Getenv("SLOSHY_HEALTHCHECK_URL"),
	})

	switch inv.kind {
	case modeScan:
		startup := inv.message
		if startup == "" {
			startup = "manual run"
		}
		// Per-room failures are reported in the summary; the run itself
		// still succeeded.
		_, err := b.Scan(ctx, startup)
		return err
	case modeTestRooms:
		report, err := b.TestRooms(ctx)
		if err != nil {
			return err
		}
		if report.HasFailures() {
			return fmt.Errorf("%d of %d rooms unreachable",
				len(report.Failures()), len(report.Results))
		}
		return nil
	case modeAnnounce:
		_, err := b.Announce(ctx, inv.message)
		return err
	default:
		return fmt.Errorf("unhandled mode %d", inv.kind)
	}
}

func runMigrate(inv *invocation) error {
	log := logx.NewConsole("info")

	doc, err := config.ParseDocument(inv.configPath)
	if err != nil {
		return err
	}
	out, err := config.Migrate(doc, inv.identities)
	if err != nil {
		return err
	}
	if err := config.WriteDocument(inv.configPath, out); err != nil {
		return err
	}
	log.Info("config migrated",
		logx.String("path", inv.configPath),
		logx.Int("schema", config.CurrentSchema),
		logx.Int("servers", len(out.Servers)))
	return nil
}
