package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/compile"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/config"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/generation"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/ingest"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/logging"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/notify"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/orchestrator"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/storage"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const usage = `bookflow - gated book generation workflow

Usage:
  bookflow run <book-id>      advance one book as far as its gates allow
  bookflow worker             poll the store and process runnable books
  bookflow sync <file.xlsx>   sync an editor spreadsheet into the store
  bookflow template <file>    write a fresh editor spreadsheet template
  bookflow status <book-id>   show a book's workflow state
  bookflow listen             print workflow events from the NATS bus
  bookflow version            print version information

Flags:
  -config <path>              config file (default: bookflow.yaml if present)
  -sheet <name>               worksheet name for sync (default: Books)
  -output <dir>               local deliverable directory when no object
                              store endpoint is configured (default: deliverables)
`

func main() {
	configPath := flag.String("config", "", "config file path")
	sheetName := flag.String("sheet", ingest.DefaultSheetName, "worksheet name for sync")
	outputDir := flag.String("output", "deliverables", "local deliverable directory")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "version" {
		fmt.Printf("bookflow %s (%s, built %s)\n", version, commit, buildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "run":
		if len(args) < 2 {
			fatal(fmt.Errorf("usage: bookflow run <book-id>"))
		}
		err = runBook(ctx, cfg, *outputDir, args[1])
	case "worker":
		err = runWorker(ctx, cfg, *outputDir)
	case "sync":
		if len(args) < 2 {
			fatal(fmt.Errorf("usage: bookflow sync <file.xlsx>"))
		}
		err = runSync(cfg, args[1], *sheetName)
	case "template":
		if len(args) < 2 {
			fatal(fmt.Errorf("usage: bookflow template <file.xlsx>"))
		}
		err = ingest.WriteTemplate(args[1])
	case "status":
		if len(args) < 2 {
			fatal(fmt.Errorf("usage: bookflow status <book-id>"))
		}
		err = showStatus(cfg, args[1])
	case "listen":
		err = runListen(ctx, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "bookflow: %v\n", err)
	os.Exit(1)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// buildEngine wires the full stack: store, generation client, compile
// coordinator, notification manager.
func buildEngine(cfg *config.Config, outputDir, owner string) (*orchestrator.Engine, *storage.Store, *notify.Manager, error) {
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	gen, err := generation.NewClient(cfg.Generation)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	var objects compile.ObjectStore
	if cfg.ObjectStore.Endpoint != "" {
		objects, err = compile.NewS3Store(cfg.ObjectStore)
	} else {
		objects, err = compile.NewFileStore(outputDir)
	}
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	coordinator, err := compile.NewCoordinator(store, objects,
		compile.FormatMarkdown, compile.FormatHTML, compile.FormatText)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, "engine")
	if err != nil {
		// Logging is best effort; the engine works without it.
		logger = nil
	}
	if logger != nil && cfg.Logging.MinLevel != "" {
		logger.SetMinLevel(logging.ParseLevel(cfg.Logging.MinLevel))
	}

	engine := orchestrator.NewEngine(cfg, store, gen, coordinator, notifier, logger, owner)
	return engine, store, notifier, nil
}

func buildNotifier(cfg *config.Config) (*notify.Manager, error) {
	var adapters []notify.Adapter
	if cfg.Notify.Email.Enabled {
		email, err := notify.NewEmailAdapter(notify.EmailConfig{
			Host:     cfg.Notify.Email.Host,
			Port:     cfg.Notify.Email.Port,
			Username: cfg.Notify.Email.Username,
			Password: cfg.Notify.Email.Password,
			To:       cfg.Notify.Email.To,
		})
		if err != nil {
			return nil, fmt.Errorf("email adapter: %w", err)
		}
		adapters = append(adapters, email)
	}
	if cfg.Notify.Teams.Enabled {
		teams, err := notify.NewTeamsAdapter(notify.TeamsConfig{
			WebhookURL: cfg.Notify.Teams.WebhookURL,
		})
		if err != nil {
			return nil, fmt.Errorf("teams adapter: %w", err)
		}
		adapters = append(adapters, teams)
	}

	var publisher notify.Publisher
	if cfg.Notify.NATS.Enabled {
		p, err := notify.NewNATSPublisher(notify.NATSConfig{
			URL:     cfg.Notify.NATS.URL,
			Subject: cfg.Notify.NATS.Subject,
		})
		if err != nil {
			return nil, fmt.Errorf("nats publisher: %w", err)
		}
		publisher = p
	}

	if publisher == nil && len(adapters) == 0 {
		return nil, nil
	}
	return notify.NewManager(publisher, adapters...), nil
}

// runListen prints every workflow event published on the NATS bus.
// Downstream consumers start from this.
func runListen(ctx context.Context, cfg *config.Config) error {
	sub, err := notify.NewNATSSubscriber(notify.NATSConfig{
		URL:     cfg.Notify.NATS.URL,
		Subject: cfg.Notify.NATS.Subject,
	})
	if err != nil {
		return fmt.Errorf("nats subscriber: %w", err)
	}
	defer sub.Close()

	fmt.Println("listening for workflow events, ctrl-c to stop")
	err = sub.Subscribe(ctx, func(evt *notify.Event) {
		fmt.Printf("%s  %-18s  book=%s", evt.Timestamp.Format(time.RFC3339), evt.Type, evt.BookID)
		if evt.Section > 0 {
			fmt.Printf("  section=%d", evt.Section)
		}
		if evt.Message != "" {
			fmt.Printf("  %s", evt.Message)
		}
		fmt.Println()
	})
	if err != nil {
		return err
	}
	return nil
}

func runBook(ctx context.Context, cfg *config.Config, outputDir, bookID string) error {
	hostname, _ := os.Hostname()
	engine, store, notifier, err := buildEngine(cfg, outputDir, "cli@"+hostname)
	if err != nil {
		return err
	}
	defer store.Close()
	if notifier != nil {
		defer notifier.Close()
	}

	outcome, err := engine.Run(ctx, bookID)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s at %s", bookID, outcome.State, outcome.Stage)
	if outcome.Detail != "" {
		fmt.Printf(" (%s)", outcome.Detail)
	}
	fmt.Println()
	return nil
}

func runWorker(ctx context.Context, cfg *config.Config, outputDir string) error {
	hostname, _ := os.Hostname()
	engine, store, notifier, err := buildEngine(cfg, outputDir, "worker@"+hostname)
	if err != nil {
		return err
	}
	defer store.Close()
	if notifier != nil {
		defer notifier.Close()
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, "worker")
	if err != nil {
		logger = nil
	}

	worker := orchestrator.NewWorker(cfg, store, engine, logger)
	fmt.Printf("worker polling every %s, up to %d books in parallel\n",
		cfg.Worker.PollInterval, cfg.Worker.MaxParallel)
	err = worker.Start(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

func runSync(cfg *config.Config, path, sheet string) error {
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	logger, err := logging.NewLogger(cfg.Logging.Dir, "sync")
	if err != nil {
		logger = nil
	}

	results, err := ingest.NewSyncer(store, logger).Sync(path, sheet)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Skipped != "" {
			fmt.Printf("row %d: skipped (%s)\n", res.Row, res.Skipped)
			continue
		}
		action := "updated"
		if res.Created {
			action = "created"
		}
		fmt.Printf("row %d: %s %q (%s)\n", res.Row, action, res.Title, res.BookID)
	}
	return nil
}

func showStatus(cfg *config.Config, bookID string) error {
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	book, err := store.GetBook(bookID)
	if err != nil {
		return err
	}
	if book == nil {
		return fmt.Errorf("book %q not found", bookID)
	}

	fmt.Printf("book:     %s\n", book.ID)
	fmt.Printf("title:    %s\n", book.Title)
	fmt.Printf("status:   %s\n", book.Status)
	fmt.Printf("sections: %d of %d written\n", book.NextSection-1, book.TotalSections)
	fmt.Printf("gates:    outline=%s section=%s review=%s\n",
		orchestrator.ParseGateStatus(book.OutlineGate),
		orchestrator.ParseGateStatus(book.SectionGate),
		orchestrator.ParseGateStatus(book.ReviewGate))
	if book.OutputURL != "" {
		fmt.Printf("output:   %s\n", book.OutputURL)
	}
	if book.LastError != "" {
		fmt.Printf("error:    %s\n", book.LastError)
	}

	sections, err := store.ListSections(bookID)
	if err != nil {
		return err
	}
	for _, sec := range sections {
		fmt.Printf("  %2d. %-40s %s\n", sec.Number, sec.Title, sec.Status)
	}
	return nil
}
