package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churchconnect/internal/calendar"
	"churchconnect/internal/config"
	"churchconnect/internal/dashboard"
	"churchconnect/internal/ics"
	appLog "churchconnect/internal/log"
	"churchconnect/internal/mail"
	"churchconnect/internal/model"
	"churchconnect/internal/scheduler"
	"churchconnect/internal/store"
	"churchconnect/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	month      string
	exportPath string
	importSrc  string
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	level := appLog.ParseLevel(conf.Log.Level)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.Init(appLog.Options{
		Level:      level,
		File:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxAgeDays: conf.Log.MaxAgeDays,
	})
	defer appLog.Sync()

	appLog.Info("churchconnect starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"storage_driver", conf.Storage.Driver,
		"storage_path", conf.Storage.Path,
		"email_provider", conf.Email.Provider,
		"reminders", conf.Reminders.Enabled,
		"reminders_cron", conf.Reminders.Cron,
		"expand_recurring", conf.Calendar.ExpandRecurring,
		"basic_auth", conf.BasicAuth != nil,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("churchconnect failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("churchconnect exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
		loc = time.Local
	}

	backend, err := openBackend(ctx, conf.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	st := store.New(backend)
	defer func() {
		if err := st.Close(); err != nil {
			appLog.Error("failed to close storage", err)
		}
	}()
	if err := st.Load(ctx); err != nil {
		return fmt.Errorf("load storage: %w", err)
	}

	svc := newService(st, conf, loc)

	switch {
	case flags.importSrc != "":
		return runImport(ctx, svc, flags.importSrc, conf.Storage.CacheDir(), loc)
	case flags.exportPath != "":
		return runExport(svc, flags.exportPath)
	case flags.month != "":
		year, month, err := parseMonth(flags.month)
		if err != nil {
			return err
		}
		printMonth(os.Stdout, svc.MonthView(year, month), time.Now().In(loc))
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if conf.Reminders.Enabled && conf.Notifications.VolunteerReminders {
		sched, err := scheduler.New(conf.Reminders.Cron, loc, svc, svc.Clock)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		appLog.Info("volunteer reminders scheduled", "cron", conf.Reminders.Cron, "next", sched.Next().Format(time.RFC3339))
		// Runs before the storage is closed.
		defer func() {
			cancel()
			sched.Wait()
		}()
	}

	return web.NewServer(conf, svc).ListenAndServe(ctx)
}

func openBackend(ctx context.Context, sc config.StorageConfig) (store.Backend, error) {
	switch sc.Driver {
	case "sqlite":
		return store.OpenSQLite(ctx, sc.Path)
	default:
		return store.NewFileBackend(sc.Path)
	}
}

func newSender(ec config.EmailConfig) mail.Sender {
	if ec.Provider != "emailjs" {
		return mail.LogSender{}
	}
	ej := &mail.EmailJS{
		Endpoint:    ec.Endpoint,
		ServiceID:   ec.ServiceID,
		TemplateID:  ec.TemplateID,
		UserID:      ec.UserID,
		AccessToken: ec.AccessToken,
		From:        ec.From,
	}
	if !ej.Configured() {
		appLog.Warn("emailjs selected but credentials are missing; logging mail instead")
		return mail.LogSender{}
	}
	return mail.Fallback{Primary: ej, Secondary: mail.LogSender{}}
}

func newService(st *store.Store, conf *config.Config, loc *time.Location) *dashboard.Service {
	svc := dashboard.New(st, newSender(conf.Email), nil)
	svc.Notifications = conf.Notifications
	svc.Location = loc
	svc.From = conf.Email.From
	svc.Matcher = calendar.Matcher{ExpandRecurring: conf.Calendar.ExpandRecurring}
	svc.Serializer.ProdID = conf.Organization.ProdID()
	svc.Serializer.Domain = conf.Organization.Domain
	if loc != time.Local {
		svc.LinkBuilder.TimeZone = loc.String()
	}
	return svc
}

// runImport loads events from an .ics file or http(s) feed. Feeds are cached
// under cacheDir.
func runImport(ctx context.Context, svc *dashboard.Service, src, cacheDir string, loc *time.Location) error {
	source := ics.Source{ID: "cli", URL: src}
	res, err := ics.NewFetcher(cacheDir, nil).Fetch(ctx, source)
	if err != nil {
		return err
	}
	if res.FromCache {
		appLog.Warn("feed unavailable, importing cached copy", "id", source.ID)
	}
	return importBody(ctx, svc, source, res.Body, loc)
}

func importBody(ctx context.Context, svc *dashboard.Service, src ics.Source, body []byte, loc *time.Location) error {
	parsed, err := ics.ParseICS(src, body)
	if err != nil {
		return err
	}
	evs := make([]model.Event, 0, len(parsed))
	for _, p := range parsed {
		evs = append(evs, p.ToEvent(loc))
	}
	out, err := svc.ImportEvents(ctx, evs)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d event(s)\n", len(out))
	return nil
}

func runExport(svc *dashboard.Service, path string) error {
	exp, err := svc.ExportAll()
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(path, []byte(exp.Content), 0o644); err != nil {
		return err
	}
	appLog.Info("calendar exported", "path", path, "bytes", len(exp.Content))
	return nil
}

func parseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, errors.New("month must be YYYY-MM")
	}
	return t.Year(), t.Month(), nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/churchconnect/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.month, "month", "", "Print the calendar for YYYY-MM and exit")
	flag.StringVar(&cfg.exportPath, "export", "", "Write every dated event to an .ics file and exit")
	flag.StringVar(&cfg.importSrc, "import", "", "Import events from an .ics file or URL and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
