// Command activity-wardend is the Activity Warden user daemon: it
// accumulates per-target focus durations for the current local day,
// enforces user-defined timers, and notifies GUI subscribers of changes.
package main

import (
	stdcontext "context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"activitywarden/internal/busnames"
	"activitywarden/internal/config"
	appcontext "activitywarden/internal/context"
	"activitywarden/internal/eventbus"
	"activitywarden/internal/logging"
	"activitywarden/internal/model"
	"activitywarden/internal/rpc"
	"activitywarden/internal/scheduler"
	"activitywarden/internal/store"
	"activitywarden/internal/watcherclient"
)

var (
	// Version is set via ldflags at build time.
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "path to the daemon configuration file (defaults to the platform config directory)")
	printVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println("activity-wardend", Version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "activity-wardend:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, _, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.New(&logging.Config{
		Level:      mustParseLevel(cfg.Logging.Level),
		Format:     parseFormat(cfg.Logging.Format),
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    int64(cfg.Logging.MaxSizeMB),
		MaxAge:     cfg.Logging.MaxAgeDays,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   true,
		Component:  "activity-wardend",
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	// Watch the config file so a log-level edit takes effect without a
	// restart; everything else needs one.
	cfgWatcher, err := config.NewConfigWatcher(configPath)
	if err != nil {
		logging.Warn("config watching unavailable", "error", err)
	} else {
		cfgWatcher.OnChange(func(old, new *config.Config) {
			if old.Logging.Level != new.Logging.Level {
				logger.SetLevel(mustParseLevel(new.Logging.Level))
				logging.Info("log level changed", "level", new.Logging.Level)
			}
			if old.Storage != new.Storage || old.Bus != new.Bus ||
				old.EventBus != new.EventBus || old.Scheduler != new.Scheduler {
				logging.Warn("config changed; storage, bus, event bus, and scheduler settings apply on restart")
			}
		})
		if err := cfgWatcher.Start(); err != nil {
			logging.Warn("config watching failed to start", "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	logging.SetDefaultCrashHandler(logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir:  filepath.Join(cfg.Storage.DataDir, "crashes"),
		Version:   Version,
		Component: "activity-wardend",
	}))
	defer logging.RecoverPanic()

	audit, err := logging.NewAuditLogger(&logging.AuditLoggerConfig{
		FilePath:   filepath.Join(cfg.Storage.DataDir, "audit.log"),
		MaxSize:    int64(cfg.Logging.MaxSizeMB),
		MaxAge:     cfg.Logging.MaxAgeDays,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   true,
		Component:  "activity-wardend",
	})
	if err != nil {
		return fmt.Errorf("init audit logging: %w", err)
	}
	defer audit.Close()

	logging.Info("activity-wardend starting", "data_dir", cfg.Storage.DataDir)
	if err := audit.LogStartup(stdcontext.Background(), Version, map[string]interface{}{
		"data_dir": cfg.Storage.DataDir,
	}); err != nil {
		logging.Warn("audit startup record failed", "error", err)
	}

	st, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	daemonCtx, err := appcontext.NewContext(st)
	if err != nil {
		return fmt.Errorf("init daemon context: %w", err)
	}

	bus := eventbus.NewWithCapacity(cfg.EventBus.Capacity)

	var sessionConn, systemConn *dbus.Conn
	var suspendCh, screenCh <-chan bool

	if cfg.Bus.UseSessionBus {
		sessionConn, err = dbus.SessionBus()
		if err != nil {
			return fmt.Errorf("connect session bus: %w", err)
		}
		defer sessionConn.Close()

		reply, err := sessionConn.RequestName(busnames.BusName(model.HostUserDaemon), dbus.NameFlagDoNotQueue)
		if err != nil {
			return fmt.Errorf("request bus name: %w", err)
		}
		if reply != dbus.RequestNameReplyPrimaryOwner {
			return fmt.Errorf("bus name %s already owned by another process", busnames.BusName(model.HostUserDaemon))
		}

		eventBusSvc := rpc.NewEventBusService(bus)
		if err := rpc.ExportEventBusService(sessionConn, eventBusSvc); err != nil {
			return fmt.Errorf("export event bus service: %w", err)
		}

		ctxSvc := rpc.NewContextService(sessionConn, daemonCtx, audit)
		if err := rpc.ExportContextService(sessionConn, ctxSvc); err != nil {
			return fmt.Errorf("export context service: %w", err)
		}

		if cfg.Bus.WatchScreenSaver {
			screenCh, err = rpc.SubscribeScreenSaver(sessionConn)
			if err != nil {
				logging.Warn("subscribe screensaver signal failed", "error", err)
			}
		}

		watcherCli := watcherclient.New(sessionConn)

		if cfg.Bus.WatchSuspend {
			systemConn, err = dbus.SystemBus()
			if err != nil {
				logging.Warn("connect system bus failed, suspend handling disabled", "error", err)
			} else {
				defer systemConn.Close()
				suspendCh, err = rpc.SubscribeSuspend(systemConn)
				if err != nil {
					logging.Warn("subscribe suspend signal failed", "error", err)
				}
			}
		}

		sched := scheduler.New(bus, daemonCtx, ctxSvc, watcherCli, suspendCh, screenCh,
			time.Duration(cfg.Scheduler.ShutdownPollMs)*time.Millisecond)
		err = runScheduler(sched)
		if aerr := audit.LogShutdown(stdcontext.Background(), "sigterm"); aerr != nil {
			logging.Warn("audit shutdown record failed", "error", aerr)
		}
		return err
	}

	return fmt.Errorf("bus.use_session_bus is false: nothing to run")
}

func runScheduler(sched *scheduler.Scheduler) error {
	ctx, stop := stdcontext.WithCancel(stdcontext.Background())
	defer stop()

	shutdown := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		logging.Info("activity-wardend received shutdown signal")
		close(shutdown)
	}()

	return sched.Run(ctx, shutdown)
}

func mustParseLevel(s string) logging.Level {
	level, err := logging.ParseLevel(s)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

func parseFormat(s string) logging.Format {
	if s == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}
