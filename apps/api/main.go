package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/trezcool/shule/apps/api/di"
	"github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/validation"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/theme"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	ctx := context.Background()

	// set up DB
	repos, closeDB, err := setUpRepos(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up cache
	var appCache core.Cache
	if conf.Redis.URL != "" {
		rc, err := cache.NewRedis(ctx, conf.Redis.URL, "shule:")
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer rc.Close()
		appCache = rc
	} else {
		appCache = cache.NewMemory()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, log.New(os.Stdout, "EMAIL : ", log.LstdFlags))
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	svcs := di.NewServices(conf, repos, appCache, mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := validation.New()

	themes, err := theme.NewContext(conf.PrimaryColor)
	if err != nil {
		logger.Fatal(fmt.Sprintf("invalid primary color %q: %v", conf.PrimaryColor, err), err)
	}

	// =========================================================================
	// Start Scheduled Jobs

	jobs := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.New(os.Stdout, "CRON : ", log.LstdFlags)))))
	if _, err = jobs.AddFunc(conf.AttendanceLockCron, func() {
		n, err := svcs.Academic.LockEndedYears(context.Background(), core.Today())
		if err != nil {
			logger.Error("locking ended academic years", err)
			return
		}
		if n > 0 {
			logger.Info(fmt.Sprintf("locked %d ended academic year(s)", n))
		}
	}); err != nil {
		logger.Fatal(fmt.Sprintf("scheduling year locks: %v", err), err)
	}
	jobs.Start()
	defer jobs.Stop()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Theme:      themes,
		Services:   svcs,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepos opens the configured database engine; "memory" keeps everything in process.
func setUpRepos(ctx context.Context, conf *core.Config) (di.Repos, func() error, error) {
	if conf.Database.Engine == "memory" {
		return di.MemoryRepos(inmemdb.Open()), func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return di.Repos{}, nil, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return di.Repos{}, nil, err
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return di.Repos{}, nil, err
	}
	return di.SQLRepos(db), db.Close, nil
}
