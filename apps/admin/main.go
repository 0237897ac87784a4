package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/shule/apps/api/di"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/validation"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/inmem"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	var db *sql.DB
	var repos di.Repos
	if conf.Database.Engine == "memory" {
		repos = di.MemoryRepos(inmemdb.Open())
	} else {
		ctx := context.Background()
		errAndDie(database.CreateIfNotExist(ctx, conf))
		xdb, err := database.Open(ctx, conf)
		errAndDie(err)
		defer xdb.Close()
		db = xdb.DB
		repos = di.SQLRepos(xdb)
	}

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	defer appLogger.Close()
	svcs := di.NewServices(conf, repos, cache.NewMemory(), emailsvc.NewConsoleService(conf, logger), appLogger)
	validate, translator := validation.New()

	// start CLI
	cli := commandLine{
		db:          db,
		tenantSvc:   svcs.Tenants,
		usrSvc:      svcs.Users,
		studentSvc:  svcs.Students,
		academicSvc: svcs.Academic,
		validate:    validate,
		translator:  translator,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
