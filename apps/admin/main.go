// Command admin runs database migrations and account maintenance tasks.
package main

import (
	"os"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/user"
	logsvc "github.com/manabi/lms/services/logger"
	"github.com/manabi/lms/storage/cache"
	"github.com/manabi/lms/storage/database"
	inmemdb "github.com/manabi/lms/storage/database/inmem"
	sqlxrepos "github.com/manabi/lms/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewZerolog(conf), conf)
	defer logger.Close()

	cli := commandLine{out: os.Stdout}
	if conf.Database.InMemory {
		cli.usrSvc = user.NewService(inmemdb.NewUserRepository(inmemdb.Open()), cache.NewMemoryCache())
	} else {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal("opening database", err)
			return
		}
		defer func() { _ = db.Close() }()
		cli.db = db.DB
		cli.usrSvc = user.NewService(sqlxrepos.NewUserRepository(db), cache.NewMemoryCache())
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err, map[string]interface{}{"args": os.Args[1:]})
		}
		logger.Close()
		os.Exit(1)
	}
}
