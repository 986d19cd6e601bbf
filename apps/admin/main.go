package main

import (
	"log"
	"os"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/services/logger"
	"github.com/trezcool/daftari/storage/database"
)

func main() {
	c := newContainer()

	// the database must exist before the container opens it
	if len(os.Args) > 1 && os.Args[1] == "init" {
		must(c.Invoke(func(conf *core.Config, logger core.Logger) {
			if err := database.CreateIfNotExist(conf); err != nil {
				logger.Fatal("creating database", err)
			}
		}))
	}

	var code int
	must(c.Invoke(func(cli *commandLine, logger core.Logger) {
		if rl, ok := logger.(*logsvc.RollbarLogger); ok {
			defer rl.Close()
		}
		defer func() {
			if err := cli.db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()

		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				logger.Error(err.Error(), err)
			}
			code = 1
		}
	}))
	os.Exit(code)
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
