package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/exam"
	"github.com/trezcool/daftari/core/fee"
	"github.com/trezcool/daftari/core/user"
	"github.com/trezcool/daftari/services/logger"
	"github.com/trezcool/daftari/storage/database"
	"github.com/trezcool/daftari/storage/database/sqlx"
)

type cliParams struct {
	dig.In

	Conf    *core.Config
	DB      *sqlx.DB
	Logger  core.Logger
	UserSvc *user.Service
	ExamSvc *exam.Service
	FeeSvc  *fee.Service
}

func newCommandLine(p cliParams) *commandLine {
	return &commandLine{
		conf:    p.Conf,
		db:      p.DB,
		logger:  p.Logger,
		usrSvc:  p.UserSvc,
		examSvc: p.ExamSvc,
		feeSvc:  p.FeeSvc,
		out:     os.Stdout,
	}
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, logger core.Logger) *sqlx.DB {
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	return db
}

// newContainer returns the dependency injection container of the admin CLI.
func newContainer() *dig.Container {
	c := dig.New()

	provide(c, core.NewConfig)
	provide(c, newLogger)
	provide(c, newDB)
	provide(c, sqlxrepos.NewUserRepository)
	provide(c, sqlxrepos.NewExamRepository)
	provide(c, sqlxrepos.NewFeeRepository)
	provide(c, user.NewService)
	provide(c, exam.NewService)
	provide(c, fee.NewService)
	provide(c, newCommandLine)

	return c
}

func provide(c *dig.Container, constructor interface{}, opts ...dig.ProvideOption) {
	if err := c.Provide(constructor, opts...); err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
