package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/mentoring"
	"github.com/edpsychconnect/connect/services/email"
	"github.com/edpsychconnect/connect/services/logger"
	"github.com/edpsychconnect/connect/storage/database"
	"github.com/edpsychconnect/connect/storage/database/sqlx"
)

var stdLogger *log.Logger

func main() {
	stdLogger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	mentoring.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		validate: validate,
		out:      os.Stdout,
		svc: mentoring.NewService(mentoring.Deps{
			Repo:          sqlxrepos.NewMentoringRepository(db),
			CPDRepo:       sqlxrepos.NewCPDRepository(db),
			PortfolioRepo: sqlxrepos.NewPortfolioRepository(db),
			Tx:            sqlxrepos.NewTxRunner(db),
			MailSvc:       emailsvc.NewConsoleService(conf, logger),
			Logger:        logger,
		}),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		stdLogger.Fatal(err)
	}
}
