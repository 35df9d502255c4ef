package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/edpsychconnect/connect/apps/api/echo"
	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/mentoring"
	emailsvc "github.com/edpsychconnect/connect/services/email"
	logsvc "github.com/edpsychconnect/connect/services/logger"
	"github.com/edpsychconnect/connect/storage/database"
	sqlxrepos "github.com/edpsychconnect/connect/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	mentoring.InitValidators(validate, translator)
	return validate
}

type mentoringParams struct {
	dig.In
	DB      *sqlx.DB
	MailSvc core.EmailService
	Logger  core.Logger
}

func newMentoringService(p mentoringParams) mentoring.Service {
	return mentoring.NewService(mentoring.Deps{
		Repo:          sqlxrepos.NewMentoringRepository(p.DB),
		CPDRepo:       sqlxrepos.NewCPDRepository(p.DB),
		PortfolioRepo: sqlxrepos.NewPortfolioRepository(p.DB),
		Tx:            sqlxrepos.NewTxRunner(p.DB),
		MailSvc:       p.MailSvc,
		Logger:        p.Logger,
	})
}

type serverParams struct {
	dig.In
	Conf         *core.Config
	Logger       core.Logger
	Validate     *validator.Validate
	Translator   ut.Translator
	MentoringSvc mentoring.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(
		p.Conf.Server.Address,
		nil, /* shutdown: listen to SIGINT & SIGTERM */
		&echoapi.Deps{
			Conf:         p.Conf,
			Logger:       p.Logger,
			Validate:     p.Validate,
			Translator:   p.Translator,
			MentoringSvc: p.MentoringSvc,
		},
	)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newMentoringService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
