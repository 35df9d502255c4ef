package testutil

import (
	"context"
	"io"
	"log"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/mentoring"
	"github.com/edpsychconnect/connect/services/email"
	"github.com/edpsychconnect/connect/services/logger"
	"github.com/edpsychconnect/connect/storage/database/inmem"
)

// Env bundles an in-memory mentoring service and its collaborators.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Logger     core.Logger
	MailSvc    *emailsvc.ConsoleServiceMock
	Validate   *validator.Validate
	Translator ut.Translator
	Svc        mentoring.Service
}

func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	db, err := inmemdb.Open()
	if err != nil {
		log.Fatalf("inmemdb.Open(): %v", err)
	}

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	mentoring.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	svc := mentoring.NewService(mentoring.Deps{
		Repo:          inmemdb.NewMentoringRepository(db),
		CPDRepo:       inmemdb.NewCPDRepository(db),
		PortfolioRepo: inmemdb.NewPortfolioRepository(db),
		Tx:            inmemdb.NewTxRunner(db),
		MailSvc:       mailSvc,
		Logger:        logger,
	})

	return &Env{
		Conf:       conf,
		DB:         db,
		Logger:     logger,
		MailSvc:    mailSvc,
		Validate:   validate,
		Translator: translator,
		Svc:        svc,
	}
}

// Reset empties the database and forgets sent emails.
func (env *Env) Reset() {
	env.DB.Reset()
	env.MailSvc.Reset()
}

func CreateProfile(t *testing.T, env *Env, up mentoring.UpdateProfile) mentoring.ProfileDetail {
	if err := up.Validate(env.Validate); err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	prof, err := env.Svc.UpdateProfile(context.Background(), up)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return prof
}

func CreateRequest(t *testing.T, env *Env, mentorID, menteeID string, focusAreas []int, goals ...string) mentoring.MentorshipRequest {
	if len(goals) == 0 {
		goals = []string{"Improve assessment report writing"}
	}
	nr := mentoring.NewRequest{
		MentorID:   mentorID,
		MenteeID:   menteeID,
		Message:    "Would you mentor me?",
		FocusAreas: focusAreas,
		Goals:      goals,
		Duration:   6,
		Frequency:  "monthly",
	}
	if err := nr.Validate(env.Validate); err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}
	req, err := env.Svc.RequestMentorship(context.Background(), nr)
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}
	return req
}

// CreateMentorship requests and accepts a mentorship between mentorID and menteeID.
func CreateMentorship(t *testing.T, env *Env, mentorID, menteeID string, focusAreas []int, goals ...string) mentoring.Mentorship {
	req := CreateRequest(t, env, mentorID, menteeID, focusAreas, goals...)
	res, err := env.Svc.RespondToRequest(context.Background(), mentoring.RequestResponse{
		RequestID: req.ID,
		Response:  mentoring.ResponseAccept,
	})
	if err != nil {
		t.Fatalf("CreateMentorship() failed: %v", err)
	}
	if res.Mentorship == nil {
		t.Fatal("CreateMentorship() failed: no mentorship created")
	}
	return *res.Mentorship
}
