package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edpsychconnect/connect/core"
	"github.com/edpsychconnect/connect/core/mentoring"
)

const mentorMatchingPath = "/professional-development/mentor-matching"

type (
	mentoringApi struct {
		svc      mentoring.Service
		validate *validator.Validate
		actions  map[string]echo.HandlerFunc
		readers  map[string]echo.HandlerFunc
	}

	actionEnvelope struct {
		Action string `json:"action"`
	}

	mentoringQuery struct {
		Type      string `query:"type"`
		UserID    string `query:"userId"`
		ID        string `query:"id"`
		Role      string `query:"role"`
		Status    string `query:"status"`
		Expertise int    `query:"expertise"`
		Phase     string `query:"phase"`
		Subject   string `query:"subject"`
	}
)

func registerMentoringAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc mentoring.Service, validate *validator.Validate) {
	api := &mentoringApi{svc: svc, validate: validate}
	api.actions = map[string]echo.HandlerFunc{
		"updateProfile":      api.updateProfile,
		"requestMentorship":  api.requestMentorship,
		"respondToRequest":   api.respondToRequest,
		"updateMentorship":   api.updateMentorship,
		"addMeeting":         api.addMeeting,
		"updateMeeting":      api.updateMeeting,
		"addResource":        api.addResource,
		"addFeedback":        api.addFeedback,
		"updateGoal":         api.updateGoal,
		"completeMentorship": api.completeMentorship,
	}
	api.readers = map[string]echo.HandlerFunc{
		"profile":     api.getProfile,
		"mentorships": api.queryMentorships,
		"requests":    api.queryRequests,
		"meetings":    api.queryMeetings,
		"mentors":     api.findMentors,
		"mentorship":  api.getMentorship,
		"expertise":   api.queryExpertise,
		"analytics":   api.analytics,
		"cpd":         api.cpdActivities,
		"portfolio":   api.portfolio,
	}

	mg := g.Group(mentorMatchingPath, jwt)
	mg.POST("", api.dispatchAction)
	mg.GET("", api.dispatchRead)
}

// dispatchAction peeks at the `action` field and hands the request to its handler.
// The body is restored so that handlers can bind it again.
func (api *mentoringApi) dispatchAction(ctx echo.Context) error {
	req := ctx.Request()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}
	req.Body = io.NopCloser(bytes.NewReader(body))

	var env actionEnvelope
	if err = json.Unmarshal(body, &env); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}
	if env.Action == "" {
		return core.NewFieldError("action", "action is required")
	}
	handler, ok := api.actions[env.Action]
	if !ok {
		return core.NewFieldError("action", "unknown action: "+env.Action)
	}
	return handler(ctx)
}

func (api *mentoringApi) dispatchRead(ctx echo.Context) error {
	typ := ctx.QueryParam("type")
	if typ == "" {
		return core.NewFieldError("type", "type is required")
	}
	handler, ok := api.readers[typ]
	if !ok {
		return core.NewFieldError("type", "unknown type: "+typ)
	}
	return handler(ctx)
}

// bindQuery binds the query string and defaults userId to the authenticated user.
func (api *mentoringApi) bindQuery(ctx echo.Context) (mentoringQuery, error) {
	var q mentoringQuery
	if err := ctx.Bind(&q); err != nil {
		return q, errors.Wrap(err, "binding to mentoringQuery")
	}
	q.UserID = core.CleanString(q.UserID)
	q.ID = core.CleanString(q.ID)
	q.Role = core.CleanString(q.Role, true /* lower */)
	q.Status = core.CleanString(q.Status, true /* lower */)
	if q.UserID == "" {
		uid, err := contextUserID(ctx)
		if err != nil {
			return q, err
		}
		q.UserID = uid
	}
	switch q.Role {
	case "", mentoring.RoleMentor, mentoring.RoleMentee:
	default:
		return q, core.NewFieldError("role", "role must be one of: mentor, mentee")
	}
	return q, nil
}

func defaultToContextUser(ctx echo.Context, field *string) error {
	if *field != "" {
		return nil
	}
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	*field = uid
	return nil
}

// Actions

func (api *mentoringApi) updateProfile(ctx echo.Context) error {
	var data mentoring.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := defaultToContextUser(ctx, &data.UserID); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	prof, err := api.svc.UpdateProfile(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "profile": prof})
}

func (api *mentoringApi) requestMentorship(ctx echo.Context) error {
	var data mentoring.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := defaultToContextUser(ctx, &data.MenteeID); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.RequestMentorship(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "requesting mentorship")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Mentorship request sent successfully", "request": req})
}

func (api *mentoringApi) respondToRequest(ctx echo.Context) error {
	var data mentoring.RequestResponse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RequestResponse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.RespondToRequest(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "responding to request")
	}
	resp := echo.Map{"message": "Mentorship request " + res.Request.Status, "request": res.Request}
	if res.Mentorship != nil {
		resp["mentorship"] = res.Mentorship
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *mentoringApi) updateMentorship(ctx echo.Context) error {
	var data mentoring.UpdateMentorship
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMentorship")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ms, err := api.svc.UpdateMentorship(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating mentorship")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Mentorship updated successfully", "mentorship": ms})
}

func (api *mentoringApi) addMeeting(ctx echo.Context) error {
	var data mentoring.NewMeeting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeeting")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mtg, err := api.svc.AddMeeting(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding meeting")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Meeting added successfully", "meeting": mtg})
}

func (api *mentoringApi) updateMeeting(ctx echo.Context) error {
	var data mentoring.UpdateMeeting
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMeeting")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	mtg, err := api.svc.UpdateMeeting(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating meeting")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Meeting updated successfully", "meeting": mtg})
}

func (api *mentoringApi) addResource(ctx echo.Context) error {
	var data mentoring.NewResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	if err := defaultToContextUser(ctx, &data.AddedBy); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.AddResource(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding resource")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Resource added successfully", "resource": res})
}

func (api *mentoringApi) addFeedback(ctx echo.Context) error {
	var data mentoring.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err := defaultToContextUser(ctx, &data.FromUserID); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fb, err := api.svc.AddFeedback(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding feedback")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Feedback added successfully", "feedback": fb})
}

func (api *mentoringApi) updateGoal(ctx echo.Context) error {
	var data mentoring.UpdateGoal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGoal")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	goal, err := api.svc.UpdateGoal(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating goal")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Goal updated successfully", "goal": goal})
}

func (api *mentoringApi) completeMentorship(ctx echo.Context) error {
	var data mentoring.CompleteMentorship
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteMentorship")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ms, err := api.svc.CompleteMentorship(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "completing mentorship")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Mentorship completed successfully", "mentorship": ms})
}

// Readers

func (api *mentoringApi) getProfile(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	prof, err := api.svc.GetProfile(ctx.Request().Context(), q.UserID)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"profile": prof})
}

func (api *mentoringApi) queryMentorships(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	mss, err := api.svc.QueryMentorships(ctx.Request().Context(), mentoring.MentorshipFilter{
		UserID:   q.UserID,
		Role:     q.Role,
		Status:   q.Status,
		Ordering: ordering.Orderings,
	})
	if err != nil {
		return errors.Wrap(err, "querying mentorships")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"mentorships": mss})
}

func (api *mentoringApi) queryRequests(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reqs, err := api.svc.QueryRequests(ctx.Request().Context(), mentoring.RequestFilter{
		UserID:   q.UserID,
		Role:     q.Role,
		Status:   q.Status,
		Ordering: ordering.Orderings,
	})
	if err != nil {
		return errors.Wrap(err, "querying requests")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"requests": reqs})
}

// queryMeetings lists the meetings of mentorship `id`, or of all the user's mentorships.
func (api *mentoringApi) queryMeetings(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	mtgs, err := api.svc.QueryMeetings(ctx.Request().Context(), q.ID, q.UserID)
	if err != nil {
		return errors.Wrap(err, "querying meetings")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"meetings": mtgs})
}

func (api *mentoringApi) findMentors(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	filter := mentoring.MentorFilter{
		ExcludeUserID: q.UserID,
		Expertise:     q.Expertise,
		Phase:         q.Phase,
		Subject:       q.Subject,
	}
	filter.Clean()
	mentors, err := api.svc.FindMentors(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "finding mentors")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"mentors": mentors})
}

func (api *mentoringApi) getMentorship(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	if q.ID == "" {
		return core.NewFieldError("id", "id is required")
	}
	detail, err := api.svc.GetMentorship(ctx.Request().Context(), q.ID)
	if err != nil {
		return errors.Wrap(err, "getting mentorship")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"mentorship": detail})
}

func (api *mentoringApi) queryExpertise(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"expertise": mentoring.Expertise})
}

func (api *mentoringApi) analytics(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Analytics(ctx.Request().Context(), q.UserID)
	if err != nil {
		return errors.Wrap(err, "computing analytics")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"analytics": stats})
}

func (api *mentoringApi) cpdActivities(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	acts, err := api.svc.CPDActivities(ctx.Request().Context(), q.UserID)
	if err != nil {
		return errors.Wrap(err, "querying cpd activities")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"activities": acts})
}

func (api *mentoringApi) portfolio(ctx echo.Context) error {
	q, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}
	pf, err := api.svc.Portfolio(ctx.Request().Context(), q.UserID)
	if err != nil {
		return errors.Wrap(err, "getting portfolio")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"portfolio": pf})
}
