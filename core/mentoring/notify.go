package mentoring

import (
	"context"
	"net/mail"

	"github.com/edpsychconnect/connect/core"
)

// Notifications are best effort: lookup failures are logged and never fail the operation.

func (svc *service) notifyRequestReceived(ctx context.Context, req MentorshipRequest) {
	mentor, ok := svc.contactProfile(ctx, req.MentorID)
	if !ok {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: mentor.ContactEmail}},
		Subject:      "New mentorship request",
		TemplateName: "mentorship_request",
		TemplateData: map[string]interface{}{
			"RecipientName": mentor.UserID,
			"Message":       req.Message,
			"Duration":      req.Duration,
			"Frequency":     req.Frequency,
		},
	})
}

func (svc *service) notifyRequestAnswered(ctx context.Context, req MentorshipRequest) {
	mentee, ok := svc.contactProfile(ctx, req.MenteeID)
	if !ok {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: mentee.ContactEmail}},
		Subject:      "Your mentorship request has been " + req.Status,
		TemplateName: "mentorship_response",
		TemplateData: map[string]interface{}{
			"RecipientName": mentee.UserID,
			"Status":        req.Status,
			"Message":       req.ResponseMessage,
		},
	})
}

func (svc *service) contactProfile(ctx context.Context, userID string) (Profile, bool) {
	prof, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		if !core.IsNotFound(err) {
			svc.logger.Error("getting profile for notification", err, map[string]interface{}{"userId": userID})
		}
		return Profile{}, false
	}
	return prof, prof.ContactEmail != ""
}
