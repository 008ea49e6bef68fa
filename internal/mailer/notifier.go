package mailer

import (
	"context"
	"errors"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
)

// IntakeNotifier mails the admin about every submission and thanks beta applicants.
type IntakeNotifier struct {
	Mailer     *Mailer
	AdminEmail string
}

func (n *IntakeNotifier) Name() string { return "mail" }

func (n *IntakeNotifier) Deliver(ctx context.Context, sub intake.Submission) error {
	switch sub.Kind {
	case intake.KindJoinBeta:
		return errors.Join(n.thankYou(ctx, sub), n.notifyAdmin(ctx, sub))
	default:
		return n.notifyAdmin(ctx, sub)
	}
}

func (n *IntakeNotifier) thankYou(ctx context.Context, sub intake.Submission) error {
	data := struct{ FirstName string }{firstName(sub.Name)}
	return n.Mailer.Send(ctx, sub.Email, "Thanks for Joining Chief AI Insights Beta", thankYouTmpl, data)
}

func (n *IntakeNotifier) notifyAdmin(ctx context.Context, sub intake.Submission) error {
	if n.AdminEmail == "" {
		return nil
	}
	if sub.Kind == intake.KindJoinBeta {
		return n.Mailer.Send(ctx, n.AdminEmail, "New Join Beta - "+sub.Name, joinBetaAdminTmpl, sub)
	}
	return n.Mailer.Send(ctx, n.AdminEmail, "New Contact - "+sub.Name, contactAdminTmpl, sub)
}
