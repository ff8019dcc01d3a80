package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"

	"github.com/dmitrymomot/saasbilling/pkg/model"
)

const inviteTag = "subscription-invite"

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>You have been invited to {{.SubscriptionName}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
<table role="presentation" style="width: 100%; border: 0;">
<tr><td style="padding: 40px 0; text-align: center;">
<table role="presentation" style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px;">
<tr><td style="padding: 32px 40px; text-align: center;">
<h1 style="margin: 0 0 16px; font-size: 22px; color: #1a1a1a;">Join {{.SubscriptionName}}</h1>
<p style="margin: 0 0 24px; color: #666; font-size: 15px; line-height: 1.5;">
{{.HostName}} invited you to collaborate on {{.SubscriptionName}}.
Sign in with {{.Email}} to accept or decline.
</p>
<a href="{{.AcceptURL}}" style="display: inline-block; padding: 12px 32px; background: #2563eb; color: #ffffff; text-decoration: none; border-radius: 6px; font-size: 15px;">
View invitation
</a>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`))

type inviteData struct {
	SubscriptionName string
	HostName         string
	Email            string
	AcceptURL        string
}

// InviteNotifier emails an invitation to its recipient.
type InviteNotifier struct {
	sender Sender
	appURL string
}

func NewInviteNotifier(sender Sender, appURL string) *InviteNotifier {
	if sender == nil {
		panic("email: sender is required")
	}
	return &InviteNotifier{sender: sender, appURL: appURL}
}

// NotifyInvite renders and sends the invitation email for inv.
func (n *InviteNotifier) NotifyInvite(ctx context.Context, inv *model.Invite) error {
	link, err := url.JoinPath(n.appURL, "invites", url.PathEscape(inv.ID))
	if err != nil {
		return fmt.Errorf("%w: build invite link: %v", ErrInvalidConfig, err)
	}
	data := inviteData{
		SubscriptionName: inv.SubscriptionName,
		HostName:         inv.HostName,
		Email:            inv.Email,
		AcceptURL:        link,
	}

	var buf bytes.Buffer
	if err := inviteTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render invite template: %w", err)
	}
	text := fmt.Sprintf("%s invited you to %s.\n\nOpen %s and sign in with %s to accept or decline.",
		data.HostName, data.SubscriptionName, data.AcceptURL, data.Email)

	return n.sender.Send(ctx, Message{
		To:      inv.Email,
		Subject: fmt.Sprintf("%s invited you to %s", data.HostName, data.SubscriptionName),
		HTML:    buf.String(),
		Text:    text,
		Tag:     inviteTag,
	})
}
