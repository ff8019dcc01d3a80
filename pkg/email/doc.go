// Package email sends the service's transactional email.
//
// Sender is the provider abstraction. NewPostmarkSender delivers through
// Postmark; DevSender writes each message to a directory as an .html body and
// a .json metadata file, which is what NewSender picks when no Postmark token
// is configured.
//
// InviteNotifier renders the invitation email for a newly created invite:
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//		return err
//	}
//	notifier := email.NewInviteNotifier(sender, cfg.AppURL)
//	err = notifier.NotifyInvite(ctx, inv)
//
// Delivery failures wrap ErrFailedToSendEmail; malformed messages wrap
// ErrInvalidMessage.
package email
