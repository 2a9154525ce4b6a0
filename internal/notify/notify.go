// Copyright (c) 2026 Essenzia. All rights reserved.

/*
Package notify implements the outbound notification gateway.

It delivers one-time codes to customers over two channels, email (SMTP) and
SMS (vendor HTTP API), behind a single [Gateway] interface consumed by the
auth service.

Architecture:

  - Gateway: the delivery contract. It receives a (target, code) pair and a
    channel; it never reads or writes identity or code storage.
  - Router: the production implementation. Routes by channel and falls back
    to mock (log-only) delivery when a channel's credentials are absent, so
    local development works without SMTP or an SMS account.
  - Delivery is best-effort: callers treat failures as warnings, never as
    operation failures. The code record already exists either way.
*/
package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Channel selects the delivery medium for a code.
type Channel string

const (
	// ChannelEmail delivers via SMTP.
	ChannelEmail Channel = "email"

	// ChannelSMS delivers via the SMS vendor API.
	ChannelSMS Channel = "sms"
)

// Gateway is the delivery capability consumed by the auth flow.
type Gateway interface {
	// Deliver sends the code to the target over the given channel.
	Deliver(ctx context.Context, channel Channel, target, code string) error
}

// Router routes deliveries to the configured channel senders.
//
// A nil sender means the channel is not configured; delivery is then mocked
// with a log line carrying the code, matching local-development expectations.
type Router struct {
	mailer *SMTPMailer
	sms    *SMSClient
	log    *slog.Logger
}

// NewRouter constructs a [Router]. Either sender may be nil.
func NewRouter(mailer *SMTPMailer, sms *SMSClient, log *slog.Logger) *Router {
	return &Router{
		mailer: mailer,
		sms:    sms,
		log:    log,
	}
}

// Deliver implements [Gateway].
func (router *Router) Deliver(ctx context.Context, channel Channel, target, code string) error {
	switch channel {
	case ChannelEmail:
		if router.mailer == nil {
			router.log.Info("mock_email_delivery",
				slog.String("target", target),
				slog.String("code", code),
			)
			return nil
		}
		return router.mailer.SendCode(target, code)

	case ChannelSMS:
		if router.sms == nil {
			router.log.Info("mock_sms_delivery",
				slog.String("target", target),
				slog.String("code", code),
			)
			return nil
		}
		return router.sms.SendCode(ctx, target, code)

	default:
		return fmt.Errorf("notify: unknown channel %q", channel)
	}
}
