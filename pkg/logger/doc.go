// Package logger builds the service's *slog.Logger.
//
// New applies functional options (format, level, per-environment defaults,
// static attributes) and wraps the resulting handler with LogHandlerDecorator,
// which runs registered ContextExtractor callbacks on every record. The API
// layer uses this to stamp request ids and caller uids onto log lines written
// deep inside the services without threading them through every call.
//
// attr.go holds constructors for the attribute keys used across the billing
// code (subscription_id, invite_id, event_id and so on) so that log queries
// stay stable. Identifier helpers return an empty Attr for empty values, which
// slog drops.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.AppEnv, "billingd"),
//	    logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
//	    logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.InfoContext(ctx, "plan changed", logger.SubscriptionID(id), logger.UserID(uid))
package logger
