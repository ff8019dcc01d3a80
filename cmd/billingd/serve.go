package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/saasbilling/api"
	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/catalog"
	"github.com/dmitrymomot/saasbilling/pkg/config"
	"github.com/dmitrymomot/saasbilling/pkg/email"
	"github.com/dmitrymomot/saasbilling/pkg/httpserver"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/logger"
	"github.com/dmitrymomot/saasbilling/pkg/mongo"
	"github.com/dmitrymomot/saasbilling/pkg/processor"
	"github.com/dmitrymomot/saasbilling/pkg/processor/fake"
	"github.com/dmitrymomot/saasbilling/pkg/processor/stripe"
	"github.com/dmitrymomot/saasbilling/pkg/redis"
	"github.com/dmitrymomot/saasbilling/pkg/requestid"
	"github.com/dmitrymomot/saasbilling/pkg/store"
	"github.com/dmitrymomot/saasbilling/pkg/store/memstore"
	"github.com/dmitrymomot/saasbilling/pkg/store/mongostore"
	"github.com/dmitrymomot/saasbilling/svc/invite"
	"github.com/dmitrymomot/saasbilling/svc/member"
	"github.com/dmitrymomot/saasbilling/svc/payment"
	"github.com/dmitrymomot/saasbilling/svc/reconcile"
	"github.com/dmitrymomot/saasbilling/svc/subscription"
)

// memoryConfig is read instead of stripe.Config under --memory, where no
// Stripe key is needed.
type memoryConfig struct {
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET" envDefault:"whsec_dev"`
}

func newServeCmd() *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the processor webhook endpoint",
		Long: `Run the HTTP API and the processor webhook endpoint.

With --memory the service keeps everything in process and talks to an
in-memory processor instead of Stripe; nothing survives a restart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, memory)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "use the in-memory store and processor")
	return cmd
}

func serve(ctx context.Context, memory bool) error {
	var app appConfig
	if err := config.Load(&app); err != nil {
		return err
	}
	logOpts := []logger.Option{
		logger.WithEnvironment(app.Env, "billingd"),
		logger.WithContextExtractors(requestid.LoggerExtractor(), identity.LoggerExtractor()),
	}
	if app.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevel(logger.ParseLevel(app.LogLevel)))
	}
	log := logger.New(logOpts...)
	slog.SetDefault(log)

	cat, err := catalog.New(ctx, catalog.FileSource{Path: app.CatalogPath})
	if err != nil {
		return fmt.Errorf("load catalog %s: %w", app.CatalogPath, err)
	}
	policy := access.NewPolicy(cat)

	var (
		idCfg   identity.Config
		httpCfg httpserver.Config
		apiCfg  api.Config
		mailCfg email.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&idCfg) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&apiCfg) },
		func() error { return config.Load(&mailCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	apiOpts := []api.Option{api.WithLogger(log), api.WithMetrics(reg)}

	var (
		st   store.Store
		proc processor.Processor
	)
	if memory {
		log.WarnContext(ctx, "running with in-memory store and processor")
		st = memstore.New()
		apiOpts = append(apiOpts, api.WithHealthCheck("store", st.Ping))
		var memCfg memoryConfig
		if err := config.Load(&memCfg); err != nil {
			return err
		}
		proc = fake.New(fake.WithWebhookSecret(memCfg.WebhookSecret))
	} else {
		var mongoCfg mongo.Config
		var stripeCfg stripe.Config
		if err := config.Load(&mongoCfg); err != nil {
			return err
		}
		if err := config.Load(&stripeCfg); err != nil {
			return err
		}
		db, err := mongo.Connect(ctx, mongoCfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Client().Disconnect(context.WithoutCancel(ctx)) }()
		ms := mongostore.New(db)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return err
		}
		st = ms
		proc = stripe.New(stripeCfg)
		apiOpts = append(apiOpts, api.WithHealthCheck("mongo", mongo.Healthcheck(db.Client())))
	}

	recOpts := []reconcile.Option{
		reconcile.WithLogger(log.With(logger.Component("reconcile"))),
		reconcile.WithMetrics(reconcile.NewMetrics(reg)),
	}
	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return err
	}
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		recOpts = append(recOpts, reconcile.WithDeduper(reconcile.NewRedisDeduper(client, app.DedupeTTL)))
		apiOpts = append(apiOpts, api.WithHealthCheck("redis", redis.Healthcheck(client)))
	}

	sender, err := email.NewSender(mailCfg)
	if err != nil {
		return err
	}
	notifier := email.NewInviteNotifier(sender, mailCfg.AppURL)

	svc := api.Services{
		Subscriptions: subscription.NewService(st, proc, policy, subscription.WithLogger(log)),
		Payments:      payment.NewService(st, proc, policy, payment.WithLogger(log)),
		Invites:       invite.NewService(st, policy, invite.WithLogger(log), invite.WithNotifier(notifier)),
		Members:       member.NewService(st, policy, member.WithLogger(log)),
		Webhooks:      reconcile.New(st, proc, recOpts...),
	}
	handler := api.NewServer(apiCfg, svc, identity.NewVerifier(idCfg), apiOpts...)

	err = httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, handler)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
