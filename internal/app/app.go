package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/savourly/orderflow/internal/domain/order"
	"github.com/savourly/orderflow/internal/handler"
	"github.com/savourly/orderflow/internal/payment"
	"github.com/savourly/orderflow/internal/storage/postgres"
	"github.com/savourly/orderflow/pkg/health"
	"github.com/savourly/orderflow/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	foodRepo := postgres.NewFoodRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	eventRepo := postgres.NewPaymentEventRepository(pool)

	// Payment gateway + checkout service.
	gateway := payment.NewClient(payment.ClientConfig{
		BaseURL:   cfg.Payment.BaseURL,
		SecretKey: cfg.Payment.SecretKey,
	})
	checkout := order.NewService(order.ServiceConfig{
		Currency:       cfg.Checkout.Currency,
		WhatsAppNumber: cfg.Checkout.WhatsAppNumber,
	}, foodRepo, orderRepo, gateway)

	// Recovery sweep for verified charges whose order row was not yet
	// visible when the webhook arrived.
	go sweepPaymentEvents(ctx, eventRepo, orderRepo, gateway, checkout, time.Minute)

	// HTTP handlers.
	security := handler.NewSecurityHandler(apikeyRepo, []byte(cfg.APIKeyPepper))
	h := handler.NewHandler(
		handler.Config{WebhookSecret: cfg.Payment.WebhookSecret},
		foodRepo,
		checkout,
		orderRepo,
		gateway,
		eventRepo,
		security,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "verif-hash"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("orderflow-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// sweepPaymentEvents periodically re-applies unapplied verified payment
// events. This closes the "payment captured, order pending" window: a
// webhook that arrived before the order row became visible is applied here
// once the order exists.
func sweepPaymentEvents(
	ctx context.Context,
	events payment.EventRepository,
	orders *postgres.OrderRepository,
	gateway payment.Gateway,
	checkout *order.Service,
	interval time.Duration,
) {
	lg := zctx.From(ctx).Named("payment_sweep")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pending, err := events.ListUnapplied(ctx)
		if err != nil {
			lg.Warn("List unapplied events", zap.Error(err))
			continue
		}

		for _, ev := range pending {
			tx, err := gateway.VerifyTransaction(ctx, ev.TxRef)
			if err != nil || !tx.Successful() {
				continue
			}
			o, err := orders.GetByTxRef(ctx, ev.TxRef)
			if err != nil {
				continue
			}
			if err := checkout.MarkPaid(ctx, o.ID, ev.TxRef); err != nil {
				lg.Warn("Apply payment event", zap.Int64("event_id", ev.ID), zap.Error(err))
				continue
			}
			if err := events.MarkApplied(ctx, ev.ID); err != nil {
				lg.Warn("Mark event applied", zap.Int64("event_id", ev.ID), zap.Error(err))
			}
		}
	}
}
