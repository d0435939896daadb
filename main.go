package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/orders"
	"storefront/internal/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(cfg.DBName)
	lg.Info("MongoDB connected", zap.String("db", db.Name()))

	orderStore := database.NewOrderStore(db)
	codes := orders.NewCodeGenerator(orderStore, cfg.OrderCodeTries)
	if _, err := database.BackfillOrderCodes(context.Background(), orderStore, codes, lg); err != nil {
		return err
	}
	if err := database.EnsureOrderIndexes(db, lg); err != nil {
		return err
	}
	if err := database.EnsureSettingsIndexes(db, lg); err != nil {
		lg.Warn("settings index warning", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	users := database.NewUserStore(db)
	mailer := notify.NewResend(notify.ResendConfig{
		APIKey:     cfg.Email.ResendKey,
		From:       cfg.Email.From,
		TestEmail:  cfg.Email.TestEmail,
		Production: cfg.Production(),
		FrontURL:   cfg.FrontURL,
	}, httpClient, lg)
	trigger := notify.NewTrigger(mailer, users, m, lg)

	service := orders.NewService(
		orders.Config{CodeMaxAttempts: cfg.OrderCodeTries},
		orderStore,
		database.NewCatalogStore(db),
		database.NewSettingsStore(db),
		trigger,
		lg,
	)
	reconciler := orders.NewReconciler(service, trigger, lg)

	gateway, err := payment.NewClient(payment.Config{
		CheckoutURL: cfg.Payment.CheckoutURL,
		MerchantID:  cfg.Payment.MerchantID,
		SecretKey:   cfg.Payment.SecretKey,
		Currency:    cfg.Payment.Currency,
		APIURL:      cfg.APIURL,
		Timeout:     cfg.Payment.Timeout,
	}, httpClient, lg)
	if err != nil {
		return err
	}

	deps := handlers.Deps{
		DB:                      database.NewPinger(db),
		Orders:                  service,
		Payments:                gateway,
		Reconciler:              reconciler,
		Metrics:                 m,
		Logger:                  lg,
		FrontURL:                cfg.FrontURL,
		VerifyCallbackSignature: cfg.Payment.VerifyCallbackSignature,
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(lg), m.Middleware())

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r.GET("/healthz", handlers.Health(deps))
	r.GET("/metrics", gin.WrapH(m.Handler()))

	public := r.Group("/orders")
	{
		public.POST("", limiter.Middleware(lg), middleware.OptionalUser(cfg.JWTSecret, lg), handlers.CreateOrder(deps))
		public.POST("/payment", limiter.Middleware(lg), handlers.CreatePayment(deps))
		public.POST("/callback", handlers.PaymentCallback(deps))
		public.POST("/return", handlers.PaymentReturn(deps))
		public.GET("/return", handlers.PaymentReturn(deps))
		public.GET("/status", limiter.Middleware(lg), handlers.OrderStatus(deps))
		public.GET("/my", middleware.UserAuth(cfg.JWTSecret, lg), handlers.MyOrders(deps))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(cfg.JWTSecret, lg))
	{
		admin.GET("/orders", handlers.ListOrders(deps))
		admin.GET("/orders/:id", handlers.GetOrder(deps))
		admin.POST("/orders/status", handlers.UpdateOrderStatus(deps))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	trigger.Wait()
	lg.Info("shutdown complete")
	return nil
}
