// Package httpserver wraps net/http with graceful shutdown, environment
// driven configuration and health probes.
//
// Run blocks until the context is canceled or an interrupt/TERM signal
// arrives, then drains in-flight requests within the shutdown timeout.
// This matters for the webhook endpoint: a delivery that is mid-flight
// during a deploy still gets an HTTP response, so the gateway does not
// mark the endpoint unhealthy.
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStartHook(func(l *slog.Logger) {
//			l.Info("listening", "addr", cfg.Addr)
//		}),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run wraps listen errors with ErrStart and Shutdown wraps drain errors
// with ErrShutdown, both inspectable with errors.Is.
package httpserver
