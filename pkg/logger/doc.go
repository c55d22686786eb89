// Package logger builds structured slog loggers with context-aware
// attribute injection.
//
// The factory wires format, level and static attributes, and wraps the
// handler in a decorator that pulls request-scoped values (tenant id,
// request id, environment) out of the context on every record:
//
//	log := logger.New(
//		logger.WithProduction("billing"),
//		logger.WithContextExtractors(
//			tenant.LoggerExtractor(),
//			environment.LoggerExtractor(),
//		),
//	)
//	logger.SetAsDefault(log)
//
// Attr helpers keep log keys consistent across the codebase:
//
//	log.Info("payment applied",
//		logger.TenantID(tenantID),
//		logger.EventID(event.ID),
//		logger.Plan(tenant.Plan),
//	)
package logger
