// Package requestid correlates log records belonging to one HTTP request.
//
// Middleware assigns every request an opaque id: a valid client-supplied
// X-Request-ID is reused, anything else is replaced with a fresh UUID. The id
// travels in the request context and is echoed back in the response header so
// clients can quote it when reporting a failed webhook delivery or export.
//
// LoggerExtractor plugs into the logger package's context extractors so the
// id appears on every log line without threading it by hand:
//
//	log := logger.New(
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//
// The package never returns errors. Malformed ids are silently regenerated.
package requestid
