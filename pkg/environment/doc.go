// Package environment carries the deployment environment through
// context so handlers, workers and the logger can branch on it.
//
//	mux.Use(environment.Middleware(environment.Production))
//
//	if environment.IsProduction(ctx) {
//		// real gateway credentials, real emails
//	}
package environment
