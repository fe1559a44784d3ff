// Package logger provides structured logging helpers built on Go's standard
// slog package: a small factory for the common text/JSON configurations and
// a set of pre-built attributes for the certificate lifecycle domain.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/certward/core/logger"
//
//	log := logger.New(logger.Config{Debug: true})
//	log.Info("certificate issued",
//		logger.Domains([]string{"example.com"}),
//		logger.AuthID(authID),
//	)
//
// All attribute helpers are nil-safe: logger.Error(nil) and logger.Domain("")
// produce empty attributes that slog drops, so call sites never need nil
// checks.
//
// Components that accept an optional *slog.Logger default to Discard(), which
// drops everything; pass a real logger to enable their output.
package logger
