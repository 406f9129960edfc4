// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON lines on stderr
//   - Development: colored console output
//
// Components take a *Logger and derive a named child:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	log := logger.Named("terminal")
//	log.Info("session created", zap.String("session_id", id))
package logging
