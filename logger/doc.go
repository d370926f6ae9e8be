// Package logger provides structured logging for wirekit using zerolog.
//
// It supports JSON and console output, level configuration, component-scoped
// loggers, and context enrichment with the wiring run id and lifecycle phase.
//
// # Usage
//
//	log := logger.Get("wiring")
//	log.Info("component registered", logger.Fields(logger.FieldComponent, "repo"))
package logger
