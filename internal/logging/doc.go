// Package logging provides a simple leveled logging interface for vidmerge.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to DEBUG with DEBUG=true. Components log through Named loggers so
// that lines from concurrent mux sessions can be told apart.
package logging
