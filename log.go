package main

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog configures logging: to a file when READABLE_LOGFILE is set,
// otherwise errors only on stderr. The returned closer flushes the log
// file, if any.
func setupLog() (func() error, error) {
	// Log to file, if set
	logFile := os.Getenv("READABLE_LOGFILE")
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, err
		}
		log.SetOutput(f)
		log.SetReportTimestamp(true)
		log.SetTimeFormat(time.Kitchen)
		if os.Getenv("DEBUG") != "" {
			log.SetLevel(log.DebugLevel)
		}
		return f.Close, nil
	}
	log.SetOutput(os.Stderr)
	log.SetLevel(log.ErrorLevel)
	return func() error { return nil }, nil
}
