package irrigation

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	levelMx  sync.RWMutex
	logLevel = logrus.InfoLevel
)

// VerboseLevel maps a count of -v flags to a logrus level.
func VerboseLevel(verbosity int) logrus.Level {
	switch {
	case verbosity <= 0:
		return logrus.InfoLevel
	case verbosity == 1:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// SetLogLevel sets the level of every logger created afterwards.
func SetLogLevel(level logrus.Level) {
	levelMx.Lock()
	defer levelMx.Unlock()
	logLevel = level
}

// NewLogger returns an entry tagged with domain. Each call owns its
// logrus.Logger, so hooks added to one component do not see the others.
func NewLogger(domain string) *logrus.Entry {
	levelMx.RLock()
	level := logLevel
	levelMx.RUnlock()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	return logger.WithField("domain", domain)
}
