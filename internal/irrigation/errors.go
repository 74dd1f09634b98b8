package irrigation

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrUnknownZone     = errors.New("unknown zone")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrEmptyResponse   = errors.New("empty response")
)

// NetworkError reports a command that never got a usable answer from the
// daemon: refused or reset connection, timeout, or an empty reply.
type NetworkError struct {
	Op      string
	Address string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout() {
		return "timeout"
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Address, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Timeout() bool {
	var nerr net.Error
	return errors.As(e.Err, &nerr) && nerr.Timeout()
}

// DaemonRejectedError reports a daemon answer that does not start with OK.
type DaemonRejectedError struct {
	Response string
}

func (e *DaemonRejectedError) Error() string {
	return fmt.Sprintf("daemon rejected command: '%s'", e.Response)
}

// InvalidConfigError lists every reason a zone list was refused.
type InvalidConfigError struct {
	Reasons []string
}

func (e *InvalidConfigError) Error() string {
	return "invalid config: " + strings.Join(e.Reasons, "; ")
}

func unknownZone(zone int) error {
	return fmt.Errorf("zone %d: %w", zone, ErrUnknownZone)
}
