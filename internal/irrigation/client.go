package irrigation

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPort    = 4242
	DefaultTimeout = 5 * time.Second

	maxResponseSize = 1024
)

//go:generate mockgen -source=client.go -destination=mock_sender_test.go -package=irrigation

// Sender delivers one command to the daemon. A nil error means the
// daemon acknowledged it.
type Sender interface {
	Send(ctx context.Context, c Command) error
}

// Client talks to irrigationd. It opens a new connection for every
// command and never retries.
type Client struct {
	Address string
	Timeout time.Duration

	logger *logrus.Entry
}

func DaemonAddress(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func NewClient(address string) *Client {
	return &Client{
		Address: address,
		Timeout: DefaultTimeout,
		logger:  NewLogger(path.Join("client", address)),
	}
}

func (c *Client) networkError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return &NetworkError{Op: op, Address: c.Address, Err: err}
}

func (c *Client) Send(ctx context.Context, cmd Command) error {
	payload, err := cmd.MarshalText()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return c.networkError(ctx, "dial", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok == true {
		conn.SetDeadline(deadline)
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Now())
		case <-done:
		}
	}()

	c.logger.WithFields(logrus.Fields{
		"zone": cmd.Zone,
		"time": cmd.Seconds,
	}).Debug("sending command")

	if _, err := conn.Write(payload); err != nil {
		return c.networkError(ctx, "write", err)
	}

	reader := bufio.NewReader(io.LimitReader(conn, maxResponseSize))
	line, err := reader.ReadString('\n')
	if err != nil && (errors.Is(err, io.EOF) == false || len(line) == 0) {
		if errors.Is(err, io.EOF) == true {
			err = ErrEmptyResponse
		}
		return c.networkError(ctx, "read", err)
	}

	response := strings.TrimSpace(line)
	if len(response) == 0 {
		return c.networkError(ctx, "read", ErrEmptyResponse)
	}
	c.logger.WithField("response", response).Debug("received response")

	if strings.HasPrefix(response, "OK") == false {
		return &DaemonRejectedError{Response: response}
	}
	return nil
}
