package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadBufferSize = 64 * 1024
)

// ErrIdle reports a bounded read that timed out without receiving any bytes.
var ErrIdle = errors.New("read timed out with no data")

// DialFunc opens the underlying stream connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialOptions tune how a TCPConn is established.
type DialOptions struct {
	Timeout        time.Duration
	ReadBufferSize int
	Dial           DialFunc
	Logger         *slog.Logger
}

// TCPConn is a stream connection with per-call read and write deadlines.
// It is not safe for concurrent use; one goroutine owns it.
type TCPConn struct {
	target string
	conn   net.Conn
	buf    []byte
	logger *slog.Logger
}

func DialTCP(ctx context.Context, target string, opts DialOptions) (*TCPConn, error) {
	logger := transportLogger(opts.Logger, "tcp", "target", target)
	if target == "" {
		logger.Warn("connect failed: target is empty")

		return nil, errors.New("tcp target is empty")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dial := opts.Dial
	if dial == nil {
		dialer := net.Dialer{Timeout: timeout}
		dial = dialer.DialContext
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("connecting", "timeout", timeout)
	conn, err := dial(dialCtx, "tcp", target)
	if err != nil {
		logger.Warn("connect failed", "error", err)

		return nil, fmt.Errorf("dial tcp %s: %w", target, err)
	}
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	logger.Info("connected", "remote", remote)

	size := opts.ReadBufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}

	return &TCPConn{
		target: target,
		conn:   conn,
		buf:    make([]byte, size),
		logger: logger,
	}, nil
}

func (c *TCPConn) Target() string {
	return c.target
}

// Write sends payload in full or returns an error.
func (c *TCPConn) Write(payload []byte, timeout time.Duration) error {
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	} else {
		_ = c.conn.SetWriteDeadline(time.Time{})
	}

	written := 0
	for written < len(payload) {
		n, err := c.conn.Write(payload[written:])
		written += n
		if err != nil {
			c.logger.Warn("write failed", "payload_len", len(payload), "written", written, "error", err)

			return fmt.Errorf("write: %w", err)
		}
	}
	c.logger.Debug("write", "payload_len", len(payload))

	return nil
}

// Read performs a single read bounded by timeout. The returned slice is a copy.
// A timeout with no data yields ErrIdle; bytes read before an error are
// returned together with that error.
func (c *TCPConn) Read(timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}

	n, err := c.conn.Read(c.buf)
	var data []byte
	if n > 0 {
		data = append([]byte(nil), c.buf[:n]...)
		c.logger.Debug("read", "len", n)
	}
	if err != nil {
		if isTimeout(err) {
			if n > 0 {
				return data, nil
			}

			return nil, ErrIdle
		}

		return data, fmt.Errorf("read: %w", err)
	}

	return data, nil
}

func (c *TCPConn) Close() error {
	err := c.conn.Close()
	if err != nil {
		c.logger.Debug("close failed", "error", err)

		return err
	}
	c.logger.Info("closed")

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
