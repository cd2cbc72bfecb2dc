// Package capture reads BaseStation lines from one or more TCP feeds and
// reconnects when a feed drops or goes quiet.
package capture

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/logger"
)

const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultIdleTimeout    = 30 * time.Second
	bufferSize            = 1000
	maxLineLength         = 4096
)

// Message is one captured SBS line
type Message struct {
	Source    string
	Raw       string
	Timestamp time.Time
}

// Capture reads lines from its sources until stopped
type Capture struct {
	sources        []string
	ReconnectDelay time.Duration
	// IdleTimeout drops a connection that delivers nothing for this long
	IdleTimeout time.Duration

	conns   map[string]net.Conn
	msgChan chan Message
	wg      sync.WaitGroup
	mu      sync.Mutex
	cancel  context.CancelFunc
	log     zerolog.Logger
}

// New creates a new Capture instance
func New(sources []string) *Capture {
	return &Capture{
		sources:        sources,
		ReconnectDelay: DefaultReconnectDelay,
		IdleTimeout:    DefaultIdleTimeout,
		conns:          make(map[string]net.Conn),
		msgChan:        make(chan Message, bufferSize),
		log:            logger.WithComponent("capture"),
	}
}

// Start connects to every source in the background
func (c *Capture) Start(ctx context.Context) error {
	if len(c.sources) == 0 {
		return errors.New("no sources configured")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	for _, source := range c.sources {
		c.wg.Add(1)
		go c.connectToSource(ctx, source)
	}
	return nil
}

// Stop closes every connection, waits for the readers and closes Messages
func (c *Capture) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	for _, conn := range c.conns {
		conn.Close()
	}
	c.mu.Unlock()
	c.wg.Wait()
	close(c.msgChan)
}

// Messages returns the channel for receiving messages
func (c *Capture) Messages() <-chan Message {
	return c.msgChan
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Capture) configureTCP(conn net.Conn, source string) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		c.log.Warn().Err(err).Str("source", source).Msg("Failed to set keepalive")
	}
	if err := tcpConn.SetKeepAlivePeriod(2 * time.Second); err != nil {
		c.log.Warn().Err(err).Str("source", source).Msg("Failed to set keepalive period")
	}
	if err := tcpConn.SetNoDelay(true); err != nil {
		c.log.Warn().Err(err).Str("source", source).Msg("Failed to set no delay")
	}
}

// logReconnect reports how long a source was away
func (c *Capture) logReconnect(source string, disconnectTime time.Time) {
	if disconnectTime.IsZero() {
		c.log.Info().Str("source", source).Msg("Connected to source")
		return
	}
	d := time.Since(disconnectTime)
	switch {
	case d >= 10*time.Second:
		c.log.Info().Str("source", source).Dur("outage", d).Msg("Connection reestablished")
	case d >= 100*time.Millisecond:
		c.log.Info().Str("source", source).Dur("outage", d).Msg("Connection hiccup")
	}
}

func (c *Capture) connectToSource(ctx context.Context, source string) {
	defer c.wg.Done()

	var (
		dialer         net.Dialer
		disconnectTime time.Time
		failures       int
	)
	c.log.Info().Str("source", source).Msg("Attempting to connect")

	for ctx.Err() == nil {
		conn, err := dialer.DialContext(ctx, "tcp", source)
		if err != nil {
			if failures == 0 {
				c.log.Warn().Err(err).Str("source", source).Msg("Failed to connect, retrying")
			}
			failures++
			if disconnectTime.IsZero() {
				disconnectTime = time.Now()
			}
			if !sleep(ctx, c.ReconnectDelay) {
				return
			}
			continue
		}

		failures = 0
		c.configureTCP(conn, source)
		c.logReconnect(source, disconnectTime)

		c.mu.Lock()
		c.conns[source] = conn
		c.mu.Unlock()

		err = c.handleConnection(ctx, source, conn)

		c.mu.Lock()
		delete(c.conns, source)
		c.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Str("source", source).Msg("Connection lost")
		disconnectTime = time.Now()
		if !sleep(ctx, c.ReconnectDelay) {
			return
		}
	}
}

// handleConnection forwards every non-blank line until the connection
// fails, goes idle or ctx is cancelled
func (c *Capture) handleConnection(ctx context.Context, source string, conn net.Conn) error {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), maxLineLength)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.IdleTimeout)); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errors.New("connection closed by source")
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case c.msgChan <- Message{Source: source, Raw: line, Timestamp: time.Now().UTC()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
