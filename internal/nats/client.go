package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/saviobatista/sbs-viewer/internal/logger"
	"github.com/saviobatista/sbs-viewer/internal/types"
)

const (
	SubjectSBSRaw = "sbs.raw"
	StreamSBSRaw  = "SBS_RAW"
	// StreamMaxAge bounds how long raw messages wait for the tracker
	StreamMaxAge = 24 * time.Hour
)

// ErrNilMessage is returned when publishing a nil message
var ErrNilMessage = errors.New("nil SBS message")

// Subscription is a live JetStream subscription
type Subscription = nats.Subscription

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  zerolog.Logger
}

// New connects to url and makes sure the raw message stream exists
func New(url string) (*Client, error) {
	log := logger.WithComponent("nats")

	nc, err := nats.Connect(url,
		nats.Name("sbs-viewer"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamSBSRaw,
		Subjects: []string{SubjectSBSRaw},
		Storage:  nats.FileStorage,
		MaxAge:   StreamMaxAge,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{conn: nc, js: js, log: log}, nil
}

// PublishSBSMessage publishes an SBS message to the raw stream
func (c *Client) PublishSBSMessage(msg *types.SBSMessage) error {
	if msg == nil {
		return ErrNilMessage
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := c.js.Publish(SubjectSBSRaw, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// SubscribeSBSRaw delivers raw SBS messages to handler. With a durable
// name the consumer resumes where it left off after a restart.
func (c *Client) SubscribeSBSRaw(durable string, handler func(*types.SBSMessage)) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("nil handler")
	}

	opts := []nats.SubOpt{nats.DeliverNew()}
	if durable != "" {
		opts = []nats.SubOpt{nats.Durable(durable), nats.DeliverAll()}
	}

	sub, err := c.js.Subscribe(SubjectSBSRaw, func(msg *nats.Msg) {
		sbsMsg, err := decodeSBSMessage(msg.Data)
		if err != nil {
			c.log.Warn().Err(err).Msg("Dropping undecodable message")
			return
		}
		handler(sbsMsg)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

func decodeSBSMessage(data []byte) (*types.SBSMessage, error) {
	var msg types.SBSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if msg.Raw == "" {
		return nil, errors.New("empty raw message")
	}
	return &msg, nil
}

// Close drains subscriptions and closes the connection
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to drain NATS connection")
		c.conn.Close()
	}
}
