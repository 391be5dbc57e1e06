package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"

	"claimflow/internal/bootstrap/logging"
	"claimflow/internal/errs"
	"claimflow/internal/ports"
)

const DefaultSubjectPrefix = "claims."

type NATSConfig struct {
	URL            string
	Token          string
	SubjectPrefix  string
	ConnectTimeout time.Duration
}

// NATSPublisher publishes each event as JSON on <prefix><type>, e.g. claims.decided.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

var _ ports.EventPublisher = (*NATSPublisher)(nil)

// ConnectNATS dials with exponential backoff until cfg.ConnectTimeout elapses.
func ConnectNATS(ctx context.Context, cfg NATSConfig) (*NATSPublisher, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = nats.DefaultURL
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}

	opts := []nats.Option{
		nats.Name("claimflow"),
		nats.RetryOnFailedConnect(false),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.ConnectTimeout
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 10 * time.Second
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "events.nats"), slog.String("url", url))
	var conn *nats.Conn
	err := backoff.RetryNotify(func() error {
		nc, err := nats.Connect(url, opts...)
		if err != nil {
			return err
		}
		conn = nc
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		logging.Warn(logCtx, "nats connect failed, retrying", slog.Any("err", errs.Loggable(err)), slog.Duration("wait", wait))
	})
	if err != nil {
		return nil, errs.Transient(errs.Wrap(err, "connect nats"))
	}

	logging.Info(logCtx, "nats publisher connected", slog.String("subject_prefix", prefix))
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) Subject(eventType ports.ClaimEventType) string {
	return p.prefix + string(eventType)
}

func (p *NATSPublisher) Publish(ctx context.Context, event ports.ClaimEvent) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "marshal claim event")
	}
	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		return errs.Transient(errs.Wrapf(err, "publish %s", p.Subject(event.Type)))
	}
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return errs.Wrap(err, "drain nats connection")
	}
	return nil
}
