// Package responder implements the receive side of the multicast
// connectivity test: it listens on the group and unicasts an ack back to
// the source of every valid probe. The loop is stateless per iteration;
// there is no sequence tracking and no deduplication.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/mcastio/mcprobe/internal/logging"
	"github.com/mcastio/mcprobe/internal/metrics"
	"github.com/mcastio/mcprobe/internal/wire"
)

// DefaultPollInterval is the read deadline slice used so the loop can
// observe context cancellation while no traffic is arriving.
const DefaultPollInterval = 1 * time.Second

// Options contains configuration for a responder.
type Options struct {
	// Conn is the group-membership socket. The responder reads probes from
	// it and writes acks through it. The responder does not close it.
	Conn net.PacketConn

	// Cooldown is how long to pause after a datagram that is not a probe,
	// to avoid tight-looping against foreign traffic on the group.
	Cooldown time.Duration

	// PollInterval overrides DefaultPollInterval (0 keeps the default).
	PollInterval time.Duration

	// Logger for logging (nil for none).
	Logger *slog.Logger

	// Metrics sink (nil for the process default).
	Metrics *metrics.Metrics
}

// Responder answers probes on a multicast group.
type Responder struct {
	conn     net.PacketConn
	cooldown time.Duration
	poll     time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New creates a responder from the given options.
func New(opts Options) (*Responder, error) {
	if opts.Conn == nil {
		return nil, errors.New("responder: Conn is required")
	}
	if opts.Cooldown < 0 {
		return nil, fmt.Errorf("responder: negative cooldown %v", opts.Cooldown)
	}

	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Default()
	}

	return &Responder{
		conn:     opts.Conn,
		cooldown: opts.Cooldown,
		poll:     poll,
		logger:   logger,
		metrics:  m,
	}, nil
}

// Run answers probes until the context is cancelled or a transport fault
// occurs. Decode failures are absorbed: they trigger the cooldown and the
// loop continues.
func (r *Responder) Run(ctx context.Context) error {
	buf := make([]byte, wire.MaxProbeSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.conn.SetReadDeadline(time.Now().Add(r.poll)); err != nil {
			return fmt.Errorf("responder: set read deadline: %w", err)
		}

		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				// Quiet group; go back to waiting.
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("responder: receive: %w", err)
		}

		seq, derr := wire.DecodeProbe(buf[:n])
		if derr != nil {
			r.metrics.RecordDecodeFailure()
			r.logger.Info("foreign datagram on group, cooling down",
				logging.KeyRemoteAddr, from.String(),
				logging.KeyCount, n,
				logging.KeyError, derr,
			)
			if err := sleep(ctx, r.cooldown); err != nil {
				return err
			}
			continue
		}
		r.metrics.RecordProbeReceived()

		if _, err := r.conn.WriteTo(wire.EncodeAck(seq), from); err != nil {
			return fmt.Errorf("responder: send ack %d to %s: %w", seq, from, err)
		}
		r.metrics.RecordAckSent()
		r.logger.Debug("ack sent",
			logging.KeyRemoteAddr, from.String(),
			logging.KeySeq, seq,
		)
	}
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
