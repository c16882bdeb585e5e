// Package prober implements the send side of the multicast connectivity
// test: the pacing loop that emits sequenced probes to the group, waits a
// bounded window for unicast acks, and adapts the inter-probe delay to the
// observed outcome.
package prober

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mcastio/mcprobe/internal/config"
	"github.com/mcastio/mcprobe/internal/logging"
	"github.com/mcastio/mcprobe/internal/metrics"
	"github.com/mcastio/mcprobe/internal/pacing"
	"github.com/mcastio/mcprobe/internal/wire"
)

// Options contains configuration for a prober.
type Options struct {
	// Conn is the send-capable socket. The prober writes probes to Group
	// through it and reads acks from it. The prober does not close it.
	Conn net.PacketConn

	// Group is the destination multicast group address.
	Group net.Addr

	// Timeout bounds the ack wait window per cycle. Zero is legal and
	// yields an immediate-failure cycle rather than a hang.
	Timeout time.Duration

	// Pacing configures the adaptive delay.
	Pacing pacing.Config

	// Correlation selects strict or loose ack matching
	// (config.CorrelationStrict / config.CorrelationLoose).
	Correlation string

	// MaxCycles bounds the number of pacing cycles. 0 means run until the
	// context is cancelled.
	MaxCycles uint64

	// ProgressInterval is how often cumulative counts are logged.
	// 0 disables progress logging.
	ProgressInterval time.Duration

	// Logger for logging (nil for none).
	Logger *slog.Logger

	// Metrics sink (nil for the process default).
	Metrics *metrics.Metrics
}

// Prober owns the pacing loop. It is driven by a single goroutine; Run may
// be called once.
type Prober struct {
	conn    net.PacketConn
	group   net.Addr
	timeout time.Duration
	strict  bool

	pacer    *pacing.Controller
	inflight *tracker
	seq      uint64

	maxCycles        uint64
	progressInterval time.Duration
	lastProgress     time.Time

	acked    uint64
	timeouts uint64

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a prober from the given options.
func New(opts Options) (*Prober, error) {
	if opts.Conn == nil {
		return nil, errors.New("prober: Conn is required")
	}
	if opts.Group == nil {
		return nil, errors.New("prober: Group is required")
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("prober: negative timeout %v", opts.Timeout)
	}
	if err := opts.Pacing.Validate(); err != nil {
		return nil, err
	}
	switch opts.Correlation {
	case config.CorrelationStrict, config.CorrelationLoose:
	default:
		return nil, fmt.Errorf("prober: unknown correlation mode %q", opts.Correlation)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Default()
	}

	return &Prober{
		conn:             opts.Conn,
		group:            opts.Group,
		timeout:          opts.Timeout,
		strict:           opts.Correlation == config.CorrelationStrict,
		pacer:            pacing.NewController(opts.Pacing),
		inflight:         newTracker(),
		maxCycles:        opts.MaxCycles,
		progressInterval: opts.ProgressInterval,
		logger:           logger,
		metrics:          m,
	}, nil
}

// Seq returns the next sequence number to be sent.
func (p *Prober) Seq() uint64 {
	return p.seq
}

// Delay returns the current inter-probe delay.
func (p *Prober) Delay() time.Duration {
	return p.pacer.Delay()
}

// Run executes pacing cycles until the context is cancelled, MaxCycles is
// reached, or a transport fault occurs. Timeouts and foreign datagrams are
// absorbed; only genuine socket faults are returned.
func (p *Prober) Run(ctx context.Context) error {
	p.lastProgress = time.Now()

	for cycle := uint64(0); p.maxCycles == 0 || cycle < p.maxCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		acked, err := p.cycle()
		if err != nil {
			return err
		}

		var delay time.Duration
		if acked {
			p.acked++
			delay = p.pacer.Success()
		} else {
			p.timeouts++
			p.metrics.RecordAckTimeout()
			delay = p.pacer.Failure()
		}
		p.metrics.SetPacingDelay(delay)

		p.logProgress()

		// No pacing sleep after the final bounded cycle.
		if p.maxCycles != 0 && cycle+1 >= p.maxCycles {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return nil
}

// cycle sends one probe and waits out its ack window. It reports whether
// the cycle counts as acknowledged under the configured correlation mode.
func (p *Prober) cycle() (bool, error) {
	seq := p.seq
	payload := wire.EncodeProbe(seq)

	sent := time.Now()
	if _, err := p.conn.WriteTo(payload, p.group); err != nil {
		return false, fmt.Errorf("prober: send probe %d: %w", seq, err)
	}
	p.inflight.add(seq, sent)
	p.metrics.RecordProbeSent()
	p.logger.Debug("probe sent",
		logging.KeyGroup, p.group.String(),
		logging.KeySeq, seq,
	)

	acked, err := p.await(seq)

	// Window closed: the probe is no longer in flight whether or not it
	// was answered.
	p.inflight.drop(seq)
	p.seq++

	return acked, err
}

// await drains inbound datagrams until the first receive timeout. Under
// loose correlation any datagram counts; under strict correlation only an
// ack matching an in-flight sequence number does. Unmatched datagrams are
// counted and otherwise ignored.
func (p *Prober) await(seq uint64) (bool, error) {
	if err := p.conn.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
		return false, fmt.Errorf("prober: set read deadline: %w", err)
	}

	acked := false
	buf := make([]byte, wire.MaxAckSize)
	for {
		n, from, err := p.conn.ReadFrom(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				// Expected end of the wait window.
				return acked, nil
			}
			return acked, fmt.Errorf("prober: receive ack: %w", err)
		}

		if !p.strict {
			// Loose mode: presence of any reply is the liveness signal.
			if !acked {
				p.metrics.RecordAck(config.CorrelationLoose, 0)
			}
			acked = true
			p.logger.Debug("reply received",
				logging.KeyRemoteAddr, from.String(),
				logging.KeySeq, seq,
			)
			continue
		}

		ackSeq, derr := wire.DecodeAck(buf[:n])
		if derr != nil {
			p.metrics.RecordUnmatched()
			p.logger.Debug("ignoring non-ack datagram",
				logging.KeyRemoteAddr, from.String(),
				logging.KeyError, derr,
			)
			continue
		}

		rtt, ok := p.inflight.match(ackSeq, time.Now())
		if !ok {
			// Late ack from an earlier window, or a stray responder.
			p.metrics.RecordUnmatched()
			p.logger.Debug("ack does not match an in-flight probe",
				logging.KeyRemoteAddr, from.String(),
				logging.KeySeq, ackSeq,
			)
			continue
		}

		acked = true
		p.metrics.RecordAck(config.CorrelationStrict, rtt)
		p.logger.Debug("ack received",
			logging.KeyRemoteAddr, from.String(),
			logging.KeySeq, ackSeq,
			logging.KeyRTT, rtt,
		)
	}
}

// logProgress periodically reports cumulative counts so long runs show
// signs of life at info level.
func (p *Prober) logProgress() {
	if p.progressInterval <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(p.lastProgress) < p.progressInterval {
		return
	}
	p.lastProgress = now
	p.logger.Info("progress",
		"sent", humanize.Comma(int64(p.seq)),
		"acked", humanize.Comma(int64(p.acked)),
		"timeouts", humanize.Comma(int64(p.timeouts)),
		logging.KeyDelay, p.pacer.Delay(),
	)
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
