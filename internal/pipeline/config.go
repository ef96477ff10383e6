package pipeline

import (
	"time"

	"github.com/yanun0323/errors"

	"tickpipe/internal/book"
	"tickpipe/internal/bus"
	"tickpipe/internal/chaos"
	"tickpipe/internal/mdg"
	"tickpipe/internal/og"
	"tickpipe/internal/recorder"
	"tickpipe/internal/strategy"
	"tickpipe/pkg/exception"
)

// SourceMode selects where ticks come from.
type SourceMode string

const (
	SourceLive   SourceMode = "live"
	SourceReplay SourceMode = "replay"
)

// TransportMode selects how ticks reach the feed stage.
type TransportMode string

const (
	TransportDirect TransportMode = "direct"
	TransportUDP    TransportMode = "udp"
)

// GatewayMode selects the order gateway.
type GatewayMode string

const (
	GatewayLocal  GatewayMode = "local"
	GatewayRemote GatewayMode = "remote"
)

const (
	defaultShards        = 4
	defaultQueueCapacity = 1024
	defaultDrainTimeout  = 200 * time.Millisecond
	defaultUDPAddr       = "127.0.0.1:0"
	defaultGatewayNet    = "tcp"
)

// SourceConfig configures the tick source.
type SourceConfig struct {
	Mode SourceMode
	// TicksPerSecond paces the live generator, zero runs unpaced.
	TicksPerSecond int
	// MaxTicks stops the live generator after this many ticks when positive.
	MaxTicks  uint64
	Generator mdg.GeneratorConfig
	Replay    recorder.PlaybackConfig
}

// TransportConfig configures the tick hop into the feed stage.
type TransportConfig struct {
	Mode       TransportMode
	UDPAddr    string
	ReadBuffer int
	Chaos      chaos.Config
}

// BookConfig bounds the order books.
type BookConfig struct {
	MaxLevels     int
	SnapshotDepth int
}

// GatewayConfig selects and configures the order gateway.
type GatewayConfig struct {
	Mode    GatewayMode
	Network string
	Addr    string
	Local   og.Config
}

// Config is the full runtime configuration.
type Config struct {
	Source    SourceConfig
	Transport TransportConfig
	Book      BookConfig

	Shards             int
	QueueCapacity      int
	OrderQueueCapacity int
	// Overflow is the shard queue policy. It may not block: a full shard
	// queue must never stall the receive path.
	Overflow      bus.OverflowPolicy
	OrderOverflow bus.OverflowPolicy
	// DrainTimeout is how long the receiver lingers after the source stops.
	DrainTimeout  time.Duration
	LatencyWindow int

	Strategy strategy.Config
	Gateway  GatewayConfig
	// Record is enabled when Path is set.
	Record recorder.Config
}

func (c Config) withDefaults() Config {
	if c.Source.Mode == "" {
		c.Source.Mode = SourceLive
	}
	if c.Transport.Mode == "" {
		c.Transport.Mode = TransportDirect
	}
	if c.Transport.UDPAddr == "" {
		c.Transport.UDPAddr = defaultUDPAddr
	}
	if c.Book.MaxLevels <= 0 {
		c.Book.MaxLevels = book.DefaultMaxLevels
	}
	if c.Book.SnapshotDepth <= 0 || c.Book.SnapshotDepth > c.Book.MaxLevels {
		c.Book.SnapshotDepth = c.Book.MaxLevels
	}
	if c.Shards <= 0 {
		c.Shards = defaultShards
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = defaultQueueCapacity
	}
	if c.OrderQueueCapacity <= 0 {
		c.OrderQueueCapacity = defaultQueueCapacity
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
	if c.Gateway.Mode == "" {
		c.Gateway.Mode = GatewayLocal
	}
	if c.Gateway.Network == "" {
		c.Gateway.Network = defaultGatewayNet
	}
	return c
}

// Validate checks the config after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch c.Source.Mode {
	case SourceLive:
		if c.Source.TicksPerSecond < 0 {
			return errors.Wrap(exception.ErrConfigInvalid, "ticksPerSecond must not be negative")
		}
	case SourceReplay:
		if err := c.Source.Replay.Validate(); err != nil {
			return errors.Wrap(err, "replay")
		}
		if c.Record.Path != "" && c.Record.Path == c.Source.Replay.Path {
			return errors.Wrap(exception.ErrConfigInvalid, "cannot record into the replayed log")
		}
	default:
		return errors.Wrapf(exception.ErrConfigInvalid, "unknown source mode %q", c.Source.Mode)
	}
	switch c.Transport.Mode {
	case TransportDirect, TransportUDP:
	default:
		return errors.Wrapf(exception.ErrConfigInvalid, "unknown transport mode %q", c.Transport.Mode)
	}
	if err := c.Transport.Chaos.Validate(); err != nil {
		return err
	}
	if c.Overflow == bus.OverflowBlock {
		return errors.Wrap(exception.ErrConfigInvalid, "shard queues may not block")
	}
	switch c.Gateway.Mode {
	case GatewayLocal:
	case GatewayRemote:
		if c.Gateway.Addr == "" {
			return errors.Wrap(exception.ErrEmptyAddress, "remote gateway")
		}
	default:
		return errors.Wrapf(exception.ErrConfigInvalid, "unknown gateway mode %q", c.Gateway.Mode)
	}
	if !strategy.Known(c.Strategy.Name) {
		return errors.Wrapf(exception.ErrConfigUnknownStrategy, "%q", c.Strategy.Name)
	}
	return nil
}
