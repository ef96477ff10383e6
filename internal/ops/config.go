package ops

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"

	"tickpipe/internal/bus"
	"tickpipe/internal/chaos"
	"tickpipe/internal/mdg"
	"tickpipe/internal/og"
	"tickpipe/internal/pipeline"
	"tickpipe/internal/recorder"
	"tickpipe/internal/schema"
	"tickpipe/internal/strategy"
	"tickpipe/pkg/conn"
	"tickpipe/pkg/exception"
)

// FileConfig mirrors the YAML config layout.
type FileConfig struct {
	Symbols   []SymbolConfig  `yaml:"symbols"`
	Source    SourceConfig    `yaml:"source"`
	Transport TransportConfig `yaml:"transport"`
	Book      BookConfig      `yaml:"book"`
	Pipeline  RuntimeConfig   `yaml:"pipeline"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Record    RecordConfig    `yaml:"record"`
	Journal   JournalConfig   `yaml:"journal"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// SymbolConfig describes one enabled symbol. Prices are decimal strings.
type SymbolConfig struct {
	Name       string `yaml:"name"`
	PriceScale int32  `yaml:"priceScale"`
	QtyScale   int32  `yaml:"qtyScale"`
	BasePrice  string `yaml:"basePrice"`
	Low        string `yaml:"low"`
	High       string `yaml:"high"`
}

// SourceConfig selects the tick source.
type SourceConfig struct {
	Mode           string       `yaml:"mode"`
	TicksPerSecond int          `yaml:"ticksPerSecond"`
	MaxTicks       uint64       `yaml:"maxTicks"`
	Seed           int64        `yaml:"seed"`
	JitterBps      int64        `yaml:"jitterBps"`
	SpreadBps      int64        `yaml:"spreadBps"`
	MaxVolume      int64        `yaml:"maxVolume"`
	Replay         ReplayConfig `yaml:"replay"`
}

// ReplayConfig points at a recorded log.
type ReplayConfig struct {
	Path   string        `yaml:"path"`
	Speed  float64       `yaml:"speed"`
	Rate   int           `yaml:"rate"`
	MaxGap time.Duration `yaml:"maxGap"`
}

// TransportConfig selects how ticks reach the feed stage.
type TransportConfig struct {
	Mode       string      `yaml:"mode"`
	UDPAddr    string      `yaml:"udpAddr"`
	ReadBuffer int         `yaml:"readBuffer"`
	Chaos      ChaosConfig `yaml:"chaos"`
}

// ChaosConfig injects faults on the tick path.
type ChaosConfig struct {
	Seed          int64         `yaml:"seed"`
	DropRate      float64       `yaml:"dropRate"`
	DuplicateRate float64       `yaml:"duplicateRate"`
	ReorderWindow int           `yaml:"reorderWindow"`
	MaxDelay      time.Duration `yaml:"maxDelay"`
}

// BookConfig bounds the order books.
type BookConfig struct {
	MaxLevels     int `yaml:"maxLevels"`
	SnapshotDepth int `yaml:"snapshotDepth"`
}

// RuntimeConfig sizes the queues and workers.
type RuntimeConfig struct {
	Shards             int           `yaml:"shards"`
	QueueCapacity      int           `yaml:"queueCapacity"`
	OrderQueueCapacity int           `yaml:"orderQueueCapacity"`
	Overflow           string        `yaml:"overflow"`
	OrderOverflow      string        `yaml:"orderOverflow"`
	DrainTimeout       time.Duration `yaml:"drainTimeout"`
	LatencyWindow      int           `yaml:"latencyWindow"`
}

// StrategyConfig selects and parameterises the strategy.
type StrategyConfig struct {
	Name          string              `yaml:"name"`
	OrderQty      string              `yaml:"orderQty"`
	MarketMaking  MarketMakingConfig  `yaml:"marketMaking"`
	MeanReversion MeanReversionConfig `yaml:"meanReversion"`
}

// MarketMakingConfig holds market making parameters.
type MarketMakingConfig struct {
	SpreadBps    int64  `yaml:"spreadBps"`
	RequoteTicks int64  `yaml:"requoteTicks"`
	MaxInventory string `yaml:"maxInventory"`
}

// MeanReversionConfig holds mean reversion parameters.
type MeanReversionConfig struct {
	Window          int     `yaml:"window"`
	ZScore          float64 `yaml:"zScore"`
	SizeByDeviation bool    `yaml:"sizeByDeviation"`
}

// GatewayConfig selects a local or remote order gateway.
type GatewayConfig struct {
	Mode     string        `yaml:"mode"`
	Network  string        `yaml:"network"`
	Addr     string        `yaml:"addr"`
	AckDelay time.Duration `yaml:"ackDelay"`
	IDSeed   uint64        `yaml:"idSeed"`
	Limits   LimitsConfig  `yaml:"limits"`
}

// LimitsConfig holds pre-trade checks. Quantities are decimal strings.
type LimitsConfig struct {
	KillSwitch      bool          `yaml:"killSwitch"`
	MaxOrderQty     string        `yaml:"maxOrderQty"`
	MaxPosition     string        `yaml:"maxPosition"`
	OrderRateLimit  int           `yaml:"orderRateLimit"`
	OrderRateWindow time.Duration `yaml:"orderRateWindow"`
}

// RecordConfig enables tick recording when Path is set.
type RecordConfig struct {
	Path      string `yaml:"path"`
	SyncEvery int    `yaml:"syncEvery"`
}

// JournalConfig enables the Postgres order journal.
type JournalConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"`
	Batch    int    `yaml:"batch"`
	Buffer   int    `yaml:"buffer"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// Journal is the resolved journal setup.
type Journal struct {
	Enabled bool
	Conn    conn.Option
	Batch   int
	Buffer  int
}

// Metrics is the resolved metrics setup.
type Metrics struct {
	Addr      string
	Namespace string
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Registry *schema.Registry
	Pipeline pipeline.Config
	Journal  Journal
	Metrics  Metrics
}

const (
	defaultTicksPerSecond = 1000
	defaultNamespace      = "tickpipe"
)

// Load reads a YAML config file, expands ${VAR} references and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse resolves a YAML document. Any missing or invalid parameter fails
// the whole load.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config")
	}
	return cfg.Resolve()
}

// LoadRegistry reads a config file and only builds the registry.
func LoadRegistry(path string) (*schema.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg FileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return buildRegistry(cfg.Symbols)
}

// Resolve validates the file config and builds the runtime config.
func (cfg FileConfig) Resolve() (Loaded, error) {
	reg, err := buildRegistry(cfg.Symbols)
	if err != nil {
		return Loaded{}, err
	}

	source, err := resolveSource(cfg.Source, reg)
	if err != nil {
		return Loaded{}, err
	}
	transport, err := resolveTransport(cfg.Transport)
	if err != nil {
		return Loaded{}, err
	}
	strat, err := resolveStrategy(cfg.Strategy, reg)
	if err != nil {
		return Loaded{}, err
	}
	gateway, err := resolveGateway(cfg.Gateway)
	if err != nil {
		return Loaded{}, err
	}
	overflow, ok := bus.ParseOverflowPolicy(cfg.Pipeline.Overflow)
	if !ok {
		return Loaded{}, errors.Wrapf(exception.ErrConfigInvalid, "unknown overflow policy: %s", cfg.Pipeline.Overflow)
	}
	orderOverflow, ok := bus.ParseOverflowPolicy(cfg.Pipeline.OrderOverflow)
	if !ok {
		return Loaded{}, errors.Wrapf(exception.ErrConfigInvalid, "unknown order overflow policy: %s", cfg.Pipeline.OrderOverflow)
	}

	pc := pipeline.Config{
		Source:             source,
		Transport:          transport,
		Book:               pipeline.BookConfig{MaxLevels: cfg.Book.MaxLevels, SnapshotDepth: cfg.Book.SnapshotDepth},
		Shards:             cfg.Pipeline.Shards,
		QueueCapacity:      cfg.Pipeline.QueueCapacity,
		OrderQueueCapacity: cfg.Pipeline.OrderQueueCapacity,
		Overflow:           overflow,
		OrderOverflow:      orderOverflow,
		DrainTimeout:       cfg.Pipeline.DrainTimeout,
		LatencyWindow:      cfg.Pipeline.LatencyWindow,
		Strategy:           strat,
		Gateway:            gateway,
		Record:             recorder.Config{Path: cfg.Record.Path, SyncEvery: cfg.Record.SyncEvery},
	}
	if err := pc.Validate(); err != nil {
		return Loaded{}, err
	}

	metrics := Metrics{Addr: cfg.Metrics.Addr, Namespace: cfg.Metrics.Namespace}
	if metrics.Namespace == "" {
		metrics.Namespace = defaultNamespace
	}

	return Loaded{
		Registry: reg,
		Pipeline: pc,
		Journal:  resolveJournal(cfg.Journal),
		Metrics:  metrics,
	}, nil
}

func buildRegistry(symbols []SymbolConfig) (*schema.Registry, error) {
	if len(symbols) == 0 {
		return nil, exception.ErrConfigNoSymbols
	}
	reg := schema.NewRegistry()
	for _, sym := range symbols {
		spec := schema.SymbolSpec{
			Name:       sym.Name,
			PriceScale: schema.Scale(sym.PriceScale),
			QtyScale:   schema.Scale(sym.QtyScale),
		}
		if err := spec.PriceScale.Validate(); err != nil {
			return nil, errors.Wrapf(err, "symbol %s price scale", sym.Name)
		}
		var err error
		if spec.BasePrice, err = optionalPrice(sym.BasePrice, spec.PriceScale); err != nil {
			return nil, errors.Wrapf(err, "symbol %s basePrice", sym.Name)
		}
		if spec.Band.Low, err = optionalPrice(sym.Low, spec.PriceScale); err != nil {
			return nil, errors.Wrapf(err, "symbol %s low", sym.Name)
		}
		if spec.Band.High, err = optionalPrice(sym.High, spec.PriceScale); err != nil {
			return nil, errors.Wrapf(err, "symbol %s high", sym.Name)
		}
		if (sym.Low != "" || sym.High != "") && !spec.Band.Valid() {
			return nil, errors.Wrapf(exception.ErrConfigInvalid, "symbol %s: low must be below high", sym.Name)
		}
		if _, err := reg.AddSymbol(spec); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func optionalPrice(s string, scale schema.Scale) (schema.Price, error) {
	if s == "" {
		return 0, nil
	}
	p, err := schema.ParsePrice(s, scale)
	if err != nil {
		return 0, err
	}
	if p <= 0 {
		return 0, errors.Wrapf(exception.ErrConfigInvalid, "price must be positive: %s", s)
	}
	return p, nil
}

func optionalDecimal(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "%s", field)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Wrapf(exception.ErrConfigInvalid, "%s must not be negative", field)
	}
	return d, nil
}

func resolveSource(cfg SourceConfig, reg *schema.Registry) (pipeline.SourceConfig, error) {
	mode := pipeline.SourceMode(cfg.Mode)
	if mode == "" {
		mode = pipeline.SourceLive
	}
	out := pipeline.SourceConfig{
		Mode:           mode,
		TicksPerSecond: cfg.TicksPerSecond,
		MaxTicks:       cfg.MaxTicks,
		Generator: mdg.GeneratorConfig{
			Seed:      cfg.Seed,
			JitterBps: cfg.JitterBps,
			SpreadBps: cfg.SpreadBps,
			MaxVolume: cfg.MaxVolume,
		},
		Replay: recorder.PlaybackConfig{
			Path:   cfg.Replay.Path,
			Speed:  cfg.Replay.Speed,
			Rate:   cfg.Replay.Rate,
			MaxGap: cfg.Replay.MaxGap,
		},
	}
	if out.TicksPerSecond == 0 && mode == pipeline.SourceLive {
		out.TicksPerSecond = defaultTicksPerSecond
	}
	if mode == pipeline.SourceLive {
		for _, spec := range reg.Symbols() {
			if spec.BasePrice <= 0 {
				return out, errors.Wrapf(exception.ErrConfigMissingSymbol, "symbol %s: basePrice required by the live generator", spec.Name)
			}
		}
	}
	return out, nil
}

func resolveTransport(cfg TransportConfig) (pipeline.TransportConfig, error) {
	mode := pipeline.TransportMode(cfg.Mode)
	if mode == "" {
		mode = pipeline.TransportDirect
	}
	out := pipeline.TransportConfig{
		Mode:       mode,
		UDPAddr:    cfg.UDPAddr,
		ReadBuffer: cfg.ReadBuffer,
		Chaos: chaos.Config{
			Seed:          cfg.Chaos.Seed,
			DropRate:      cfg.Chaos.DropRate,
			DuplicateRate: cfg.Chaos.DuplicateRate,
			ReorderWindow: cfg.Chaos.ReorderWindow,
			MaxDelay:      cfg.Chaos.MaxDelay,
		},
	}
	if err := out.Chaos.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

func resolveStrategy(cfg StrategyConfig, reg *schema.Registry) (strategy.Config, error) {
	if !strategy.Known(cfg.Name) {
		return strategy.Config{}, errors.Wrapf(exception.ErrConfigUnknownStrategy, "%q", cfg.Name)
	}
	qty, err := optionalDecimal(cfg.OrderQty, "strategy orderQty")
	if err != nil {
		return strategy.Config{}, err
	}
	maxInv, err := optionalDecimal(cfg.MarketMaking.MaxInventory, "marketMaking maxInventory")
	if err != nil {
		return strategy.Config{}, err
	}
	out := strategy.Config{
		Name:     cfg.Name,
		OrderQty: qty,
		MarketMaking: strategy.MarketMakingConfig{
			SpreadBps:    cfg.MarketMaking.SpreadBps,
			RequoteTicks: cfg.MarketMaking.RequoteTicks,
			MaxInventory: maxInv,
		},
		MeanReversion: strategy.MeanReversionParams{
			Window:          cfg.MeanReversion.Window,
			ZScore:          cfg.MeanReversion.ZScore,
			SizeByDeviation: cfg.MeanReversion.SizeByDeviation,
		},
	}
	// Build once so per-symbol gaps surface before anything starts.
	if _, err := strategy.Build(out, reg, nil, nil); err != nil {
		return strategy.Config{}, err
	}
	return out, nil
}

func resolveGateway(cfg GatewayConfig) (pipeline.GatewayConfig, error) {
	mode := pipeline.GatewayMode(cfg.Mode)
	if mode == "" {
		mode = pipeline.GatewayLocal
	}
	maxQty, err := optionalDecimal(cfg.Limits.MaxOrderQty, "limits maxOrderQty")
	if err != nil {
		return pipeline.GatewayConfig{}, err
	}
	maxPos, err := optionalDecimal(cfg.Limits.MaxPosition, "limits maxPosition")
	if err != nil {
		return pipeline.GatewayConfig{}, err
	}
	if cfg.Limits.OrderRateLimit < 0 || cfg.Limits.OrderRateWindow < 0 {
		return pipeline.GatewayConfig{}, errors.Wrap(exception.ErrConfigInvalid, "limits rate must not be negative")
	}
	return pipeline.GatewayConfig{
		Mode:    mode,
		Network: cfg.Network,
		Addr:    cfg.Addr,
		Local: og.Config{
			AckDelay: cfg.AckDelay,
			IDSeed:   cfg.IDSeed,
			Limits: og.LimitsConfig{
				KillSwitch:      cfg.Limits.KillSwitch,
				MaxOrderQty:     maxQty,
				MaxPosition:     maxPos,
				OrderRateLimit:  cfg.Limits.OrderRateLimit,
				OrderRateWindow: cfg.Limits.OrderRateWindow,
			},
		},
	}, nil
}

func resolveJournal(cfg JournalConfig) Journal {
	return Journal{
		Enabled: cfg.Enabled,
		Conn: conn.Option{
			ConnString: cfg.DSN,
			Host:       cfg.Host,
			Port:       cfg.Port,
			User:       cfg.User,
			Password:   cfg.Password,
			Database:   cfg.Database,
			SSLMode:    cfg.SSLMode,
		},
		Batch:  cfg.Batch,
		Buffer: cfg.Buffer,
	}
}
