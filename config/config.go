package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tendermint/ledgerd/libs/log"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
// NOTE: libs/cli must know to look in the config dir!
var (
	DefaultLedgerdDir = ".ledgerd"
	defaultConfigDir  = "config"
	defaultDataDir    = "data"

	defaultConfigFileName = "config.toml"
	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
)

// Database backends the node knows how to open.
const (
	DBBackendGoLevelDB = "goleveldb"
	DBBackendMemDB     = "memdb"
)

// Config defines the top level configuration for a ledgerd node
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	P2P             *P2PConfig             `mapstructure:"p2p"`
	Ledger          *LedgerConfig          `mapstructure:"ledger"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for a ledgerd node
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		P2P:             DefaultP2PConfig(),
		Ledger:          DefaultLedgerConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		P2P:             TestP2PConfig(),
		Ledger:          TestLedgerConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.P2P.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [p2p] section: %w", err)
	}
	if err := cfg.Ledger.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [ledger] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for a ledgerd node
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node. Submitted events without
	// an origin are stamped with it.
	Moniker string `mapstructure:"moniker"`

	// Database backend: goleveldb | memdb
	// * goleveldb (github.com/syndtr/goleveldb - most popular implementation)
	//   - pure go
	//   - stable
	// * memdb
	//   - nothing survives a restart
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`
}

// DefaultBaseConfig returns a default base configuration for a ledgerd node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:   defaultMoniker,
		DBBackend: DBBackendGoLevelDB,
		DBPath:    defaultDataDir,
		LogLevel:  log.LogLevelInfo,
		LogFormat: log.LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing a ledgerd node
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.DBBackend = DBBackendMemDB
	cfg.LogLevel = log.LogLevelDebug
	return cfg
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case log.LogFormatPlain, log.LogFormatText, log.LogFormatJSON:
	default:
		return errors.New("unknown log_format (must be 'plain', 'text' or 'json')")
	}
	switch cfg.DBBackend {
	case DBBackendGoLevelDB, DBBackendMemDB:
	default:
		return fmt.Errorf("unknown db_backend %q (must be %q or %q)", cfg.DBBackend, DBBackendGoLevelDB, DBBackendMemDB)
	}
	if strings.TrimSpace(cfg.Moniker) == "" {
		return errors.New("moniker can't be empty")
	}
	return nil
}

//-----------------------------------------------------------------------------
// P2PConfig

// P2PConfig defines the configuration options for the UDP gossip layer
type P2PConfig struct {
	// Address to bind the UDP socket to
	ListenAddress string `mapstructure:"laddr"`

	// Comma separated list of host:port UDP addresses events are gossiped to
	Peers string `mapstructure:"peers"`

	// Number of distinct peers each event is sent to
	GossipFanOut int `mapstructure:"gossip_fan_out"`
}

// DefaultP2PConfig returns a default configuration for the gossip layer
func DefaultP2PConfig() *P2PConfig {
	return &P2PConfig{
		ListenAddress: "0.0.0.0:26656",
		Peers:         "",
		GossipFanOut:  2,
	}
}

// TestP2PConfig returns a configuration for testing the gossip layer
func TestP2PConfig() *P2PConfig {
	cfg := DefaultP2PConfig()
	cfg.ListenAddress = "127.0.0.1:0"
	return cfg
}

// ListenAddr resolves ListenAddress.
func (cfg *P2PConfig) ListenAddr() (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid laddr %q: %w", cfg.ListenAddress, err)
	}
	return addr, nil
}

// PeerAddrs resolves the comma separated peer list. Blank entries are
// skipped.
func (cfg *P2PConfig) PeerAddrs() ([]*net.UDPAddr, error) {
	return ParsePeers(cfg.Peers)
}

// ParsePeers resolves a comma separated list of UDP addresses.
func ParsePeers(list string) ([]*net.UDPAddr, error) {
	var peers []*net.UDPAddr
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		addr, err := net.ResolveUDPAddr("udp", s)
		if err != nil {
			return nil, fmt.Errorf("invalid peer %q: %w", s, err)
		}
		peers = append(peers, addr)
	}
	return peers, nil
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *P2PConfig) ValidateBasic() error {
	if cfg.GossipFanOut <= 0 {
		return errors.New("gossip_fan_out must be positive")
	}
	if _, err := cfg.ListenAddr(); err != nil {
		return err
	}
	if _, err := cfg.PeerAddrs(); err != nil {
		return err
	}
	return nil
}

//-----------------------------------------------------------------------------
// LedgerConfig

// LedgerConfig defines the configuration of the event pool and the block
// producer
type LedgerConfig struct {
	// How often pending events are cut into a block
	BlockInterval time.Duration `mapstructure:"block_interval"`

	// Maximum number of events in one block
	MaxBlockEvents int `mapstructure:"max_block_events"`

	// Number of recently seen event hashes remembered for deduplication
	SeenCacheSize int `mapstructure:"seen_cache_size"`

	// Maximum number of events waiting for a block (0 - unlimited)
	MaxPendingEvents int `mapstructure:"max_pending_events"`
}

// DefaultLedgerConfig returns a default configuration for the ledger
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		BlockInterval:    time.Second,
		MaxBlockEvents:   1000,
		SeenCacheSize:    10000,
		MaxPendingEvents: 5000,
	}
}

// TestLedgerConfig returns a configuration for testing the ledger
func TestLedgerConfig() *LedgerConfig {
	cfg := DefaultLedgerConfig()
	cfg.BlockInterval = 50 * time.Millisecond
	cfg.MaxBlockEvents = 100
	cfg.SeenCacheSize = 1000
	cfg.MaxPendingEvents = 1000
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *LedgerConfig) ValidateBasic() error {
	if cfg.BlockInterval <= 0 {
		return errors.New("block_interval must be positive")
	}
	if cfg.MaxBlockEvents <= 0 {
		return errors.New("max_block_events must be positive")
	}
	if cfg.SeenCacheSize <= 0 {
		return errors.New("seen_cache_size must be positive")
	}
	if cfg.MaxPendingEvents < 0 {
		return errors.New("max_pending_events can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Maximum number of simultaneous connections.
	// If you want to accept a larger number than the default, make sure
	// you increase your OS limits.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max_open_connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "ledgerd",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max_open_connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

//-----------------------------------------------------------------------------
// Moniker

var defaultMoniker = getDefaultMoniker()

// getDefaultMoniker returns a default moniker, which is the host name. If runtime
// fails to get the host name, "anonymous" will be returned.
func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}
