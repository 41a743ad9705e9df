// Package config loads the mqtiny-agent configuration.
//
// Values are layered, each source overriding the previous one:
//  1. built-in defaults
//  2. the YAML file
//  3. environment variables prefixed with MQTINY_ (a .env file is loaded
//     into the environment first; variables already set win)
//  4. command-line flags registered with RegisterFlags
package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/gonzalop/mqtiny"
	"github.com/gonzalop/mqtiny/modular"
	"github.com/gonzalop/mqtiny/transport"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MQTINY_"

// Config is the agent configuration.
type Config struct {
	Broker BrokerConfig `yaml:"broker" envPrefix:"BROKER_"`
	Agent  AgentConfig  `yaml:"agent" envPrefix:"AGENT_"`
	Log    LogConfig    `yaml:"log" envPrefix:"LOG_"`
}

// BrokerConfig describes the broker connection.
type BrokerConfig struct {
	URL             string        `yaml:"url" env:"URL"`
	ClientID        string        `yaml:"client_id" env:"CLIENT_ID"`
	Username        string        `yaml:"username" env:"USERNAME"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	KeepAlive       time.Duration `yaml:"keep_alive" env:"KEEP_ALIVE"`
	CleanSession    bool          `yaml:"clean_session" env:"CLEAN_SESSION"`
	ProtocolVersion uint8         `yaml:"protocol_version" env:"PROTOCOL_VERSION"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	ReconnectDelay  time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`
	CAFile          string        `yaml:"ca_file" env:"CA_FILE"`
	Insecure        bool          `yaml:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY"`
}

// AgentConfig configures the agent modules.
type AgentConfig struct {
	// TopicPrefix roots the status, command and reply topics.
	// Default: "devices/<client id>".
	TopicPrefix       string        `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
	QoS               int           `yaml:"qos" env:"QOS"`
	LogFilters        []string      `yaml:"log_filters" env:"LOG_FILTERS" envSeparator:","`
	OutboxCapacity    int           `yaml:"outbox_capacity" env:"OUTBOX_CAPACITY"`
	PayloadSize       int           `yaml:"payload_size" env:"PAYLOAD_SIZE"`
}

// LogConfig configures the agent logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:             "tcp://localhost:1883",
			KeepAlive:       60 * time.Second,
			CleanSession:    true,
			ProtocolVersion: mqtiny.ProtocolV311,
			ConnectTimeout:  30 * time.Second,
			ReconnectDelay:  5 * time.Second,
		},
		Agent: AgentConfig{
			HeartbeatInterval: 30 * time.Second,
			QoS:               1,
			OutboxCapacity:    8,
			PayloadSize:       256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from path (skipped when empty), the
// environment and the flags of fs (skipped when nil), then validates it.
// dotenv names the .env files to load; a missing file is ignored.
func Load(path string, fs *pflag.FlagSet, dotenv ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := loadDotEnv(dotenv); err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if fs != nil {
		if err := cfg.applyFlags(fs); err != nil {
			return nil, err
		}
	}

	cfg.fillDerived()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// fillDerived sets the values that default to other values.
func (c *Config) fillDerived() {
	if c.Broker.ClientID == "" {
		// 15 characters, within the 23 every v3.1.1 server must accept.
		c.Broker.ClientID = "mqtiny-" + uuid.NewString()[:8]
	}
	if c.Agent.TopicPrefix == "" {
		c.Agent.TopicPrefix = "devices/" + c.Broker.ClientID
	}
	c.Agent.TopicPrefix = strings.TrimSuffix(c.Agent.TopicPrefix, "/")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Broker.URL == "" {
		errs = append(errs, "broker.url is required")
	}
	if c.Broker.ProtocolVersion != mqtiny.ProtocolV311 && c.Broker.ProtocolVersion != mqtiny.ProtocolV50 {
		errs = append(errs, "broker.protocol_version must be 4 or 5")
	}
	if ka := c.Broker.KeepAlive; ka < 0 || ka > mqtiny.MaxKeepAlive || (ka > 0 && ka < time.Second) {
		errs = append(errs, "broker.keep_alive must be 0 or between 1s and 65535s")
	}
	if c.Broker.ReconnectDelay <= 0 {
		errs = append(errs, "broker.reconnect_delay must be positive")
	}
	if c.Broker.Password != "" && c.Broker.Username == "" {
		errs = append(errs, "broker.password requires broker.username")
	}

	if c.Agent.QoS < 0 || c.Agent.QoS > 2 {
		errs = append(errs, "agent.qos must be 0, 1, or 2")
	}
	if c.Agent.HeartbeatInterval <= 0 {
		errs = append(errs, "agent.heartbeat_interval must be positive")
	}
	if c.Agent.OutboxCapacity <= 0 {
		errs = append(errs, "agent.outbox_capacity must be positive")
	}
	if c.Agent.PayloadSize <= 0 {
		errs = append(errs, "agent.payload_size must be positive")
	}
	if strings.ContainsAny(c.Agent.TopicPrefix, "+#") {
		errs = append(errs, "agent.topic_prefix must not contain wildcards")
	} else if err := mqtiny.ValidateTopicFilter(c.Agent.TopicPrefix + "/#"); err != nil {
		errs = append(errs, fmt.Sprintf("agent.topic_prefix: %v", err))
	}
	for _, f := range c.Agent.LogFilters {
		if err := mqtiny.ValidateTopicFilter(f); err != nil {
			errs = append(errs, fmt.Sprintf("agent.log_filters: %q: %v", f, err))
		}
	}

	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		errs = append(errs, fmt.Sprintf("log.level %q must be debug, info, warn, or error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewLogger returns a logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levels[strings.ToLower(c.Log.Level)]}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// QoS returns the agent QoS level.
func (c *Config) QoS() mqtiny.QoS {
	return mqtiny.QoS(c.Agent.QoS)
}

// ClientOptions returns the engine options for the broker settings.
func (c *Config) ClientOptions(logger *slog.Logger) []mqtiny.Option {
	opts := []mqtiny.Option{
		mqtiny.WithClientID(c.Broker.ClientID),
		mqtiny.WithKeepAlive(c.Broker.KeepAlive),
		mqtiny.WithCleanSession(c.Broker.CleanSession),
		mqtiny.WithProtocolVersion(c.Broker.ProtocolVersion),
		mqtiny.WithConnectTimeout(c.Broker.ConnectTimeout),
		mqtiny.WithTxBufferSize(c.TxBufferSize()),
	}
	if c.Broker.Username != "" {
		opts = append(opts, mqtiny.WithCredentials(c.Broker.Username, c.Broker.Password))
	}
	if logger != nil {
		opts = append(opts, mqtiny.WithLogger(logger))
	}
	return opts
}

// TxBufferSize is large enough for a PUBLISH carrying the biggest topic
// and payload the runtime outbox accepts.
func (c *Config) TxBufferSize() int {
	// fixed header, topic length, packet id
	const overhead = 5 + 2 + 2
	return max(mqtiny.DefaultTxBufferSize, c.Agent.PayloadSize+modular.MaxTopicLen+overhead)
}

// RuntimeOptions returns the module runtime options for the agent settings.
func (c *Config) RuntimeOptions(logger *slog.Logger) []modular.RuntimeOption {
	opts := []modular.RuntimeOption{
		modular.WithOutboxCapacity(c.Agent.OutboxCapacity),
		modular.WithPayloadSize(c.Agent.PayloadSize),
		modular.WithSubscribeQoS(c.QoS()),
	}
	if logger != nil {
		opts = append(opts, modular.WithLogger(logger))
	}
	return opts
}

// DialOptions returns the transport options for the broker settings.
func (c *Config) DialOptions() ([]transport.DialOption, error) {
	if c.Broker.CAFile == "" && !c.Broker.Insecure {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.Broker.Insecure, //nolint:gosec // opt-in for test brokers
	}
	if c.Broker.CAFile != "" {
		pem, err := os.ReadFile(c.Broker.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.Broker.CAFile)
		}
		tlsConfig.RootCAs = pool
	}
	return []transport.DialOption{transport.WithTLSConfig(tlsConfig)}, nil
}
