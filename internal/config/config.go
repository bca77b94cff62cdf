// Package config loads the YAML configuration of the pollhttp command.
package config

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/frankli0324/pollhttp/internal"
	"github.com/frankli0324/pollhttp/internal/dialer"
	"github.com/frankli0324/pollhttp/internal/netpool"
)

// Duration is a time.Duration written as "250ms" or "1m" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	TickInterval    Duration `yaml:"tick_interval"`
	MaxPollFailures int      `yaml:"max_poll_failures"`
	MaxPending      int      `yaml:"max_pending"`
	DeliverFailures bool     `yaml:"deliver_failures"`
	CancelMessage   string   `yaml:"cancel_message"`

	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

type ClientConfig struct {
	Protocol        string   `yaml:"protocol"` // "http1" or "h2c"
	MaxConnsPerHost uint     `yaml:"max_conns_per_host"`
	MaxIdlePerHost  uint     `yaml:"max_idle_per_host"`
	IdleTimeout     Duration `yaml:"idle_timeout"`

	DNSServer   string            `yaml:"dns_server"`
	Network     string            `yaml:"network"` // "ip", "ip4" or "ip6"
	StaticHosts map[string]string `yaml:"static_hosts"`

	Proxy               string `yaml:"proxy"`
	ProxyResolveLocally bool   `yaml:"proxy_resolve_locally"`

	InsecureSkipVerify bool              `yaml:"insecure_skip_verify"`
	Header             map[string]string `yaml:"header"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	Encoding    string `yaml:"encoding"` // "console" or "json"
}

func Default() *Config {
	return &Config{
		TickInterval:    Duration(10 * time.Millisecond),
		MaxPollFailures: 3,
		Client: ClientConfig{
			Protocol:        "http1",
			MaxConnsPerHost: 16,
			MaxIdlePerHost:  8,
			IdleTimeout:     Duration(90 * time.Second),
		},
		Log: LogConfig{Level: "info", Encoding: "console"},
	}
}

// DefaultPath is ~/.pollhttp/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".pollhttp", "config.yaml")
	}
	return filepath.Join(home, ".pollhttp", "config.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("tick_interval must be positive")
	}
	if c.MaxPending < 0 {
		return errors.New("max_pending must not be negative")
	}
	if _, err := c.Client.protocol(); err != nil {
		return err
	}
	switch c.Client.Network {
	case "", "ip", "ip4", "ip6":
	default:
		return fmt.Errorf("unknown network %q", c.Client.Network)
	}
	if c.Client.MaxConnsPerHost == 0 {
		return errors.New("max_conns_per_host must be positive")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Encoding {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log encoding %q", c.Log.Encoding)
	}
	return nil
}

func (c ClientConfig) protocol() (internal.Protocol, error) {
	switch c.Protocol {
	case "", "http1":
		return internal.HTTP1, nil
	case "h2c":
		return internal.H2C, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", c.Protocol)
}

// NewClient builds a client whose connections are pooled and resolved as
// configured.
func (c ClientConfig) NewClient(logger *zap.Logger) (*internal.Client, error) {
	p, err := c.protocol()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := &internal.Client{}
	cl.SetProtocol(p)
	cl.UseCoreDialer(func(d *dialer.CoreDialer) dialer.Dialer {
		d.ConnPool = netpool.NewGroup(c.MaxConnsPerHost, c.MaxIdlePerHost).
			WithIdleTimeout(time.Duration(c.IdleTimeout)).
			WithLogger(logger)
		d.ResolveConfig = &dialer.ResolveConfig{
			CustomDNSServer: c.DNSServer,
			Network:         c.Network,
			StaticHosts:     c.StaticHosts,
		}
		if c.InsecureSkipVerify {
			d.TLSConfig = &tls.Config{NextProtos: []string{"http/1.1"}, InsecureSkipVerify: true}
		}
		if c.Proxy != "" {
			d.GetProxy = dialer.StaticProxy(c.Proxy)
			d.ProxyConfig = &dialer.ProxyConfig{ResolveLocally: c.ProxyResolveLocally}
		}
		return d
	})
	return cl, nil
}

func (c ClientConfig) HTTPHeader() http.Header {
	if len(c.Header) == 0 {
		return nil
	}
	h := make(http.Header, len(c.Header))
	for k, v := range c.Header {
		h.Set(k, v)
	}
	return h
}

// NewLogger builds the zap logger described by c.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	if c.Encoding != "" {
		zc.Encoding = c.Encoding
	}
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
