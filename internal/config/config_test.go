package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if time.Duration(cfg.TickInterval) != 10*time.Millisecond || cfg.MaxPollFailures != 3 {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(write(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Client.Protocol != "http1" {
		t.Errorf("protocol = %q", cfg.Client.Protocol)
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load(write(t, `
tick_interval: 25ms
max_poll_failures: -1
max_pending: 64
deliver_failures: true
client:
  protocol: h2c
  idle_timeout: 30s
  network: ip4
  static_hosts:
    push.example.test: 127.0.0.1
  header:
    user-agent: pollhttp
log:
  level: debug
  encoding: json
`))
	if err != nil {
		t.Fatal(err)
	}
	if time.Duration(cfg.TickInterval) != 25*time.Millisecond {
		t.Errorf("tick = %v", time.Duration(cfg.TickInterval))
	}
	if cfg.MaxPollFailures != -1 || cfg.MaxPending != 64 || !cfg.DeliverFailures {
		t.Errorf("queue = %+v", cfg)
	}
	if time.Duration(cfg.Client.IdleTimeout) != 30*time.Second {
		t.Errorf("idle timeout = %v", time.Duration(cfg.Client.IdleTimeout))
	}
	if cfg.Client.MaxConnsPerHost != 16 {
		t.Errorf("unset field lost its default: %d", cfg.Client.MaxConnsPerHost)
	}
	if cfg.Client.StaticHosts["push.example.test"] != "127.0.0.1" {
		t.Errorf("static hosts = %v", cfg.Client.StaticHosts)
	}
	if got := cfg.Client.HTTPHeader().Get("User-Agent"); got != "pollhttp" {
		t.Errorf("header = %q", got)
	}
	cl, err := cfg.Client.NewClient(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cl.Protocol().String() != "h2c" {
		t.Errorf("protocol = %v", cl.Protocol())
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		t.Fatal(err)
	}
	if !logger.Core().Enabled(-1) {
		t.Error("debug level not enabled")
	}
}

func TestLoadRejects(t *testing.T) {
	for name, c := range map[string]struct {
		yaml string
		want string
	}{
		"UnknownKey":   {"tick: 1s\n", "field tick not found"},
		"BadDuration":  {"tick_interval: soon\n", "line 1"},
		"ZeroTick":     {"tick_interval: 0s\n", "tick_interval"},
		"Protocol":     {"client:\n  protocol: h3\n", "unknown protocol"},
		"Network":      {"client:\n  network: ipx\n", "unknown network"},
		"LogLevel":     {"log:\n  level: loud\n", "loud"},
		"LogEncoding":  {"log:\n  encoding: xml\n", "encoding"},
		"MaxPending":   {"max_pending: -2\n", "max_pending"},
		"NoConnection": {"client:\n  max_conns_per_host: 0\n", "max_conns_per_host"},
	} {
		c := c
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, c.yaml))
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Errorf("err = %v, want %q", err, c.want)
			}
		})
	}
}

func TestDurationMarshal(t *testing.T) {
	v, err := Duration(1500 * time.Millisecond).MarshalYAML()
	if err != nil || v != "1.5s" {
		t.Errorf("marshal = %v, %v", v, err)
	}
}
