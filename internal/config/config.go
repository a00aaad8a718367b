package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	UDP  UDPConfig  `yaml:"udp"`
	Feed FeedConfig `yaml:"feed"`
	Sim  SimConfig  `yaml:"sim"`
}

type UDPConfig struct {
	Listen           string `yaml:"listen"`
	MaxDatagramBytes int    `yaml:"max_datagram_bytes"`
}

type FeedConfig struct {
	Listen       string        `yaml:"listen"`
	Path         string        `yaml:"path"`
	Interval     time.Duration `yaml:"interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type SimConfig struct {
	Enable       bool          `yaml:"enable"`
	Name         string        `yaml:"name"`
	Dest         string        `yaml:"dest"`
	Interval     time.Duration `yaml:"interval"`
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltFeet      int           `yaml:"alt_feet"`
	GroundKt     int           `yaml:"ground_kt"`
	RadiusNm     float64       `yaml:"radius_nm"`
	Period       time.Duration `yaml:"period"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := decodeStrict(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.UDP.Listen == "" {
		cfg.UDP.Listen = ":49002"
	}
	if _, _, err := net.SplitHostPort(cfg.UDP.Listen); err != nil {
		return Config{}, fmt.Errorf("udp.listen must be host:port or :port")
	}
	if cfg.UDP.MaxDatagramBytes < 0 {
		return Config{}, fmt.Errorf("udp.max_datagram_bytes must be > 0")
	}
	if cfg.UDP.MaxDatagramBytes == 0 {
		cfg.UDP.MaxDatagramBytes = 4096
	}

	if cfg.Feed.Listen == "" {
		cfg.Feed.Listen = "0.0.0.0:2992"
	}
	if cfg.Feed.Path == "" {
		cfg.Feed.Path = "/api/v1"
	}
	if !strings.HasPrefix(cfg.Feed.Path, "/") {
		return Config{}, fmt.Errorf("feed.path must start with '/'")
	}
	// The web handler owns these routes; letting the feed claim one would
	// panic at mux registration.
	switch cfg.Feed.Path {
	case "/", "/api/status", "/api/logs", "/api/about":
		return Config{}, fmt.Errorf("feed.path must not be a reserved diagnostics path")
	}
	if cfg.Feed.Interval < 0 {
		return Config{}, fmt.Errorf("feed.interval must be > 0")
	}
	if cfg.Feed.Interval == 0 {
		cfg.Feed.Interval = 250 * time.Millisecond
	}
	if cfg.Feed.WriteTimeout < 0 {
		return Config{}, fmt.Errorf("feed.write_timeout must be > 0")
	}
	if cfg.Feed.WriteTimeout == 0 {
		cfg.Feed.WriteTimeout = 5 * time.Second
	}

	// Simulator defaults (safe even if disabled).
	if cfg.Sim.Name == "" {
		cfg.Sim.Name = "GoSim"
	}
	if strings.ContainsAny(cfg.Sim.Name, ",\r\n") {
		return Config{}, fmt.Errorf("sim.name must not contain commas or line breaks")
	}
	if cfg.Sim.Dest == "" {
		cfg.Sim.Dest = simDestFromListen(cfg.UDP.Listen)
	}
	if cfg.Sim.Interval <= 0 {
		cfg.Sim.Interval = 500 * time.Millisecond
	}
	if cfg.Sim.AltFeet == 0 {
		cfg.Sim.AltFeet = 3000
	}
	if cfg.Sim.GroundKt <= 0 {
		cfg.Sim.GroundKt = 90
	}
	if cfg.Sim.RadiusNm <= 0 {
		cfg.Sim.RadiusNm = 0.5
	}
	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 120 * time.Second
	}

	if cfg.Sim.Enable {
		if cfg.Sim.CenterLatDeg == 0 && cfg.Sim.CenterLonDeg == 0 {
			return Config{}, fmt.Errorf("sim.center_lat_deg and sim.center_lon_deg are required when sim.enable is true")
		}
		if cfg.Sim.CenterLatDeg < -90 || cfg.Sim.CenterLatDeg > 90 {
			return Config{}, fmt.Errorf("sim.center_lat_deg must be within [-90, 90]")
		}
		if cfg.Sim.CenterLonDeg < -180 || cfg.Sim.CenterLonDeg > 180 {
			return Config{}, fmt.Errorf("sim.center_lon_deg must be within [-180, 180]")
		}
	}

	return cfg, nil
}

// decodeStrict rejects fields the schema does not know about; a typo in a
// config file must fail loudly instead of silently falling back to defaults.
func decodeStrict(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var te *yaml.TypeError
	if errors.As(err, &te) {
		msgs := make([]string, 0, len(te.Errors))
		for _, m := range te.Errors {
			if strings.HasPrefix(m, "line ") {
				if i := strings.Index(m, ": "); i != -1 {
					m = m[i+2:]
				}
			}
			msgs = append(msgs, m)
		}
		return fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
	}
	return err
}

// simDestFromListen points the simulator at the bridge's own ingest port on
// loopback.
func simDestFromListen(listen string) string {
	_, port, err := net.SplitHostPort(listen)
	if err != nil || port == "" {
		return "127.0.0.1:49002"
	}
	return net.JoinHostPort("127.0.0.1", port)
}
