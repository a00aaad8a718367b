package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.UDP.Listen != ":49002" {
		t.Fatalf("udp.listen=%q want %q", cfg.UDP.Listen, ":49002")
	}
	if cfg.UDP.MaxDatagramBytes != 4096 {
		t.Fatalf("udp.max_datagram_bytes=%d want 4096", cfg.UDP.MaxDatagramBytes)
	}
	if cfg.Feed.Listen != "0.0.0.0:2992" {
		t.Fatalf("feed.listen=%q want %q", cfg.Feed.Listen, "0.0.0.0:2992")
	}
	if cfg.Feed.Path != "/api/v1" {
		t.Fatalf("feed.path=%q want %q", cfg.Feed.Path, "/api/v1")
	}
	if cfg.Feed.Interval != 250*time.Millisecond {
		t.Fatalf("feed.interval=%s want 250ms", cfg.Feed.Interval)
	}
	if cfg.Feed.WriteTimeout != 5*time.Second {
		t.Fatalf("feed.write_timeout=%s want 5s", cfg.Feed.WriteTimeout)
	}

	// Simulator defaults should be populated even if sim is absent.
	if cfg.Sim.Name != "GoSim" {
		t.Fatalf("sim.name=%q want %q", cfg.Sim.Name, "GoSim")
	}
	if cfg.Sim.Dest != "127.0.0.1:49002" {
		t.Fatalf("sim.dest=%q want %q", cfg.Sim.Dest, "127.0.0.1:49002")
	}
	if cfg.Sim.Interval != 500*time.Millisecond {
		t.Fatalf("sim.interval=%s want 500ms", cfg.Sim.Interval)
	}
	if cfg.Sim.Period <= 0 || cfg.Sim.RadiusNm <= 0 || cfg.Sim.GroundKt <= 0 || cfg.Sim.AltFeet == 0 {
		t.Fatalf("expected sim defaults applied")
	}
}

func TestLoad_DurationStrings(t *testing.T) {
	path := writeTempConfig(t, "feed:\n  interval: 100ms\n  write_timeout: 2s\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Feed.Interval != 100*time.Millisecond {
		t.Fatalf("interval=%s want 100ms", cfg.Feed.Interval)
	}
	if cfg.Feed.WriteTimeout != 2*time.Second {
		t.Fatalf("write_timeout=%s want 2s", cfg.Feed.WriteTimeout)
	}
}

func TestLoad_SimDestFollowsUDPPort(t *testing.T) {
	path := writeTempConfig(t, "udp:\n  listen: ':5555'\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sim.Dest != "127.0.0.1:5555" {
		t.Fatalf("sim.dest=%q want %q", cfg.Sim.Dest, "127.0.0.1:5555")
	}
}

func TestLoad_UDPListenValidated(t *testing.T) {
	path := writeTempConfig(t, "udp:\n  listen: 'not-an-address'\n")
	_, err := Load(path)
	requireErrEq(t, err, "udp.listen must be host:port or :port")
}

func TestLoad_FeedPathMustStartWithSlash(t *testing.T) {
	path := writeTempConfig(t, "feed:\n  path: api/v1\n")
	_, err := Load(path)
	requireErrEq(t, err, "feed.path must start with '/'")
}

// A feed path that shadows a diagnostics route would panic at mux
// registration, so Load has to catch it first.
func TestLoad_FeedPathReservedRejected(t *testing.T) {
	for _, p := range []string{"/", "/api/status", "/api/logs", "/api/about"} {
		t.Run(p, func(t *testing.T) {
			path := writeTempConfig(t, "feed:\n  path: '"+p+"'\n")
			_, err := Load(path)
			requireErrEq(t, err, "feed.path must not be a reserved diagnostics path")
		})
	}

	path := writeTempConfig(t, "feed:\n  path: /api/feed\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
}

func TestLoad_NegativeIntervalRejected(t *testing.T) {
	path := writeTempConfig(t, "feed:\n  interval: -1s\n")
	_, err := Load(path)
	requireErrEq(t, err, "feed.interval must be > 0")
}

func TestLoad_SimRequiresCenter(t *testing.T) {
	path := writeTempConfig(t, "sim:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "sim.center_lat_deg and sim.center_lon_deg are required when sim.enable is true")
}

func TestLoad_SimCenterRangeChecked(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "LatitudeTooBig",
			body: "sim:\n  enable: true\n  center_lat_deg: 91\n  center_lon_deg: 10\n",
			want: "sim.center_lat_deg must be within [-90, 90]",
		},
		{
			name: "LongitudeTooSmall",
			body: "sim:\n  enable: true\n  center_lat_deg: 47\n  center_lon_deg: -181\n",
			want: "sim.center_lon_deg must be within [-180, 180]",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.body)
			_, err := Load(path)
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_SimCenterNotRequiredWhenDisabled(t *testing.T) {
	path := writeTempConfig(t, "sim:\n  enable: false\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
}

func TestLoad_SimNameRejectsDelimiters(t *testing.T) {
	path := writeTempConfig(t, "sim:\n  name: \"My,Sim\"\n")
	_, err := Load(path)
	requireErrEq(t, err, "sim.name must not contain commas or line breaks")
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "udp:\n  port: 49002\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field port not found in type config.UDPConfig")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
