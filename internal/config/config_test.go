package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	return writeTempFile(t, "cfg.yaml", contents)
}

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, name)
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

func TestLoad_EmptyFileGetsDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GPS.Source != "nmea" {
		t.Fatalf("source=%q want nmea", cfg.GPS.Source)
	}
	if cfg.GPS.Baud != 9600 {
		t.Fatalf("baud=%d want 9600", cfg.GPS.Baud)
	}
	if cfg.GPS.BufferSize != 1024 {
		t.Fatalf("buffer_size=%d want 1024", cfg.GPS.BufferSize)
	}
	if cfg.GPS.GPSDAddr != "127.0.0.1:2947" {
		t.Fatalf("gpsd_addr=%q", cfg.GPS.GPSDAddr)
	}
	if cfg.UDP.Interval != 1*time.Second || cfg.MQTT.Interval != 1*time.Second {
		t.Fatalf("expected 1s sink intervals, got udp=%s mqtt=%s", cfg.UDP.Interval, cfg.MQTT.Interval)
	}
	if cfg.Cache.TTL != 30*time.Second || cfg.Cache.Key != "nmeafix:fix" {
		t.Fatalf("cache defaults not applied: %+v", cfg.Cache)
	}
	if cfg.Web.Listen != ":8080" {
		t.Fatalf("web.listen=%q", cfg.Web.Listen)
	}
	if cfg.Replay.Speed != 1 {
		t.Fatalf("replay.speed=%v want 1", cfg.Replay.Speed)
	}
}

func TestLoad_FullYAML(t *testing.T) {
	path := writeTempConfig(t, `
gps:
  enable: true
  source: GPSD
  gpsd_addr: 10.0.0.2:2947
  buffer_size: 2048
  max_queue: 64
  log_rejects: true
udp:
  enable: true
  dest: 192.168.10.255:4000
  interval: 500ms
mqtt:
  enable: true
  broker: tcp://localhost:1883
  topic: boat/gps
store:
  enable: true
  path: /var/lib/nmeafix/fix.db
  interval: 1m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GPS.Source != "gpsd" {
		t.Fatalf("source=%q want gpsd", cfg.GPS.Source)
	}
	if cfg.GPS.BufferSize != 2048 || cfg.GPS.MaxQueue != 64 || !cfg.GPS.LogRejects {
		t.Fatalf("gps=%+v", cfg.GPS)
	}
	if cfg.UDP.Interval != 500*time.Millisecond {
		t.Fatalf("udp.interval=%s", cfg.UDP.Interval)
	}
	if cfg.MQTT.Topic != "boat/gps" || cfg.MQTT.ClientID != "nmeafix" {
		t.Fatalf("mqtt=%+v", cfg.MQTT)
	}
	if cfg.Store.Interval != time.Minute {
		t.Fatalf("store.interval=%s", cfg.Store.Interval)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeTempFile(t, "cfg.toml", `
[gps]
enable = true
device = "/dev/ttyUSB0"
baud = 38400

[cache]
enable = true
url = "redis://localhost:6379/0"
ttl = "10s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GPS.Device != "/dev/ttyUSB0" || cfg.GPS.Baud != 38400 {
		t.Fatalf("gps=%+v", cfg.GPS)
	}
	if cfg.Cache.TTL != 10*time.Second {
		t.Fatalf("cache.ttl=%s", cfg.Cache.TTL)
	}
}

func TestLoad_TOMLRejectsUnknownField(t *testing.T) {
	path := writeTempFile(t, "cfg.toml", "[gps]\nspeed = 3\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: gps.speed")
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "gps:\n  enable: true\n  mode: fast\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field mode not found in type config.GPSConfig")
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "UnknownSource",
			body: "gps:\n  source: usb\n",
			want: "gps.source must be one of nmea, gpsd, replay",
		},
		{
			name: "NegativeBaud",
			body: "gps:\n  baud: -1\n",
			want: "gps.baud must be > 0",
		},
		{
			name: "NegativeBuffer",
			body: "gps:\n  buffer_size: -5\n",
			want: "gps.buffer_size must be >= 0",
		},
		{
			name: "NegativeQueue",
			body: "gps:\n  max_queue: -1\n",
			want: "gps.max_queue must be >= 0",
		},
		{
			name: "ReplayRequiresPath",
			body: "gps:\n  source: replay\n",
			want: "replay.path is required when gps.source is 'replay'",
		},
		{
			name: "ReplayNegativeSpeed",
			body: "replay:\n  speed: -1\n",
			want: "replay.speed must be > 0",
		},
		{
			name: "RecordRequiresPath",
			body: "record:\n  enable: true\n",
			want: "record.path is required when record.enable is true",
		},
		{
			name: "RecordAndReplayExclusive",
			body: "gps:\n  source: replay\nreplay:\n  path: ./a.log\nrecord:\n  enable: true\n  path: ./b.log\n",
			want: "record cannot be used with gps.source=replay",
		},
		{
			name: "UDPRequiresDest",
			body: "udp:\n  enable: true\n",
			want: "udp.dest is required when udp.enable is true",
		},
		{
			name: "MQTTRequiresBroker",
			body: "mqtt:\n  enable: true\n",
			want: "mqtt.broker is required when mqtt.enable is true",
		},
		{
			name: "CacheRequiresURL",
			body: "cache:\n  enable: true\n",
			want: "cache.url is required when cache.enable is true",
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

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "nope.yaml") {
		t.Fatalf("err=%v", err)
	}
}

func TestDefaultAndValidate_Nil(t *testing.T) {
	requireErrEq(t, DefaultAndValidate(nil), "config is nil")
}
