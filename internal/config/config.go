package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	GPS    GPSConfig    `yaml:"gps" toml:"gps"`
	Record RecordConfig `yaml:"record" toml:"record"`
	Replay ReplayConfig `yaml:"replay" toml:"replay"`
	UDP    UDPConfig    `yaml:"udp" toml:"udp"`
	MQTT   MQTTConfig   `yaml:"mqtt" toml:"mqtt"`
	Store  StoreConfig  `yaml:"store" toml:"store"`
	Cache  CacheConfig  `yaml:"cache" toml:"cache"`
	Web    WebConfig    `yaml:"web" toml:"web"`
}

type GPSConfig struct {
	Enable bool `yaml:"enable" toml:"enable"`

	// Source is "nmea" (serial), "gpsd" (raw NMEA relayed by gpsd) or
	// "replay" (a capture log, see Replay).
	Source   string `yaml:"source" toml:"source"`
	Device   string `yaml:"device" toml:"device"`
	Baud     int    `yaml:"baud" toml:"baud"`
	GPSDAddr string `yaml:"gpsd_addr" toml:"gpsd_addr"`

	BufferSize int  `yaml:"buffer_size" toml:"buffer_size"`
	MaxQueue   int  `yaml:"max_queue" toml:"max_queue"`
	LogRejects bool `yaml:"log_rejects" toml:"log_rejects"`

	// PPSGPIO is the BCM line number wired to the receiver's PPS output.
	// Zero disables the watcher.
	PPSGPIO int `yaml:"pps_gpio" toml:"pps_gpio"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable" toml:"enable"`
	Path   string `yaml:"path" toml:"path"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path" toml:"path"`
	Speed float64 `yaml:"speed" toml:"speed"`
	Loop  bool    `yaml:"loop" toml:"loop"`
}

type UDPConfig struct {
	Enable   bool          `yaml:"enable" toml:"enable"`
	Dest     string        `yaml:"dest" toml:"dest"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

type MQTTConfig struct {
	Enable   bool          `yaml:"enable" toml:"enable"`
	Broker   string        `yaml:"broker" toml:"broker"`
	ClientID string        `yaml:"client_id" toml:"client_id"`
	Topic    string        `yaml:"topic" toml:"topic"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

type StoreConfig struct {
	Enable   bool          `yaml:"enable" toml:"enable"`
	Path     string        `yaml:"path" toml:"path"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

type CacheConfig struct {
	Enable bool          `yaml:"enable" toml:"enable"`
	URL    string        `yaml:"url" toml:"url"`
	Key    string        `yaml:"key" toml:"key"`
	TTL    time.Duration `yaml:"ttl" toml:"ttl"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable" toml:"enable"`
	Listen string `yaml:"listen" toml:"listen"`
}

// Load reads a YAML config, or TOML when the file name ends in .toml, then
// applies defaults and validates it.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(b, &cfg)
	} else {
		err = decodeYAML(b, &cfg)
	}
	if err != nil {
		return Config{}, err
	}

	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var yamlLinePrefix = regexp.MustCompile(`^line \d+: `)

func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var te *yaml.TypeError
	if errors.As(err, &te) {
		fields := make([]string, 0, len(te.Errors))
		for _, e := range te.Errors {
			fields = append(fields, yamlLinePrefix.ReplaceAllString(e, ""))
		}
		return fmt.Errorf("config contains unknown fields: %s", strings.Join(fields, "; "))
	}
	return err
}

func decodeTOML(b []byte, cfg *Config) error {
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config contains unknown fields: %s", strings.Join(keys, ", "))
	}
	return nil
}

// DefaultAndValidate fills unset values and rejects inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	gps := &cfg.GPS
	gps.Source = strings.ToLower(strings.TrimSpace(gps.Source))
	if gps.Source == "" {
		gps.Source = "nmea"
	}
	switch gps.Source {
	case "nmea", "gpsd", "replay":
	default:
		return fmt.Errorf("gps.source must be one of nmea, gpsd, replay")
	}
	if gps.Baud < 0 {
		return fmt.Errorf("gps.baud must be > 0")
	}
	if gps.Baud == 0 {
		gps.Baud = 9600
	}
	if strings.TrimSpace(gps.GPSDAddr) == "" {
		gps.GPSDAddr = "127.0.0.1:2947"
	}
	if gps.BufferSize < 0 {
		return fmt.Errorf("gps.buffer_size must be >= 0")
	}
	if gps.BufferSize == 0 {
		gps.BufferSize = 1024
	}
	if gps.MaxQueue < 0 {
		return fmt.Errorf("gps.max_queue must be >= 0")
	}
	if gps.PPSGPIO < 0 {
		return fmt.Errorf("gps.pps_gpio must be >= 0")
	}

	if gps.Source == "replay" {
		if strings.TrimSpace(cfg.Replay.Path) == "" {
			return fmt.Errorf("replay.path is required when gps.source is 'replay'")
		}
		if cfg.Record.Enable {
			return fmt.Errorf("record cannot be used with gps.source=replay")
		}
	}
	if cfg.Replay.Speed == 0 {
		cfg.Replay.Speed = 1
	}
	if cfg.Replay.Speed < 0 {
		return fmt.Errorf("replay.speed must be > 0")
	}

	if cfg.Record.Enable && strings.TrimSpace(cfg.Record.Path) == "" {
		return fmt.Errorf("record.path is required when record.enable is true")
	}

	if cfg.UDP.Enable && strings.TrimSpace(cfg.UDP.Dest) == "" {
		return fmt.Errorf("udp.dest is required when udp.enable is true")
	}
	if cfg.UDP.Interval <= 0 {
		cfg.UDP.Interval = 1 * time.Second
	}

	if cfg.MQTT.Enable && strings.TrimSpace(cfg.MQTT.Broker) == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "nmeafix"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "nmeafix/fix"
	}
	if cfg.MQTT.Interval <= 0 {
		cfg.MQTT.Interval = 1 * time.Second
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "./nmeafix.db"
	}
	if cfg.Store.Interval <= 0 {
		cfg.Store.Interval = 10 * time.Second
	}

	if cfg.Cache.Enable && strings.TrimSpace(cfg.Cache.URL) == "" {
		return fmt.Errorf("cache.url is required when cache.enable is true")
	}
	if cfg.Cache.Key == "" {
		cfg.Cache.Key = "nmeafix:fix"
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 30 * time.Second
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	return nil
}
