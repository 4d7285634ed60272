package web

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"nmeafix/internal/gps"
)

// Status aggregates what /api/status reports.
type Status struct {
	startUnixNano int64
	gps           atomic.Value // func() gps.Snapshot
	sinks         atomic.Value // map[string]string
	build         BuildInfo
}

type BuildInfo struct {
	GoVersion  string `json:"go_version"`
	ModulePath string `json:"module_path,omitempty"`
	Version    string `json:"version,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
	BuildTime  string `json:"build_time,omitempty"`
}

func NewStatus() *Status {
	s := &Status{build: readBuildInfo()}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.gps.Store(func() gps.Snapshot { return gps.Snapshot{} })
	s.sinks.Store(map[string]string{})
	return s
}

// SetGPS sets the snapshot source reported under "gps".
func (s *Status) SetGPS(snapshot func() gps.Snapshot) {
	if snapshot != nil {
		s.gps.Store(snapshot)
	}
}

// SetSinks records the enabled outputs and their destinations.
func (s *Status) SetSinks(sinks map[string]string) {
	cp := make(map[string]string, len(sinks))
	for k, v := range sinks {
		cp[k] = v
	}
	s.sinks.Store(cp)
}

type StatusSnapshot struct {
	Service   string            `json:"service"`
	NowUTC    string            `json:"now_utc"`
	UptimeSec int64             `json:"uptime_sec"`
	Build     BuildInfo         `json:"build"`
	Sinks     map[string]string `json:"sinks"`
	GPS       gps.Snapshot      `json:"gps"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	return StatusSnapshot{
		Service:   "nmeafix",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Build:     s.build,
		Sinks:     s.sinks.Load().(map[string]string),
		GPS:       s.gps.Load().(func() gps.Snapshot)(),
	}
}

func readBuildInfo() BuildInfo {
	out := BuildInfo{GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return out
	}
	out.ModulePath = bi.Main.Path
	out.Version = bi.Main.Version
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.modified":
			out.Dirty = s.Value == "true"
		case "vcs.time":
			out.BuildTime = s.Value
		}
	}
	return out
}
