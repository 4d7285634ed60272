package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nmeafix/internal/nmea"
	"nmeafix/internal/replay"
)

// Config controls the receiver service.
//
// Device may be empty to auto-detect. All fields are optional.
type Config struct {
	Enable bool

	// Source selects how bytes are ingested: "nmea" (direct serial), "gpsd"
	// (raw NMEA relayed by gpsd) or "replay" (a capture log). Empty means "nmea".
	Source string

	Device   string
	Baud     int
	GPSDAddr string

	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool

	BufferSize int
	MaxQueue   int
	LogRejects bool

	// PPSGPIO is the BCM line carrying the receiver's PPS output; 0 disables.
	PPSGPIO int

	// Record, when set, receives every raw read before it is parsed.
	Record ChunkWriter
}

// ChunkWriter persists raw reads. *replay.Writer implements it.
type ChunkWriter interface {
	WriteChunk(now time.Time, chunk []byte) error
}

type Snapshot struct {
	Enabled bool `json:"enabled"`
	Valid   bool `json:"valid"`

	Source   string `json:"source,omitempty"`
	GPSDAddr string `json:"gpsd_addr,omitempty"`
	Device   string `json:"device,omitempty"`
	Baud     int    `json:"baud,omitempty"`

	LatDeg     float64 `json:"lat_deg"`
	LonDeg     float64 `json:"lon_deg"`
	AltM       float64 `json:"alt_m"`
	SpeedKPH   float64 `json:"speed_kph"`
	TrackDeg   float64 `json:"track_deg"`
	FixMode    int     `json:"fix_mode"`
	Signal     int     `json:"signal"`
	SatsInView int     `json:"sats_in_view"`
	SatsInUse  int     `json:"sats_in_use"`
	HDOP       float64 `json:"hdop"`

	FixUTC        string `json:"fix_utc,omitempty"`
	LastUpdateUTC string `json:"last_update_utc,omitempty"`

	PPSCount   uint64 `json:"pps_count,omitempty"`
	LastPPSUTC string `json:"last_pps_utc,omitempty"`

	Info  nmea.Info  `json:"info"`
	Stats nmea.Stats `json:"stats"`

	LastError string `json:"last_error,omitempty"`
}

// source opens one byte stream. Sources with retry set are reopened with
// backoff after they fail.
type source struct {
	device string
	open   func(ctx context.Context) (io.ReadCloser, error)
	retry  bool
}

type Service struct {
	cfg Config
	src string

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu     sync.Mutex
	closer io.Closer
	pps    io.Closer

	kinds    [5]atomic.Uint64 // indexed like nmea.Kinds
	ppsCount atomic.Uint64
	lastPPS  atomic.Int64
}

func New(cfg Config) *Service {
	s := &Service{cfg: cfg}
	s.src = strings.ToLower(strings.TrimSpace(cfg.Source))
	if s.src == "" {
		s.src = "nmea"
	}
	s.last.Store(Snapshot{
		Enabled:  cfg.Enable,
		Source:   s.src,
		GPSDAddr: strings.TrimSpace(cfg.GPSDAddr),
		Device:   cfg.Device,
		Baud:     cfg.Baud,
		Info:     nmea.NewInfo(),
	})
	return s
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	var src source
	switch s.src {
	case "gpsd":
		src = s.gpsdSource()
	case "replay":
		src = s.replaySource()
	case "nmea":
		var err error
		src, err = s.serialSource()
		if err != nil {
			s.setError(err.Error())
			return err
		}
	default:
		return fmt.Errorf("gps source %q not supported", s.src)
	}
	return s.start(ctx, src)
}

func (s *Service) serialSource() (source, error) {
	device := strings.TrimSpace(s.cfg.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return source{}, fmt.Errorf("gps auto-detect failed: no serial GPS device found")
		}
	}
	baud := s.cfg.Baud
	if baud == 0 {
		baud = 9600
	}
	return source{
		device: device,
		open: func(context.Context) (io.ReadCloser, error) {
			f, err := openSerial(device, baud)
			if err != nil {
				return nil, fmt.Errorf("gps open failed device=%s baud=%d: %w", device, baud, err)
			}
			log.Printf("gps enabled device=%s baud=%d", device, baud)
			return f, nil
		},
	}, nil
}

func (s *Service) replaySource() source {
	path := s.cfg.ReplayPath
	speed := s.cfg.ReplaySpeed
	if speed == 0 {
		speed = 1
	}
	return source{
		device: path,
		open: func(ctx context.Context) (io.ReadCloser, error) {
			recs, err := replay.Open(path)
			if err != nil {
				return nil, fmt.Errorf("gps replay open failed path=%s: %w", path, err)
			}
			log.Printf("gps enabled source=replay path=%s records=%d speed=%g loop=%t", path, len(recs), speed, s.cfg.ReplayLoop)
			return replay.PlayReader(ctx, recs, speed, s.cfg.ReplayLoop, nil), nil
		},
	}
}

// start runs src in the background. Non-retrying sources are opened before
// start returns so open errors reach the caller.
func (s *Service) start(ctx context.Context, src source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)

	var first io.ReadCloser
	if !src.retry {
		rc, err := src.open(childCtx)
		if err != nil {
			cancel()
			s.setErrorLocked(err.Error())
			return err
		}
		first = rc
		s.closer = rc
	}
	s.cancel = cancel

	p, err := nmea.NewParser(s.parserOptions())
	if err != nil {
		cancel()
		s.cancel = nil
		if first != nil {
			_ = first.Close()
		}
		return err
	}

	if s.cfg.PPSGPIO > 0 {
		pps, err := watchPPS(s.cfg.PPSGPIO, s.markPPS)
		if err != nil {
			// PPS is optional; keep going without it.
			s.setErrorLocked(fmt.Sprintf("pps unavailable gpio=%d: %v", s.cfg.PPSGPIO, err))
		} else {
			s.pps = pps
		}
	}

	cur := s.Snapshot()
	cur.Enabled = true
	cur.Device = src.device
	s.last.Store(cur)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer p.Close()
		info := nmea.NewInfo()
		s.runSource(childCtx, src, first, p, &info)
	}()
	return nil
}

func (s *Service) parserOptions() nmea.Options {
	opts := nmea.Options{BufferSize: s.cfg.BufferSize, MaxQueue: s.cfg.MaxQueue}
	if s.cfg.LogRejects {
		opts.Logger = log.Default()
	}
	return opts
}

func (s *Service) runSource(ctx context.Context, src source, rc io.ReadCloser, p *nmea.Parser, info *nmea.Info) {
	backoff := 250 * time.Millisecond
	const maxBackoff = 10 * time.Second

	for {
		if rc == nil {
			var err error
			rc, err = src.open(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.setError(err.Error())
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}
			backoff = 250 * time.Millisecond
			s.mu.Lock()
			s.closer = rc
			s.mu.Unlock()
		}

		err := s.consume(ctx, rc, p, info)
		_ = rc.Close()
		rc = nil
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			s.setError(fmt.Sprintf("gps %s source ended", s.src))
		} else {
			s.setError(fmt.Sprintf("gps read stopped: %v", err))
		}
		if !src.retry {
			return
		}
	}
}

// consume feeds r into p until r fails. Reads are kept well under the parser
// buffer so a partial sentence is never pushed out by the next read.
func (s *Service) consume(ctx context.Context, r io.Reader, p *nmea.Parser, info *nmea.Info) error {
	n := p.BufferSize() / 2
	if n > 512 {
		n = 512
	}
	buf := make([]byte, n)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			s.feed(time.Now().UTC(), p, info, buf[:n])
		}
		if err != nil {
			return err
		}
	}
}

func (s *Service) feed(now time.Time, p *nmea.Parser, info *nmea.Info, chunk []byte) {
	if s.cfg.Record != nil {
		if err := s.cfg.Record.WriteChunk(now, chunk); err != nil {
			s.setError(fmt.Sprintf("gps record failed: %v", err))
		}
	}

	_, err := p.Ingest(chunk)
	for {
		for k := p.DrainOne(info); k != nmea.KindNone; k = p.DrainOne(info) {
			s.countKind(k)
		}
		if !errors.Is(err, nmea.ErrQueueFull) {
			break
		}
		// The queue is empty again; retry what was held back.
		_, err = p.Ingest(nil)
	}
	if err != nil {
		s.setError(err.Error())
	}
	s.publish(now, info, p.Stats())
}

func (s *Service) countKind(k nmea.Kind) {
	for i, kk := range nmea.Kinds {
		if kk == k {
			s.kinds[i].Add(1)
			return
		}
	}
}

// KindCounts returns the number of sentences merged so far, per kind code.
func (s *Service) KindCounts() map[string]uint64 {
	out := make(map[string]uint64, len(nmea.Kinds))
	for i, k := range nmea.Kinds {
		out[k.String()] = s.kinds[i].Load()
	}
	return out
}

func (s *Service) publish(now time.Time, info *nmea.Info, st nmea.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	cur.Info = *info
	cur.Stats = st
	cur.Valid = info.Has(nmea.KindRMC|nmea.KindGGA) && info.Sig != nmea.SigBad && info.Fix >= nmea.Fix2D
	cur.LatDeg, cur.LonDeg = info.Position()
	cur.AltM = info.Elv
	cur.SpeedKPH = info.Speed
	cur.TrackDeg = info.Direction
	cur.FixMode = info.Fix
	cur.Signal = info.Sig
	cur.SatsInView = info.Satinfo.InView
	cur.SatsInUse = info.Satinfo.InUse
	cur.HDOP = info.HDOP
	if t := info.UTC.UTC(); !t.IsZero() && info.Has(nmea.KindRMC) {
		cur.FixUTC = t.Format(time.RFC3339Nano)
	}
	cur.LastUpdateUTC = now.Format(time.RFC3339Nano)
	s.last.Store(cur)
}

func (s *Service) markPPS(at time.Time) {
	s.ppsCount.Add(1)
	s.lastPPS.Store(at.UnixNano())
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	pps := s.pps
	s.cancel = nil
	s.closer = nil
	s.pps = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	if pps != nil {
		_ = pps.Close()
	}
	s.wg.Wait()
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	snap := v.(Snapshot)
	snap.PPSCount = s.ppsCount.Load()
	if ns := s.lastPPS.Load(); ns != 0 {
		snap.LastPPSUTC = time.Unix(0, ns).UTC().Format(time.RFC3339Nano)
	}
	return snap
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked(msg)
}

func (s *Service) setErrorLocked(msg string) {
	v, _ := s.last.Load().(Snapshot)
	v.LastError = msg
	// Transient errors do not flip Valid.
	s.last.Store(v)
}

func autoDetectDevice() string {
	candidates := []string{"/dev/serial0", "/dev/ttyAMA0"}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
