package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"nmeafix/internal/config"
	"nmeafix/internal/fixcache"
	"nmeafix/internal/fixstore"
	"nmeafix/internal/gps"
	"nmeafix/internal/mqttpub"
	"nmeafix/internal/replay"
	"nmeafix/internal/udp"
	"nmeafix/internal/web"
)

// liveRuntime owns the receiver service and every enabled output.
type liveRuntime struct {
	cfg      config.Config
	status   *web.Status
	fixes    *web.FixBroadcaster
	registry *prometheus.Registry

	gpsSvc   *gps.Service
	recorder *replay.Writer
	udp      *udp.Broadcaster
	mqtt     *mqttpub.Publisher
	store    *fixstore.Store
	cache    *fixcache.Cache

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newLiveRuntime(ctx context.Context, cfg config.Config) (*liveRuntime, error) {
	c := cfg
	if err := config.DefaultAndValidate(&c); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &liveRuntime{
		cfg:      c,
		status:   web.NewStatus(),
		fixes:    web.NewFixBroadcaster(),
		registry: prometheus.NewRegistry(),
		cancel:   cancel,
	}

	gcfg := gps.Config{
		Enable:      c.GPS.Enable,
		Source:      c.GPS.Source,
		Device:      c.GPS.Device,
		Baud:        c.GPS.Baud,
		GPSDAddr:    c.GPS.GPSDAddr,
		ReplayPath:  c.Replay.Path,
		ReplaySpeed: c.Replay.Speed,
		ReplayLoop:  c.Replay.Loop,
		BufferSize:  c.GPS.BufferSize,
		MaxQueue:    c.GPS.MaxQueue,
		LogRejects:  c.GPS.LogRejects,
		PPSGPIO:     c.GPS.PPSGPIO,
	}
	if c.Record.Enable {
		w, err := replay.CreateWriter(c.Record.Path)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("record open failed path=%s: %w", c.Record.Path, err)
		}
		log.Printf("recording raw input path=%s", c.Record.Path)
		r.recorder = w
		gcfg.Record = w
	}

	r.gpsSvc = gps.New(gcfg)
	for _, col := range r.gpsSvc.Collectors() {
		if err := r.registry.Register(col); err != nil {
			r.Close()
			return nil, err
		}
	}
	r.status.SetGPS(r.gpsSvc.Snapshot)
	if err := r.gpsSvc.Start(ctx); err != nil {
		// Keep running so status can report the error.
		log.Printf("gps init failed: %v", err)
	}

	current := func() gps.Fix { return r.gpsSvc.Snapshot().Fix() }
	sinks := map[string]string{}

	// The WebSocket stream and the cache follow the UDP cadence.
	r.goRun(func() { r.fixes.Run(ctx, c.UDP.Interval, current) })

	if c.UDP.Enable {
		b, err := udp.NewBroadcaster(c.UDP.Dest)
		if err != nil {
			log.Printf("udp init failed dest=%s: %v", c.UDP.Dest, err)
		} else {
			r.udp = b
			sinks["udp"] = c.UDP.Dest
			r.goRun(func() { b.Run(ctx, c.UDP.Interval, current) })
		}
	}

	if c.MQTT.Enable {
		p, err := mqttpub.Connect(mqttpub.Config{
			Broker:   c.MQTT.Broker,
			ClientID: c.MQTT.ClientID,
			Topic:    c.MQTT.Topic,
			Interval: c.MQTT.Interval,
		})
		if err != nil {
			log.Printf("mqtt init failed: %v", err)
		} else {
			r.mqtt = p
			sinks["mqtt"] = c.MQTT.Broker + " " + c.MQTT.Topic
			r.goRun(func() { p.Run(ctx, current) })
		}
	}

	if c.Store.Enable {
		s, err := fixstore.Open(c.Store.Path)
		if err != nil {
			log.Printf("fixstore init failed path=%s: %v", c.Store.Path, err)
		} else {
			r.store = s
			sinks["store"] = c.Store.Path
			r.goRun(func() { s.Run(ctx, c.Store.Interval, current) })
		}
	}

	if c.Cache.Enable {
		cc, err := fixcache.Open(ctx, c.Cache.URL, c.Cache.Key, c.Cache.TTL)
		if err != nil {
			log.Printf("fixcache init failed: %v", err)
		} else {
			r.cache = cc
			sinks["cache"] = c.Cache.Key
			r.goRun(func() { cc.Run(ctx, c.UDP.Interval, current) })
		}
	}

	r.status.SetSinks(sinks)
	return r, nil
}

func (r *liveRuntime) goRun(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *liveRuntime) GPSSnapshot() gps.Snapshot {
	if r == nil || r.gpsSvc == nil {
		return gps.Snapshot{}
	}
	return r.gpsSvc.Snapshot()
}

// Close stops the sinks, then the receiver, then releases their resources.
func (r *liveRuntime) Close() {
	if r == nil {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	if r.gpsSvc != nil {
		r.gpsSvc.Close()
		r.gpsSvc = nil
	}
	if r.recorder != nil {
		if err := r.recorder.Close(); err != nil {
			log.Printf("record close failed: %v", err)
		}
		r.recorder = nil
	}
	if r.udp != nil {
		_ = r.udp.Close()
		r.udp = nil
	}
	if r.store != nil {
		_ = r.store.Close()
		r.store = nil
	}
	if r.cache != nil {
		_ = r.cache.Close()
		r.cache = nil
	}
	r.mqtt = nil
}
