package gps

import (
	"github.com/prometheus/client_golang/prometheus"

	"nmeafix/internal/nmea"
)

// Collectors exposes parser statistics and the current fix as Prometheus
// metrics. Values are read from the latest snapshot at scrape time.
func (s *Service) Collectors() []prometheus.Collector {
	stat := func(name, help string, get func(nmea.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "nmeafix",
			Subsystem: "parser",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(get(s.Snapshot().Stats)) })
	}
	gauge := func(name, help string, get func(Snapshot) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "nmeafix",
			Subsystem: "fix",
			Name:      name,
			Help:      help,
		}, func() float64 { return get(s.Snapshot()) })
	}

	ret := []prometheus.Collector{
		stat("bytes_total", "Bytes ingested.", func(st nmea.Stats) uint64 { return st.Bytes }),
		stat("sentences_total", "Sentences decoded and queued.", func(st nmea.Stats) uint64 { return st.Sentences }),
		stat("discarded_total", "Sentences dropped for a bad checksum or tail.", func(st nmea.Stats) uint64 { return st.Discarded }),
		stat("decode_errors_total", "Recognized sentences that failed to decode.", func(st nmea.Stats) uint64 { return st.DecodeErrors }),
		stat("unknown_total", "Valid sentences of an unsupported type.", func(st nmea.Stats) uint64 { return st.Unknown }),
		stat("overflows_total", "Buffer overflow resets.", func(st nmea.Stats) uint64 { return st.Overflows }),

		gauge("valid", "1 when the receiver reports a usable fix.", func(sn Snapshot) float64 {
			if sn.Valid {
				return 1
			}
			return 0
		}),
		gauge("mode", "Fix mode: 1 none, 2 2D, 3 3D.", func(sn Snapshot) float64 { return float64(sn.FixMode) }),
		gauge("sats_in_view", "Satellites in view.", func(sn Snapshot) float64 { return float64(sn.SatsInView) }),
		gauge("sats_in_use", "Satellites used for the fix.", func(sn Snapshot) float64 { return float64(sn.SatsInUse) }),
		gauge("hdop", "Horizontal dilution of precision.", func(sn Snapshot) float64 { return sn.HDOP }),
		gauge("pps_pulses", "PPS pulses seen.", func(sn Snapshot) float64 { return float64(sn.PPSCount) }),
	}

	for i, k := range nmea.Kinds {
		i := i
		ret = append(ret, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "nmeafix",
			Subsystem:   "parser",
			Name:        "merged_total",
			Help:        "Sentences merged into the fix summary, by type.",
			ConstLabels: prometheus.Labels{"type": k.String()},
		}, func() float64 { return float64(s.kinds[i].Load()) }))
	}
	return ret
}
