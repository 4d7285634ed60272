package gps

// Fix is the compact position report published by the sinks.
type Fix struct {
	Time      string  `json:"time"`
	Valid     bool    `json:"valid"`
	LatDeg    float64 `json:"lat_deg"`
	LonDeg    float64 `json:"lon_deg"`
	AltM      float64 `json:"alt_m"`
	SpeedKPH  float64 `json:"speed_kph"`
	TrackDeg  float64 `json:"track_deg"`
	Mode      int     `json:"mode"`
	Signal    int     `json:"signal"`
	SatsInUse int     `json:"sats_in_use"`
	HDOP      float64 `json:"hdop"`
}

// Fix returns the report for snap. Time is empty until an RMC has been seen.
func (snap Snapshot) Fix() Fix {
	return Fix{
		Time:      snap.FixUTC,
		Valid:     snap.Valid,
		LatDeg:    snap.LatDeg,
		LonDeg:    snap.LonDeg,
		AltM:      snap.AltM,
		SpeedKPH:  snap.SpeedKPH,
		TrackDeg:  snap.TrackDeg,
		Mode:      snap.FixMode,
		Signal:    snap.Signal,
		SatsInUse: snap.SatsInUse,
		HDOP:      snap.HDOP,
	}
}
