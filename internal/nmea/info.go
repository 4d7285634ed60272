package nmea

// SatInfo is the satellite table accumulated from GSV and GSA sentences.
type SatInfo struct {
	InUse  int               `json:"inuse"`
	InView int               `json:"inview"`
	Sat    [MaxSat]Satellite `json:"sat"`
}

// Info is the running fix summary. Lat and Lon are signed NDEG values.
type Info struct {
	Smask Kind `json:"smask"`

	UTC Time `json:"utc"`

	Sig int `json:"sig"`
	Fix int `json:"fix"`

	PDOP float64 `json:"pdop"`
	HDOP float64 `json:"hdop"`
	VDOP float64 `json:"vdop"`

	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Elv         float64 `json:"elv"`
	Speed       float64 `json:"speed"` // km/h
	Direction   float64 `json:"direction"`
	Declination float64 `json:"declination"`

	Satinfo SatInfo `json:"satinfo"`
}

// NewInfo returns an empty summary with no signal and no fix.
func NewInfo() Info {
	return Info{Sig: SigBad, Fix: FixBad}
}

// Position returns the summary position in decimal degrees.
func (info *Info) Position() (latDeg, lonDeg float64) {
	return NDEGToDegree(info.Lat), NDEGToDegree(info.Lon)
}

// Has reports whether a sentence of kind k has contributed to the summary.
func (info *Info) Has(k Kind) bool {
	return info.Smask&k != 0
}

// Apply merges one decoded sentence into the summary.
func (info *Info) Apply(s Sentence) {
	switch p := s.(type) {
	case *GGA:
		info.applyGGA(p)
	case *GSA:
		info.applyGSA(p)
	case *GSV:
		info.applyGSV(p)
	case *RMC:
		info.applyRMC(p)
	case *VTG:
		info.applyVTG(p)
	}
}

func signed(v float64, hemi byte, positive byte) float64 {
	if hemi == positive {
		return v
	}
	return -v
}

func (info *Info) applyGGA(p *GGA) {
	info.UTC.Hour = p.UTC.Hour
	info.UTC.Min = p.UTC.Min
	info.UTC.Sec = p.UTC.Sec
	info.UTC.Hsec = p.UTC.Hsec
	info.UTC.HsecDigits = p.UTC.HsecDigits
	info.Sig = p.Sig
	info.HDOP = p.HDOP
	info.Elv = p.Elv
	info.Lat = signed(p.Lat, p.NS, 'N')
	info.Lon = signed(p.Lon, p.EW, 'E')
	info.Smask |= KindGGA
}

func (info *Info) applyGSA(p *GSA) {
	info.Fix = p.FixType
	info.PDOP = p.PDOP
	info.HDOP = p.HDOP
	info.VDOP = p.VDOP

	inview := info.Satinfo.InView
	if inview > MaxSat {
		inview = MaxSat
	}
	nuse := 0
	for _, prn := range p.SatPRN {
		if prn == 0 {
			continue
		}
		for j := 0; j < inview; j++ {
			if info.Satinfo.Sat[j].ID == prn {
				info.Satinfo.Sat[j].InUse = true
				nuse++
			}
		}
	}
	info.Satinfo.InUse = nuse
	info.Smask |= KindGSA
}

func (info *Info) applyGSV(p *GSV) {
	if p.PackIndex > p.PackCount || p.PackIndex > MaxSat/SatInPack {
		return
	}
	index := p.PackIndex
	if index < 1 {
		index = 1
	}

	info.Satinfo.InView = p.SatCount

	first := (index - 1) * SatInPack
	nsat := gsvPageSats(index, p.SatCount)
	for i := 0; i < nsat; i++ {
		sat := &info.Satinfo.Sat[first+i]
		sat.ID = p.Sats[i].ID
		sat.Elv = p.Sats[i].Elv
		sat.Azimuth = p.Sats[i].Azimuth
		sat.Sig = p.Sats[i].Sig
	}
	info.Smask |= KindGSV
}

func (info *Info) applyRMC(p *RMC) {
	switch p.Status {
	case 'A':
		if info.Sig == SigBad {
			info.Sig = SigMid
		}
		if info.Fix == FixBad {
			info.Fix = Fix2D
		}
	case 'V':
		info.Sig = SigBad
		info.Fix = FixBad
	}

	info.UTC = p.UTC
	info.Lat = signed(p.Lat, p.NS, 'N')
	info.Lon = signed(p.Lon, p.EW, 'E')
	info.Speed = p.Speed * KnotsToKPH
	info.Direction = p.Direction
	info.Smask |= KindRMC
}

func (info *Info) applyVTG(p *VTG) {
	info.Direction = p.Dir
	info.Declination = p.Dec
	info.Speed = p.Spk
	info.Smask |= KindVTG
}
