package nmea

const (
	SigBad  = 0
	SigLow  = 1
	SigMid  = 2
	SigHigh = 3

	FixBad = 1
	Fix2D  = 2
	Fix3D  = 3

	// MaxSat is the capacity of the satellite table in Info.
	MaxSat = 12
	// SatInPack is the number of satellites carried by one GSV page.
	SatInPack = 4

	// KnotsToKPH converts knots to kilometers per hour.
	KnotsToKPH = 1.852
)

// Sentence is one decoded NMEA record.
type Sentence interface {
	Kind() Kind
}

// Satellite describes one satellite in view.
type Satellite struct {
	ID      int  `json:"id"`
	InUse   bool `json:"in_use"`
	Elv     int  `json:"elv"`
	Azimuth int  `json:"azimuth"`
	Sig     int  `json:"sig"`
}

// GGA is the Global Positioning System Fix Data sentence.
//
// Lat and Lon are NDEG (ddmm.mmmm) without the hemisphere applied.
type GGA struct {
	UTC       Time
	Lat       float64
	NS        byte
	Lon       float64
	EW        byte
	Sig       int
	SatInUse  int
	HDOP      float64
	Elv       float64
	ElvUnits  byte
	Diff      float64
	DiffUnits byte
	DGPSAge   float64
	DGPSSid   int
}

// GSA is the DOP and active satellites sentence.
type GSA struct {
	FixMode byte
	FixType int
	SatPRN  [MaxSat]int
	PDOP    float64
	HDOP    float64
	VDOP    float64
}

// GSV is one page of the satellites in view listing.
type GSV struct {
	PackCount int
	PackIndex int
	SatCount  int
	Sats      [SatInPack]Satellite
}

// RMC is the Recommended Minimum sentence C. Speed is in knots.
type RMC struct {
	UTC         Time
	Status      byte
	Lat         float64
	NS          byte
	Lon         float64
	EW          byte
	Speed       float64
	Direction   float64
	Declination float64
	DeclinEW    byte
	Mode        byte
}

// VTG is the track made good and ground speed sentence.
type VTG struct {
	Dir  float64
	DirT byte
	Dec  float64
	DecM byte
	Spn  float64
	SpnN byte
	Spk  float64
	SpkK byte
}

func (*GGA) Kind() Kind { return KindGGA }
func (*GSA) Kind() Kind { return KindGSA }
func (*GSV) Kind() Kind { return KindGSV }
func (*RMC) Kind() Kind { return KindRMC }
func (*VTG) Kind() Kind { return KindVTG }
