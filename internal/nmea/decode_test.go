package nmea

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rmcSample = "$GPRMC,031024.000,A,3115.6422,N,12127.5490,E,0.58,98.86,180918,,,A*5A\r\n"
	ggaSample = "$GPGGA,082006.000,3852.9276,N,11527.4283,E,1,08,1.0,20.6,M,,,,0000*35\r\n"
	vtgSample = "$GPVTG,0.0,T,,M,0.00,N,0.00,K,N*50\r\n"
	gsaSample = "$GPGSA,A,3,01,20,19,13,,,,,,,,,40.4,24.4,32.2*0A\r\n"
	gsvSample = "$GPGSV,4,1,13,28,86,324,,03,46,082,22,17,46,326,19,06,31,244,37*7D\r\n"
)

func TestDecodeRMC_Sample(t *testing.T) {
	p, err := DecodeRMC([]byte(rmcSample))
	require.NoError(t, err)
	assert.Equal(t, 3115.6422, p.Lat)
	assert.Equal(t, byte('N'), p.NS)
	assert.Equal(t, 12127.5490, p.Lon)
	assert.Equal(t, byte('E'), p.EW)
	assert.Equal(t, byte('A'), p.Status)
	assert.Equal(t, 0.58, p.Speed)
	assert.Equal(t, 98.86, p.Direction)
	assert.Equal(t, byte('A'), p.Mode)
	assert.Equal(t, Time{Year: 118, Mon: 8, Day: 18, Hour: 3, Min: 10, Sec: 24}, p.UTC)
}

func TestDecodeRMC_WithoutModeIndicator(t *testing.T) {
	p, err := DecodeRMC([]byte("$GPRMC,173843,A,3349.896,N,11808.521,W,000.0,360.0,230108,013.4,E*69\r\n"))
	require.NoError(t, err)
	assert.Equal(t, byte('W'), p.EW)
	assert.Equal(t, 13.4, p.Declination)
	assert.Equal(t, byte('E'), p.DeclinEW)
	assert.Equal(t, byte(0), p.Mode)
	assert.Equal(t, Time{Year: 108, Mon: 0, Day: 23, Hour: 17, Min: 38, Sec: 43}, p.UTC)
}

func TestDecodeRMC_YearPivot(t *testing.T) {
	p, err := DecodeRMC([]byte("$GPRMC,120000,V,0000.000,N,00000.000,E,0.0,0.0,311299,,,N*00\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 99, p.UTC.Year)
	assert.Equal(t, 11, p.UTC.Mon)

	p, err = DecodeRMC([]byte("$GPRMC,120000,V,0000.000,N,00000.000,E,0.0,0.0,010189,,,N*00\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 189, p.UTC.Year)
	assert.Equal(t, 0, p.UTC.Mon)
}

func TestDecodeRMC_BadTime(t *testing.T) {
	_, err := DecodeRMC([]byte("$GPRMC,1200,A,3115.6422,N,12127.5490,E,0.58,98.86,180918,,,A*00\r\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTime))
}

func TestDecodeGGA_Sample(t *testing.T) {
	p, err := DecodeGGA([]byte(ggaSample))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Sig)
	assert.Equal(t, 8, p.SatInUse)
	assert.Equal(t, 1.0, p.HDOP)
	assert.Equal(t, 20.6, p.Elv)
	assert.Equal(t, byte('M'), p.ElvUnits)
	assert.Equal(t, 3852.9276, p.Lat)
	assert.Equal(t, byte('N'), p.NS)
	assert.Equal(t, 11527.4283, p.Lon)
	assert.Equal(t, byte('E'), p.EW)
	assert.Equal(t, byte(0), p.DiffUnits)
	assert.Equal(t, 0, p.DGPSSid)
	assert.Equal(t, Time{Hour: 8, Min: 20, Sec: 6}, p.UTC)
}

func TestDecodeGGA_FractionalSeconds(t *testing.T) {
	p, err := DecodeGGA([]byte("$GPGGA,111609.14,5001.27,N,3613.06,E,3,08,0.0,10.2,M,0.0,M,0.0,0000*70\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Time{Hour: 11, Min: 16, Sec: 9, Hsec: 14, HsecDigits: 2}, p.UTC)
	assert.Equal(t, 3, p.Sig)
	assert.Equal(t, byte('M'), p.DiffUnits)
}

func TestDecodeGGA_ShortSentence(t *testing.T) {
	_, err := DecodeGGA([]byte("$GPGGA,082006.000,3852.9276,N*00\r\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFieldCount))
}

func TestDecodeVTG_Sample(t *testing.T) {
	p, err := DecodeVTG([]byte(vtgSample))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Dir)
	assert.Equal(t, byte('T'), p.DirT)
	assert.Equal(t, byte('M'), p.DecM)
	assert.Equal(t, 0.0, p.Spn)
	assert.Equal(t, byte('N'), p.SpnN)
	assert.Equal(t, byte('K'), p.SpkK)
}

func TestDecodeVTG_BadUnitLetter(t *testing.T) {
	_, err := DecodeVTG([]byte("$GPVTG,217.5,T,208.8,M,000.00,N,000.01,X*00\r\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnits))

	// A missing unit letter tokenizes but leaves the field zero.
	_, err = DecodeVTG([]byte("$GPVTG,217.5,,208.8,M,000.00,N,000.01,K*00\r\n"))
	assert.True(t, errors.Is(err, ErrUnits))
}

func TestDecodeGSA_Sample(t *testing.T) {
	p, err := DecodeGSA([]byte(gsaSample))
	require.NoError(t, err)
	assert.Equal(t, byte('A'), p.FixMode)
	assert.Equal(t, 3, p.FixType)
	assert.Equal(t, 40.4, p.PDOP)
	assert.Equal(t, 24.4, p.HDOP)
	assert.Equal(t, 32.2, p.VDOP)
	assert.Equal(t, [MaxSat]int{1, 20, 19, 13}, p.SatPRN)
}

func TestDecodeGSV_Sample(t *testing.T) {
	p, err := DecodeGSV([]byte(gsvSample))
	require.NoError(t, err)
	assert.Equal(t, 4, p.PackCount)
	assert.Equal(t, 1, p.PackIndex)
	assert.Equal(t, 13, p.SatCount)
	assert.Equal(t, Satellite{ID: 28, Elv: 86, Azimuth: 324}, p.Sats[0])
	assert.Equal(t, Satellite{ID: 3, Elv: 46, Azimuth: 82, Sig: 22}, p.Sats[1])
	assert.Equal(t, Satellite{ID: 17, Elv: 46, Azimuth: 326, Sig: 19}, p.Sats[2])
	assert.Equal(t, Satellite{ID: 6, Elv: 31, Azimuth: 244, Sig: 37}, p.Sats[3])
}

func TestDecodeGSV_PartialLastPage(t *testing.T) {
	p, err := DecodeGSV([]byte("$GPGSV,4,4,13,10,05,100,30*00\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, p.PackIndex)
	assert.Equal(t, Satellite{ID: 10, Elv: 5, Azimuth: 100, Sig: 30}, p.Sats[0])
}

func TestDecodeGSV_TooFewSatellitesForPage(t *testing.T) {
	// Page 1 of 13 satellites must carry four satellites.
	_, err := DecodeGSV([]byte("$GPGSV,4,1,13,28,86,324,,03,46,082,22*00\r\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFieldCount))
}

func TestGSVPageSats(t *testing.T) {
	assert.Equal(t, 4, gsvPageSats(1, 13))
	assert.Equal(t, 1, gsvPageSats(4, 13))
	assert.Equal(t, 0, gsvPageSats(5, 13))
	assert.Equal(t, 4, gsvPageSats(0, 13))
	assert.Equal(t, 0, gsvPageSats(1, -3))
	assert.Equal(t, 0, gsvPageSats(math.MaxInt, 13))
	assert.Equal(t, 0, gsvPageSats(1<<62, 1<<62))
	assert.Equal(t, 4, gsvPageSats(math.MinInt, math.MaxInt))
}

func TestDecode_DispatchesByKind(t *testing.T) {
	s, err := Decode(KindGSA, []byte(gsaSample))
	require.NoError(t, err)
	assert.Equal(t, KindGSA, s.Kind())

	_, err = Decode(KindNone, []byte(gsaSample))
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestParseTime_Lengths(t *testing.T) {
	var tm Time
	require.NoError(t, parseTime("235959", &tm))
	assert.Equal(t, Time{Hour: 23, Min: 59, Sec: 59}, tm)

	tm = Time{}
	require.NoError(t, parseTime("010203.5", &tm))
	assert.Equal(t, Time{Hour: 1, Min: 2, Sec: 3, Hsec: 5, HsecDigits: 1}, tm)

	tm = Time{}
	require.NoError(t, parseTime("010203.123", &tm))
	assert.Equal(t, Time{Hour: 1, Min: 2, Sec: 3, Hsec: 123, HsecDigits: 3}, tm)

	for _, bad := range []string{"", "12345", "1234567", "010203.1234"} {
		assert.Error(t, parseTime(bad, &tm), "input %q", bad)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindGGA, Classify([]byte("GPGGA,1")))
	assert.Equal(t, KindVTG, Classify([]byte("GPVTG")))
	assert.Equal(t, KindNone, Classify([]byte("GNGGA,1")))
	assert.Equal(t, KindNone, Classify([]byte("gpgga,1")))
	assert.Equal(t, KindNone, Classify([]byte("GPGG")))
	assert.Equal(t, "GPRMC", KindRMC.String())
	assert.Equal(t, "NONE", KindNone.String())
}
