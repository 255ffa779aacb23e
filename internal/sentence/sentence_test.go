package sentence

import (
	"errors"
	"math"
	"testing"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/google/go-cmp/cmp"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// line frames body with '$' and its checksum.
func line(body string) string {
	return "$" + body + "*" + nmea.Checksum(body)
}

func decode(t *testing.T, d *Decoder, body string) gps.Sentence {
	t.Helper()
	s, err := d.Decode(line(body))
	if err != nil {
		t.Fatalf("Decode(%q) error: %v", body, err)
	}
	return s
}

func TestDecode_GGA(t *testing.T) {
	d := NewDecoder()
	s := decode(t, d, "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	fix, ok := s.(gps.PositionFix)
	if !ok {
		t.Fatalf("got %T want gps.PositionFix", s)
	}
	if fix.Position == nil || math.Abs(fix.Position.Latitude-48.1173) > 1e-6 || math.Abs(fix.Position.Longitude-11.516667) > 1e-6 {
		t.Fatalf("position=%+v", fix.Position)
	}
	if fix.Altitude == nil || *fix.Altitude != 545.4 {
		t.Fatalf("altitude=%v want 545.4", fix.Altitude)
	}
	if fix.FixQuality == nil || *fix.FixQuality != gps.FixGPS {
		t.Fatalf("quality=%v want GPS", fix.FixQuality)
	}
}

func TestDecode_GGAWithoutFix(t *testing.T) {
	d := NewDecoder()
	s := decode(t, d, "GPGGA,123519,,,,,0,00,99.99,,,,,,")
	fix := s.(gps.PositionFix)
	if fix.Position != nil || fix.Altitude != nil {
		t.Fatalf("absent fields decoded as values: %+v", fix)
	}
	if fix.FixQuality == nil || *fix.FixQuality != gps.FixInvalid {
		t.Fatalf("quality=%v want INVALID", fix.FixQuality)
	}
}

func TestDecode_GSA(t *testing.T) {
	cases := []struct {
		body string
		want gps.FixStatus
	}{
		{"GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1", gps.FixStatus3D},
		{"GPGSA,A,2,04,05,,09,,,,,,,,,2.5,1.3,2.1", gps.FixStatus2D},
		{"GPGSA,A,1,,,,,,,,,,,,,,,", gps.FixStatusNone},
	}
	for _, tc := range cases {
		st, ok := decode(t, NewDecoder(), tc.body).(gps.SatelliteStatus)
		if !ok || st.FixStatus == nil || *st.FixStatus != tc.want {
			t.Fatalf("%s: got %+v want %s", tc.body, st, tc.want)
		}
	}
}

func TestDecode_GSVBatch(t *testing.T) {
	d := NewDecoder()
	if s := decode(t, d, "GPGSV,2,1,08,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45"); s != nil {
		t.Fatalf("first part returned %T, want nil until batch completes", s)
	}
	if d.Pending() != 1 {
		t.Fatalf("pending=%d want 1", d.Pending())
	}
	s := decode(t, d, "GPGSV,2,2,08,18,67,078,48,19,15,172,42,22,08,045,35,24,33,265,44")
	batch, ok := s.(gps.SatellitesInView)
	if !ok {
		t.Fatalf("got %T want gps.SatellitesInView", s)
	}
	if len(batch.Parts) != 2 || batch.Parts[1].InView != 8 {
		t.Fatalf("parts=%+v", batch.Parts)
	}
	want := gps.SatelliteInfo{ID: "01", Elevation: 40, Azimuth: 83, Noise: 46}
	if diff := cmp.Diff(want, batch.Parts[0].Satellites[0]); diff != "" {
		t.Fatalf("first satellite (-want +got):\n%s", diff)
	}
	if d.Pending() != 0 {
		t.Fatalf("pending=%d want 0", d.Pending())
	}
}

func TestDecode_GSVSinglePart(t *testing.T) {
	s := decode(t, NewDecoder(), "GLGSV,1,1,03,65,40,083,46,66,17,308,,67,07,344,39")
	batch := s.(gps.SatellitesInView)
	if len(batch.Parts) != 1 || batch.Parts[0].Talker != "GL" || len(batch.Parts[0].Satellites) != 3 {
		t.Fatalf("batch=%+v", batch)
	}
	if batch.Parts[0].Satellites[1].Noise != 0 {
		t.Fatalf("empty snr should decode as 0")
	}
}

func TestDecode_GSVOutOfSequence(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode(line("GPGSV,2,2,08,18,67,078,48,19,15,172,42,22,08,045,35,24,33,265,44"))
	if !errors.Is(err, ErrBatchSequence) {
		t.Fatalf("err=%v want ErrBatchSequence", err)
	}

	decode(t, d, "GPGSV,3,1,09,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45")
	_, err = d.Decode(line("GPGSV,3,3,09,09,10,100,20"))
	if !errors.Is(err, ErrBatchSequence) {
		t.Fatalf("skipped part: err=%v want ErrBatchSequence", err)
	}
	if d.Pending() != 0 {
		t.Fatalf("broken batch kept: pending=%d", d.Pending())
	}
}

func TestDecode_GSVInterleavedTalkers(t *testing.T) {
	d := NewDecoder()
	decode(t, d, "GPGSV,2,1,05,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45")
	decode(t, d, "GLGSV,2,1,05,65,40,083,46,66,17,308,41,67,07,344,39,68,22,228,45")
	gl := decode(t, d, "GLGSV,2,2,05,69,10,100,20")
	gp := decode(t, d, "GPGSV,2,2,05,24,33,265,44")

	if b := gl.(gps.SatellitesInView); b.Parts[0].Talker != "GL" || b.Parts[1].Talker != "GL" {
		t.Fatalf("glonass batch mixed: %+v", b)
	}
	if b := gp.(gps.SatellitesInView); b.Parts[0].Talker != "GP" || b.Parts[1].Satellites[0].ID != "24" {
		t.Fatalf("gps batch wrong: %+v", b)
	}
}

func TestDecode_GSVSignalsMergeIntoOneBatch(t *testing.T) {
	d := NewDecoder()
	l1 := "GPGSV,1,1,04,10,63,137,17,07,61,098,15,05,59,290,20,08,54,157,30,1"
	l5 := "GPGSV,1,1,02,10,63,137,40,07,61,098,38,8"

	first := decode(t, d, l1).(gps.SatellitesInView)
	if len(first.Parts) != 1 {
		t.Fatalf("first signal: parts=%d want 1", len(first.Parts))
	}
	merged := decode(t, d, l5).(gps.SatellitesInView)
	if len(merged.Parts) != 2 || merged.Parts[0].InView != 4 || merged.Parts[1].InView != 2 {
		t.Fatalf("merged parts=%+v", merged.Parts)
	}

	// A sweep without the L5 batch forgets it.
	decode(t, d, "GPGSA,A,3,05,07,08,10,,,,,,,,,2.5,1.3,2.1")
	decode(t, d, l1)
	decode(t, d, "GPGSA,A,3,05,07,08,10,,,,,,,,,2.5,1.3,2.1")
	again := decode(t, d, l1).(gps.SatellitesInView)
	if len(again.Parts) != 1 || len(again.Parts[0].Satellites) != 4 {
		t.Fatalf("expired signal still merged: %+v", again.Parts)
	}
}

func TestDecode_PUBXPosition(t *testing.T) {
	s := decode(t, NewDecoder(), "PUBX,00,081350.00,4717.113210,N,00833.915187,E,546.589,G3,2.1,2.0,0.007,77.52,0.007,,0.92,1.19,0.77,9,0,0")
	acc, ok := s.(gps.ReceiverAccuracy)
	if !ok {
		t.Fatalf("got %T want gps.ReceiverAccuracy", s)
	}
	if acc.Horizontal == nil || *acc.Horizontal != 2.1 || acc.Vertical == nil || *acc.Vertical != 2.0 {
		t.Fatalf("accuracy=%v/%v want 2.1/2.0", acc.Horizontal, acc.Vertical)
	}
	if acc.NavStatus == nil || *acc.NavStatus != "G3" {
		t.Fatalf("nav status=%v want G3", acc.NavStatus)
	}
}

func TestDecode_PUBXMissingAccuracy(t *testing.T) {
	s := decode(t, NewDecoder(), "PUBX,00,081350.00,,,,,,NF,,,,,,,,,,0,0,0")
	acc := s.(gps.ReceiverAccuracy)
	if acc.Horizontal != nil || acc.Vertical != nil {
		t.Fatalf("absent accuracy decoded as %v/%v", acc.Horizontal, acc.Vertical)
	}
}

func TestDecode_OtherTypes(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W", "RMC"},
		{"GPZZZ,1,2,3", "ZZZ"},
		{"PUBX,03,1,2", "UBX,03"},
	}
	for _, tc := range cases {
		s := decode(t, NewDecoder(), tc.body)
		if diff := cmp.Diff(gps.Other{Type: tc.want}, s); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", tc.body, diff)
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	d := NewDecoder()
	for _, raw := range []string{
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00",
		"garbage",
		"",
		line("GPGGA,123519,48x7.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
	} {
		if s, err := d.Decode(raw); err == nil {
			t.Fatalf("Decode(%q) = %v, want error", raw, s)
		}
	}
}
