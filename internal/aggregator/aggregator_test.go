package aggregator

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/gnss_status/internal/accuracy"
	"github.com/relabs-tech/gnss_status/internal/gps"
	"github.com/relabs-tech/gnss_status/internal/metrics"
	"github.com/relabs-tech/gnss_status/internal/satellites"
	"github.com/relabs-tech/gnss_status/internal/status"
)

func ptr[T any](v T) *T { return &v }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) StatusChanged(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestAggregator(t *testing.T, cfg accuracy.Config) (*Aggregator, *recorder) {
	t.Helper()
	est, err := accuracy.NewEstimator(cfg)
	if err != nil {
		t.Fatalf("NewEstimator() error: %v", err)
	}
	rec := &recorder{}
	a := New(status.NewStore(), satellites.NewTable(), est, WithListener(rec))
	return a, rec
}

func fixAt(lat, lon float64) gps.PositionFix {
	return gps.PositionFix{
		Position:   &gps.Position{Latitude: lat, Longitude: lon},
		Altitude:   ptr(10.0),
		FixQuality: ptr(gps.FixGPS),
	}
}

func gsv(talker string, ids ...string) gps.SatellitesInViewPart {
	part := gps.SatellitesInViewPart{Talker: talker, MessageNumber: 1, TotalMessages: 1, InView: len(ids)}
	for i, id := range ids {
		part.Satellites = append(part.Satellites, gps.SatelliteInfo{ID: id, Elevation: 10 * i, Azimuth: 45 * i, Noise: 30 + i})
	}
	return part
}

func batch(parts ...gps.SatellitesInViewPart) gps.SatellitesInView {
	return gps.SatellitesInView{Parts: parts}
}

func tableKeys(a *Aggregator) []gps.Constellation {
	m := a.Satellites()
	var out []gps.Constellation
	for _, c := range gps.Constellations() {
		if _, ok := m[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func TestPositionFix_RetainsPositionWhenAbsent(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{})
	if err := a.ApplyPositionFix(fixAt(19.65767, -155.94929)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	seq := []gps.PositionFix{
		{},
		{Altitude: ptr(12.0)},
		{FixQuality: ptr(gps.FixDGPS)},
		{},
	}
	for i, fix := range seq {
		if err := a.ApplyPositionFix(fix); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		s := a.Status()
		if s.Latitude == nil || *s.Latitude != 19.65767 || s.Longitude == nil || *s.Longitude != -155.94929 {
			t.Fatalf("step %d: position lost: %+v", i, s)
		}
	}
}

func TestPositionFix_AbsentFieldsBecomeNull(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{})
	a.ApplyPositionFix(fixAt(1, 2))
	a.ApplyPositionFix(gps.PositionFix{Position: &gps.Position{Latitude: 1, Longitude: 2}})
	s := a.Status()
	if s.Altitude != nil || s.FixQuality != nil {
		t.Fatalf("absent altitude/quality should be nil, got %v %v", s.Altitude, s.FixQuality)
	}
}

func TestSatellitesInView_MixedConstellationsRejected(t *testing.T) {
	a, rec := newTestAggregator(t, accuracy.Config{})
	if err := a.ApplySatellitesInView(batch(gsv("GP", "01", "02"))); err != nil {
		t.Fatalf("apply: %v", err)
	}
	before := a.Satellites()
	beforeStatus := a.Status()
	events := rec.count()

	mixed := batch(gsv("GP", "03"), gsv("GL", "65"))
	err := a.ApplySatellitesInView(mixed)
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("err=%v want ErrProtocol", err)
	}
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("err=%T want *ProtocolError", err)
	}
	if diff := cmp.Diff([]gps.Constellation{gps.GPS, gps.GLONASS}, perr.Constellations); diff != "" {
		t.Fatalf("constellations (-want +got):\n%s", diff)
	}
	if perr.Kind != gps.KindSatellitesInView {
		t.Fatalf("kind=%s", perr.Kind)
	}
	if diff := cmp.Diff(before, a.Satellites()); diff != "" {
		t.Fatalf("table changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(beforeStatus, a.Status()); diff != "" {
		t.Fatalf("status changed (-before +after):\n%s", diff)
	}
	if rec.count() != events {
		t.Fatalf("rejected batch emitted an event")
	}
}

func TestSatellitesInView_UnknownTalkerRejected(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{})
	err := a.ApplySatellitesInView(batch(gsv("GP", "01"), gsv("QZ", "193")))
	if !errors.Is(err, ErrProtocol) || !errors.Is(err, gps.ErrUnknownTalker) {
		t.Fatalf("err=%v want ErrProtocol wrapping ErrUnknownTalker", err)
	}
	if len(a.Satellites()) != 0 {
		t.Fatalf("partial batch applied")
	}
}

func TestSatellitesInView_EmptyBatchRejected(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{})
	if err := a.ApplySatellitesInView(gps.SatellitesInView{}); !errors.Is(err, ErrProtocol) {
		t.Fatalf("err=%v want ErrProtocol", err)
	}
}

func TestSweep_ReconcileOnNonBatchSentence(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{})
	fix := gps.FixStatus3D

	a.Apply(batch(gsv("GP", "01", "02")))
	a.Apply(batch(gsv("GL", "65", "66", "67")))
	a.Apply(gps.SatelliteStatus{FixStatus: &fix})
	if diff := cmp.Diff([]gps.Constellation{gps.GPS, gps.GLONASS}, tableKeys(a)); diff != "" {
		t.Fatalf("after first sweep (-want +got):\n%s", diff)
	}

	a.Apply(batch(gsv("GP", "01", "02", "03")))
	// Still inside the sweep: GLONASS is kept until a non-batch sentence.
	if diff := cmp.Diff([]gps.Constellation{gps.GPS, gps.GLONASS}, tableKeys(a)); diff != "" {
		t.Fatalf("mid sweep (-want +got):\n%s", diff)
	}
	a.Apply(gps.SatelliteStatus{FixStatus: &fix})
	if diff := cmp.Diff([]gps.Constellation{gps.GPS}, tableKeys(a)); diff != "" {
		t.Fatalf("after second sweep (-want +got):\n%s", diff)
	}
	if got := len(a.Satellites()[gps.GPS]); got != 3 {
		t.Fatalf("gps satellites=%d want 3", got)
	}
}

func TestSweep_OtherSentencesCloseSweep(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{})
	a.Apply(batch(gsv("GP", "01")))
	a.Apply(batch(gsv("GA", "301")))
	a.Apply(gps.Other{Type: "RMC"})
	a.Apply(batch(gsv("GA", "301")))
	a.Apply(gps.Other{Type: "VTG"})
	if diff := cmp.Diff([]gps.Constellation{gps.Galileo}, tableKeys(a)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestChangeDetection_IdenticalUpdatesEmitOnce(t *testing.T) {
	a, rec := newTestAggregator(t, accuracy.Config{})
	for i := 0; i < 10; i++ {
		if err := a.ApplyPositionFix(fixAt(48.1173, 11.5167)); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if rec.count() != 1 {
		t.Fatalf("events=%d want 1", rec.count())
	}
}

func TestChangeDetection_DistinctUpdatesEmitEach(t *testing.T) {
	a, rec := newTestAggregator(t, accuracy.Config{})
	const n = 10
	for i := 0; i < n; i++ {
		a.ApplyReceiverAccuracy(gps.ReceiverAccuracy{Horizontal: ptr(float64(i) + 0.5)})
	}
	if rec.count() != n {
		t.Fatalf("events=%d want %d", rec.count(), n)
	}
}

func TestChangeDetection_NoEventForNoopSentence(t *testing.T) {
	a, rec := newTestAggregator(t, accuracy.Config{})
	a.ApplySatelliteStatus(gps.SatelliteStatus{})
	a.Apply(gps.Other{Type: "GLL"})
	if rec.count() != 0 {
		t.Fatalf("events=%d want 0", rec.count())
	}
}

func TestEvent_CarriesTotalSatellites(t *testing.T) {
	a, rec := newTestAggregator(t, accuracy.Config{})
	a.Apply(batch(gsv("GP", "01", "02", "03", "04")))
	a.Apply(batch(gsv("GB", "201", "202")))
	last := rec.events[len(rec.events)-1]
	if last.Status.TotalSatellites() != 6 {
		t.Fatalf("total=%d want 6", last.Status.TotalSatellites())
	}
	raw, err := json.Marshal(last)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if n := strings.Count(string(raw), `"total_satellites"`); n != 1 {
		t.Fatalf("total_satellites appears %d times in %s", n, raw)
	}
	if last.Status.SatelliteCount[gps.BeiDou] != 2 {
		t.Fatalf("beidou=%d want 2", last.Status.SatelliteCount[gps.BeiDou])
	}
}

func TestAccuracy_ComputedAfterThreshold(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{Capacity: 100, Threshold: 20})
	for i := 0; i < 25; i++ {
		if err := a.ApplyPositionFix(fixAt(19.65767+float64(i)*1e-5, -155.94929)); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
		if i < 20 && a.Status().CalculatedHorizontalAccuracy != nil {
			t.Fatalf("accuracy set before threshold at %d", i)
		}
	}
	acc := a.Status().CalculatedHorizontalAccuracy
	if acc == nil || *acc <= 0 {
		t.Fatalf("calculated accuracy=%v want positive", acc)
	}
}

func TestReceiverAccuracy_DoesNotTouchCalculated(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{Capacity: 10, Threshold: 2})
	for i := 0; i < 4; i++ {
		a.ApplyPositionFix(fixAt(10+float64(i)*1e-4, 10))
	}
	calc := *a.Status().CalculatedHorizontalAccuracy

	a.ApplyReceiverAccuracy(gps.ReceiverAccuracy{Horizontal: ptr(2.5), Vertical: ptr(4.0)})
	a.ApplyReceiverAccuracy(gps.ReceiverAccuracy{Vertical: ptr(3.0)})
	s := a.Status()
	if *s.CalculatedHorizontalAccuracy != calc {
		t.Fatalf("calculated changed %v -> %v", calc, *s.CalculatedHorizontalAccuracy)
	}
	if s.ReceiverHorizontalAccuracy != nil || *s.ReceiverVerticalAccuracy != 3.0 {
		t.Fatalf("receiver accuracy=%v/%v want nil/3", s.ReceiverHorizontalAccuracy, s.ReceiverVerticalAccuracy)
	}
}

// gauge returns the value of the first series of name carrying label, or -1.
func gauge(t *testing.T, reg prometheus.Gatherer, name, label string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label == "" {
				return m.GetGauge().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return -1
}

func TestReceiverAccuracy_ExportsNavigationStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	est, err := accuracy.NewEstimator(accuracy.Config{Capacity: 10, Threshold: 2})
	if err != nil {
		t.Fatalf("NewEstimator() error: %v", err)
	}
	a := New(status.NewStore(), satellites.NewTable(), est, WithMetrics(metrics.New(reg)))

	a.ApplyReceiverAccuracy(gps.ReceiverAccuracy{Horizontal: ptr(2.5), NavStatus: ptr("G2")})
	a.ApplyReceiverAccuracy(gps.ReceiverAccuracy{Horizontal: ptr(1.5), NavStatus: ptr("G3")})
	if got := gauge(t, reg, "gnss_navigation_status", "G3"); got != 1 {
		t.Fatalf("G3=%v want 1", got)
	}
	if got := gauge(t, reg, "gnss_navigation_status", "G2"); got != -1 {
		t.Fatalf("stale G2 series still exported: %v", got)
	}

	for i := 0; i < 4; i++ {
		a.ApplyPositionFix(fixAt(10+float64(i)*1e-4, 10))
	}
	calc := *a.Status().CalculatedHorizontalAccuracy
	geodesic := gauge(t, reg, "gnss_accuracy_geodesic_meters", "")
	if geodesic <= 0 || math.Abs(geodesic-calc)/calc > 0.01 {
		t.Fatalf("geodesic=%v calculated=%v", geodesic, calc)
	}
}

func TestSatellitesInView_MergedSignalsUseLargestCount(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{})
	a.Apply(batch(gsv("GP", "10", "07", "05", "08"), gsv("GP", "10", "07")))

	if got := a.Status().SatelliteCount[gps.GPS]; got != 4 {
		t.Fatalf("count=%d want 4", got)
	}
	if got := len(a.Satellites()[gps.GPS]); got != 4 {
		t.Fatalf("records=%d want 4", got)
	}
}

func TestProjectionFailure_IsConfigurationError(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{Capacity: 10, Threshold: 1})
	a.ApplyPositionFix(fixAt(10, 10))
	err := a.ApplyPositionFix(fixAt(10, 100))
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) || !errors.Is(err, accuracy.ErrProjection) {
		t.Fatalf("err=%v want ConfigurationError wrapping ErrProjection", err)
	}
	if errors.Is(err, ErrProtocol) {
		t.Fatalf("projection failure must not look like a protocol error")
	}
}

func TestEndToEnd_Scenario(t *testing.T) {
	a, rec := newTestAggregator(t, accuracy.Config{})
	fixStatus := gps.FixStatus3D

	steps := []gps.Sentence{
		fixAt(19.65767, -155.94929),
		gps.SatelliteStatus{FixStatus: &fixStatus},
		batch(
			gps.SatellitesInViewPart{Talker: "GP", MessageNumber: 1, TotalMessages: 1, InView: 4, Satellites: []gps.SatelliteInfo{
				{ID: "10", Elevation: 63, Azimuth: 137, Noise: 17},
				{ID: "07", Elevation: 61, Azimuth: 98, Noise: 15},
				{ID: "05", Elevation: 59, Azimuth: 290, Noise: 20},
				{ID: "08", Elevation: 54, Azimuth: 157, Noise: 30},
			}},
		),
	}
	for i, s := range steps {
		if err := a.Apply(s); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	want := status.Snapshot{
		Latitude:       ptr(19.65767),
		Longitude:      ptr(-155.94929),
		Altitude:       ptr(10.0),
		FixQuality:     ptr(gps.FixGPS),
		FixStatus:      ptr(gps.FixStatus3D),
		SatelliteCount: map[gps.Constellation]int{gps.GPS: 4},
	}
	got := a.Status()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("status (-want +got):\n%s", diff)
	}
	if got.TotalSatellites() != 4 {
		t.Fatalf("total=%d want 4", got.TotalSatellites())
	}
	table := a.Satellites()
	if len(table) != 1 || len(table[gps.GPS]) != 4 {
		t.Fatalf("table=%+v want {GPS: 4 records}", table)
	}
	if table[gps.GPS][0].ID != "05" {
		t.Fatalf("records not ordered by id: %+v", table[gps.GPS])
	}
	if rec.count() != 3 {
		t.Fatalf("events=%d want 3", rec.count())
	}
}

func TestConcurrentApplyAndRead(t *testing.T) {
	a, _ := newTestAggregator(t, accuracy.Config{})
	var wg sync.WaitGroup
	talkers := []string{"GP", "GL", "GA", "GB"}
	for _, talker := range talkers {
		wg.Add(1)
		go func(talker string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				a.Apply(batch(gsv(talker, "01", "02")))
				a.Apply(gps.Other{Type: "RMC"})
			}
		}(talker)
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			a.Apply(fixAt(10+float64(i)*1e-5, 20))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 400; i++ {
			_ = a.Status().TotalSatellites()
			_ = a.Satellites()
		}
	}()
	wg.Wait()
}
