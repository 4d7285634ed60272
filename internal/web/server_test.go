package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"nmeafix/internal/gps"
)

var testSnap = gps.Snapshot{
	Enabled:   true,
	Valid:     true,
	Source:    "nmea",
	Device:    "/dev/ttyUSB0",
	LatDeg:    31.260703,
	LonDeg:    121.45915,
	FixMode:   3,
	SatsInUse: 4,
	FixUTC:    "2018-09-18T03:10:24Z",
}

func newTestStatus() *Status {
	st := NewStatus()
	st.SetGPS(func() gps.Snapshot { return testSnap })
	st.SetSinks(map[string]string{"udp": "127.0.0.1:4000"})
	return st
}

func TestAPIStatus(t *testing.T) {
	ts := httptest.NewServer(Handler(newTestStatus(), Options{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var snap StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if snap.Service != "nmeafix" {
		t.Fatalf("service=%q", snap.Service)
	}
	if snap.Sinks["udp"] != "127.0.0.1:4000" {
		t.Fatalf("sinks=%v", snap.Sinks)
	}
	if !snap.GPS.Valid || snap.GPS.Device != "/dev/ttyUSB0" || snap.GPS.SatsInUse != 4 {
		t.Fatalf("gps=%+v", snap.GPS)
	}
	if snap.Build.GoVersion == "" {
		t.Fatalf("expected go version")
	}
}

func TestAPIStatus_MethodNotAllowed(t *testing.T) {
	ts := httptest.NewServer(Handler(newTestStatus(), Options{}))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/status", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != http.MethodGet {
		t.Fatalf("allow=%q", resp.Header.Get("Allow"))
	}
}

func TestAPIFix(t *testing.T) {
	ts := httptest.NewServer(Handler(newTestStatus(), Options{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/fix")
	if err != nil {
		t.Fatalf("get fix: %v", err)
	}
	defer resp.Body.Close()
	var fix gps.Fix
	if err := json.NewDecoder(resp.Body).Decode(&fix); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if fix != testSnap.Fix() {
		t.Fatalf("fix=%+v want %+v", fix, testSnap.Fix())
	}
}

func TestAPIFix_NoFixYet(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(), Options{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/fix")
	if err != nil {
		t.Fatalf("get fix: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
}

func TestRootPage(t *testing.T) {
	ts := httptest.NewServer(Handler(newTestStatus(), Options{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "device=/dev/ttyUSB0") {
		t.Fatalf("body=%s", b)
	}

	resp2, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("status code=%d", resp2.StatusCode)
	}
}

func TestOptionalEndpointsDisabled(t *testing.T) {
	ts := httptest.NewServer(Handler(newTestStatus(), Options{}))
	defer ts.Close()

	for _, p := range []string{"/api/logs", "/metrics", "/api/stream"} {
		resp, err := http.Get(ts.URL + p)
		if err != nil {
			t.Fatalf("get %s: %v", p, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s status code=%d", p, resp.StatusCode)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "nmeafix_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	ts := httptest.NewServer(Handler(newTestStatus(), Options{Metrics: reg}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "nmeafix_test_total 3") {
		t.Fatalf("metrics body=%s", b)
	}
}

func TestStreamPushesFixes(t *testing.T) {
	fixes := NewFixBroadcaster()
	first := gps.Fix{Time: "2018-09-18T03:10:24Z", Valid: true}
	fixes.Publish(first)

	ts := httptest.NewServer(Handler(newTestStatus(), Options{Fixes: fixes}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var got gps.Fix
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if got != first {
		t.Fatalf("first=%+v want %+v", got, first)
	}

	second := gps.Fix{Time: "2018-09-18T03:10:25Z", LatDeg: 1}
	fixes.Publish(second)
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if got != second {
		t.Fatalf("second=%+v want %+v", got, second)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	deadline := time.Now().Add(3 * time.Second)
	for fixes.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
