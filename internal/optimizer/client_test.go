package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tms-next/internal/config"
)

type fakeBackend struct {
	vrpStatus   int
	vrpBody     string
	directions  string
	delay       time.Duration
	gotVRP      vrpRequest
	gotDirPath  string
	gotDirCoord [][]float64
}

func (f *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/optimization", func(w http.ResponseWriter, r *http.Request) {
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		if err := json.NewDecoder(r.Body).Decode(&f.gotVRP); err != nil {
			t.Errorf("decode vrp request failed: %v", err)
		}
		if f.vrpStatus != 0 {
			w.WriteHeader(f.vrpStatus)
		}
		_, _ = w.Write([]byte(f.vrpBody))
	})
	mux.HandleFunc("/directions/", func(w http.ResponseWriter, r *http.Request) {
		f.gotDirPath = r.URL.Path
		var body directionsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode directions request failed: %v", err)
		}
		f.gotDirCoord = body.Coordinates
		_, _ = w.Write([]byte(f.directions))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, timeout int) *Client {
	return NewClient(config.OptimizerConfig{
		VRPURL:         srv.URL + "/optimization",
		DirectionsURL:  srv.URL + "/directions/",
		Profile:        "driving-car",
		TimeoutSeconds: timeout,
	})
}

const directionsOK = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"summary":{"distance":15234.5,"duration":1830.2}},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}]}`

func sampleStops() []Stop {
	return []Stop{
		{DeliveryID: 100, Description: "PED-1", Coordinate: Coordinate{Latitude: -23.1, Longitude: -46.1}},
		{DeliveryID: 200, Description: "PED-2", Coordinate: Coordinate{Latitude: -23.2, Longitude: -46.2}},
		{DeliveryID: 300, Description: "PED-3", Coordinate: Coordinate{Latitude: -23.3, Longitude: -46.3}},
	}
}

func TestOptimizeOrdersStopsByVRPSteps(t *testing.T) {
	backend := &fakeBackend{
		vrpBody:    `{"routes":[{"steps":[{"type":"start"},{"type":"job","id":3},{"type":"job","id":1},{"type":"job","id":2},{"type":"end"}]}]}`,
		directions: directionsOK,
	}
	srv := backend.server(t)
	client := newTestClient(srv, 5)

	departure := &Coordinate{Latitude: -23.0, Longitude: -46.0}
	result, err := client.Optimize(context.Background(), sampleStops(), departure, "driving-hgv")
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	got := []uint{result.Ordered[0].DeliveryID, result.Ordered[1].DeliveryID, result.Ordered[2].DeliveryID}
	if got[0] != 300 || got[1] != 100 || got[2] != 200 {
		t.Fatalf("unexpected order: %v", got)
	}
	if result.DistanceMeters != 15234.5 || result.DurationSeconds != 1830.2 {
		t.Fatalf("metrics must come from directions summary, got %v %v", result.DistanceMeters, result.DurationSeconds)
	}
	if backend.gotVRP.Vehicles[0].Profile != "driving-hgv" || backend.gotVRP.Vehicles[0].Start[0] != -46.0 {
		t.Fatalf("unexpected vrp vehicle: %+v", backend.gotVRP.Vehicles[0])
	}
	if backend.gotVRP.Jobs[0].ID != 1 || backend.gotVRP.Jobs[0].Description != "PED-1" || backend.gotVRP.Jobs[0].Location[1] != -23.1 {
		t.Fatalf("unexpected vrp job: %+v", backend.gotVRP.Jobs[0])
	}
	if backend.gotDirPath != "/directions/driving-hgv/geojson" {
		t.Fatalf("unexpected directions path: %s", backend.gotDirPath)
	}
	if len(backend.gotDirCoord) != 4 || backend.gotDirCoord[0][0] != -46.0 || backend.gotDirCoord[1][1] != -23.3 {
		t.Fatalf("directions must start at departure then follow order: %v", backend.gotDirCoord)
	}
	if result.Geometry["type"] != "FeatureCollection" {
		t.Fatalf("unexpected geometry: %v", result.Geometry)
	}
}

func TestOptimizeWithoutDepartureStartsAtFirstStop(t *testing.T) {
	backend := &fakeBackend{
		vrpBody:    `{"routes":[{"steps":[{"type":"job","id":2}]}]}`,
		directions: directionsOK,
	}
	client := newTestClient(backend.server(t), 5)
	result, err := client.Optimize(context.Background(), sampleStops()[:2], nil, "")
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	if backend.gotVRP.Vehicles[0].Start[0] != -46.1 {
		t.Fatalf("start should be first stop, got %v", backend.gotVRP.Vehicles[0].Start)
	}
	if backend.gotVRP.Vehicles[0].Profile != "driving-car" {
		t.Fatalf("empty profile should use default, got %s", backend.gotVRP.Vehicles[0].Profile)
	}
	if len(result.Ordered) != 2 || result.Ordered[0].DeliveryID != 200 || result.Ordered[1].DeliveryID != 100 {
		t.Fatalf("unrouted stops must be appended, got %+v", result.Ordered)
	}
}

func TestOptimizeAcceptsLegacyJobField(t *testing.T) {
	backend := &fakeBackend{
		vrpBody:    `{"routes":[{"steps":[{"type":"start"},{"type":"job","job":2},{"type":"job","id":1},{"type":"end"}]}]}`,
		directions: directionsOK,
	}
	client := newTestClient(backend.server(t), 5)
	result, err := client.Optimize(context.Background(), sampleStops()[:2], nil, "")
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	if len(result.Ordered) != 2 || result.Ordered[0].DeliveryID != 200 || result.Ordered[1].DeliveryID != 100 {
		t.Fatalf("unexpected order: %+v", result.Ordered)
	}
}

func TestOptimizeErrors(t *testing.T) {
	cases := []struct {
		name    string
		backend *fakeBackend
		want    error
	}{
		{"server error", &fakeBackend{vrpStatus: http.StatusBadGateway, vrpBody: "upstream down"}, ErrRequestFailed},
		{"missing routes", &fakeBackend{vrpBody: `{"code":3}`}, ErrResponseInvalid},
		{"bad json", &fakeBackend{vrpBody: `{`}, ErrResponseInvalid},
		{"unknown job", &fakeBackend{vrpBody: `{"routes":[{"steps":[{"type":"job","id":9}]}]}`}, ErrResponseInvalid},
		{"missing features", &fakeBackend{vrpBody: `{"routes":[{"steps":[{"type":"job","id":1}]}]}`, directions: `{"type":"FeatureCollection","features":[]}`}, ErrResponseInvalid},
	}
	for _, tc := range cases {
		client := newTestClient(tc.backend.server(t), 5)
		_, err := client.Optimize(context.Background(), sampleStops(), nil, "")
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: want %v got %v", tc.name, tc.want, err)
		}
	}
}

func TestOptimizeStatusErrorKeepsBody(t *testing.T) {
	backend := &fakeBackend{vrpStatus: http.StatusBadRequest, vrpBody: "invalid coordinates"}
	client := newTestClient(backend.server(t), 5)
	_, err := client.Optimize(context.Background(), sampleStops(), nil, "")
	if err == nil || !strings.Contains(err.Error(), "http status 400: invalid coordinates") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOptimizeTimeout(t *testing.T) {
	backend := &fakeBackend{vrpBody: `{"routes":[]}`, delay: 1500 * time.Millisecond}
	client := newTestClient(backend.server(t), 1)
	_, err := client.Optimize(context.Background(), sampleStops(), nil, "")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("timeout should surface as request failure, got %v", err)
	}
}

func TestOptimizeNoStops(t *testing.T) {
	client := NewClient(config.OptimizerConfig{})
	if _, err := client.Optimize(context.Background(), nil, nil, ""); !errors.Is(err, ErrNoStops) {
		t.Fatalf("want ErrNoStops got %v", err)
	}
}
