package optimizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/constants"
)

var (
	// ErrRequestFailed 网络错误、超时或非 2xx 响应
	ErrRequestFailed = errors.New("optimizer request failed")
	// ErrResponseInvalid 响应结构不完整
	ErrResponseInvalid = errors.New("optimizer response invalid")
	// ErrNoStops 没有可优化的站点
	ErrNoStops = errors.New("optimizer no stops")
)

// Coordinate 经纬度坐标
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

func (c Coordinate) lonLat() []float64 {
	return []float64{c.Longitude, c.Latitude}
}

// Stop 待排序的站点
type Stop struct {
	DeliveryID  uint
	Description string
	Coordinate  Coordinate
}

// Result 优化结果
type Result struct {
	Ordered         []Stop  // 按访问顺序排列
	DistanceMeters  float64 // 以路线几何摘要为准
	DurationSeconds float64
	Geometry        map[string]interface{} // 路线几何原始 GeoJSON
}

// Optimizer 路线优化接口
type Optimizer interface {
	Optimize(ctx context.Context, stops []Stop, departure *Coordinate, profile string) (*Result, error)
}

// Client VRP 排序 + 路线几何的两段式客户端
type Client struct {
	vrpURL         string
	directionsURL  string
	apiKey         string
	defaultProfile string
	timeout        time.Duration
	httpClient     *http.Client
}

// NewClient 创建优化客户端
func NewClient(cfg config.OptimizerConfig) *Client {
	profile := strings.TrimSpace(cfg.Profile)
	if profile == "" {
		profile = constants.VehicleProfileCar
	}
	return &Client{
		vrpURL:         strings.TrimSpace(cfg.VRPURL),
		directionsURL:  strings.TrimRight(strings.TrimSpace(cfg.DirectionsURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		defaultProfile: profile,
		timeout:        cfg.Timeout(),
		httpClient:     &http.Client{Timeout: cfg.Timeout()},
	}
}

type vrpJob struct {
	ID          int       `json:"id"`
	Location    []float64 `json:"location"`
	Description string    `json:"description,omitempty"`
}

type vrpVehicle struct {
	ID      int       `json:"id"`
	Profile string    `json:"profile"`
	Start   []float64 `json:"start"`
}

type vrpRequest struct {
	Jobs     []vrpJob     `json:"jobs"`
	Vehicles []vrpVehicle `json:"vehicles"`
}

type vrpStep struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
	Job  int    `json:"job"`
}

// jobID 求解器回传的任务编号，旧版本只带 job 字段
func (s vrpStep) jobID() int {
	if s.ID != 0 {
		return s.ID
	}
	return s.Job
}

type vrpResponse struct {
	Routes []struct {
		Steps []vrpStep `json:"steps"`
	} `json:"routes"`
	Unassigned []struct {
		ID int `json:"id"`
	} `json:"unassigned"`
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Type     string                   `json:"type"`
	Features []map[string]interface{} `json:"features"`
	BBox     []float64                `json:"bbox,omitempty"`
}

// Optimize 先用 VRP 求访问顺序，再按顺序请求路线几何
func (c *Client) Optimize(ctx context.Context, stops []Stop, departure *Coordinate, profile string) (*Result, error) {
	if len(stops) == 0 {
		return nil, ErrNoStops
	}
	if strings.TrimSpace(profile) == "" {
		profile = c.defaultProfile
	}
	start := stops[0].Coordinate
	if departure != nil {
		start = *departure
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ordered, err := c.solveOrder(ctx, stops, start, profile)
	if err != nil {
		return nil, err
	}

	coordinates := make([][]float64, 0, len(ordered)+1)
	coordinates = append(coordinates, start.lonLat())
	for _, stop := range ordered {
		coordinates = append(coordinates, stop.Coordinate.lonLat())
	}
	var directions directionsResponse
	endpoint := fmt.Sprintf("%s/%s/geojson", c.directionsURL, profile)
	if err := c.postJSON(ctx, endpoint, directionsRequest{Coordinates: coordinates}, &directions); err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	distance, duration, err := summaryOf(directions)
	if err != nil {
		return nil, err
	}

	return &Result{
		Ordered:         ordered,
		DistanceMeters:  distance,
		DurationSeconds: duration,
		Geometry: map[string]interface{}{
			"type":     "FeatureCollection",
			"features": toInterfaces(directions.Features),
			"bbox":     directions.BBox,
		},
	}, nil
}

func (c *Client) solveOrder(ctx context.Context, stops []Stop, start Coordinate, profile string) ([]Stop, error) {
	request := vrpRequest{
		Jobs:     make([]vrpJob, 0, len(stops)),
		Vehicles: []vrpVehicle{{ID: 1, Profile: profile, Start: start.lonLat()}},
	}
	for i, stop := range stops {
		request.Jobs = append(request.Jobs, vrpJob{
			ID:          i + 1,
			Location:    stop.Coordinate.lonLat(),
			Description: stop.Description,
		})
	}

	var response vrpResponse
	if err := c.postJSON(ctx, c.vrpURL, request, &response); err != nil {
		return nil, fmt.Errorf("vrp: %w", err)
	}
	if len(response.Routes) == 0 {
		return nil, fmt.Errorf("vrp: %w: no routes", ErrResponseInvalid)
	}

	ordered := make([]Stop, 0, len(stops))
	seen := make(map[int]bool, len(stops))
	for _, step := range response.Routes[0].Steps {
		if step.Type != "job" {
			continue
		}
		index := step.jobID() - 1
		if index < 0 || index >= len(stops) || seen[index] {
			return nil, fmt.Errorf("vrp: %w: unknown job %d", ErrResponseInvalid, step.jobID())
		}
		seen[index] = true
		ordered = append(ordered, stops[index])
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("vrp: %w: empty route", ErrResponseInvalid)
	}
	// 求解器未排入的站点保持原顺序追加在末尾
	for i, stop := range stops {
		if !seen[i] {
			ordered = append(ordered, stop)
		}
	}
	return ordered, nil
}

func summaryOf(directions directionsResponse) (float64, float64, error) {
	if len(directions.Features) == 0 {
		return 0, 0, fmt.Errorf("directions: %w: no features", ErrResponseInvalid)
	}
	properties, ok := directions.Features[0]["properties"].(map[string]interface{})
	if !ok {
		return 0, 0, fmt.Errorf("directions: %w: missing properties", ErrResponseInvalid)
	}
	summary, ok := properties["summary"].(map[string]interface{})
	if !ok {
		return 0, 0, fmt.Errorf("directions: %w: missing summary", ErrResponseInvalid)
	}
	distance, _ := summary["distance"].(float64)
	duration, _ := summary["duration"].(float64)
	return distance, duration, nil
}

func toInterfaces(features []map[string]interface{}) []interface{} {
	out := make([]interface{}, 0, len(features))
	for _, feature := range features {
		out = append(out, feature)
	}
	return out
}
