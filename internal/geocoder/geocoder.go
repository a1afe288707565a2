package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/logger"
)

var (
	// ErrDisabled 地理编码未启用或缺少密钥
	ErrDisabled = errors.New("geocoder disabled")
	// ErrRequestFailed 请求失败
	ErrRequestFailed = errors.New("geocoder request failed")
)

// Address 待编码地址
type Address struct {
	Street       string
	Number       string
	Neighborhood string
	City         string
	State        string
	PostalCode   string
}

// Coordinate 编码结果
type Coordinate struct {
	Latitude  float64
	Longitude float64
	Source    string // structured / postal_code / free_text
}

// Geocoder 地理编码接口
type Geocoder interface {
	Geocode(ctx context.Context, address Address) (*Coordinate, error)
}

// Client 依次尝试结构化查询、邮编校验、自由文本
type Client struct {
	enabled       bool
	apiKey        string
	geocodeURL    string
	postalCodeURL string
	country       string
	httpClient    *http.Client
}

// NewClient 创建地理编码客户端
func NewClient(cfg config.GeocoderConfig) *Client {
	country := strings.TrimSpace(cfg.Country)
	if country == "" {
		country = "BR"
	}
	return &Client{
		enabled:       cfg.Enabled && strings.TrimSpace(cfg.GoogleAPIKey) != "",
		apiKey:        strings.TrimSpace(cfg.GoogleAPIKey),
		geocodeURL:    strings.TrimSpace(cfg.GoogleURL),
		postalCodeURL: strings.TrimRight(strings.TrimSpace(cfg.PostalCodeURL), "/"),
		country:       country,
		httpClient:    &http.Client{Timeout: cfg.Timeout()},
	}
}

// Enabled 是否可用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Geocode 三段式编码，全部失败时返回 (nil, nil)
func (c *Client) Geocode(ctx context.Context, address Address) (*Coordinate, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	log := logger.FromContext(ctx)

	if coord, err := c.structured(ctx, address); err != nil {
		log.Debugw("geocoder_structured_failed", "error", err)
	} else if coord != nil {
		return coord, nil
	}

	if coord, err := c.byPostalCode(ctx, address); err != nil {
		log.Debugw("geocoder_postal_code_failed", "postal_code", address.PostalCode, "error", err)
	} else if coord != nil {
		return coord, nil
	}

	number := strings.TrimSpace(address.Number)
	if number == "" || number == "0" {
		number = "1"
	}
	text := joinNonEmpty(", ", joinNonEmpty(", ", address.Street, number), address.Neighborhood, address.City, address.State, address.PostalCode, c.countryName())
	coord, err := c.freeText(ctx, text)
	if err != nil {
		log.Debugw("geocoder_free_text_failed", "error", err)
		return nil, nil
	}
	if coord != nil {
		coord.Source = "free_text"
	}
	return coord, nil
}

func (c *Client) structured(ctx context.Context, address Address) (*Coordinate, error) {
	street := strings.TrimSpace(address.Street)
	if street == "" {
		return nil, nil
	}
	components := []string{"country:" + c.country}
	if state := strings.TrimSpace(address.State); state != "" {
		components = append(components, "administrative_area:"+state)
	}
	if city := strings.TrimSpace(address.City); city != "" {
		components = append(components, "locality:"+city)
	}
	if cep := DigitsOnly(address.PostalCode); cep != "" {
		components = append(components, "postal_code:"+cep)
	}
	params := url.Values{}
	params.Set("address", joinNonEmpty(", ", street, address.Number))
	params.Set("components", strings.Join(components, "|"))
	coord, err := c.lookup(ctx, params)
	if coord != nil {
		coord.Source = "structured"
	}
	return coord, err
}

type postalCodeResponse struct {
	Street       string `json:"logradouro"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	State        string `json:"uf"`
	Error        any    `json:"erro"`
}

func (c *Client) byPostalCode(ctx context.Context, address Address) (*Coordinate, error) {
	cep := DigitsOnly(address.PostalCode)
	if len(cep) != 8 || c.postalCodeURL == "" {
		return nil, nil
	}
	var info postalCodeResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/json/", c.postalCodeURL, cep), &info); err != nil {
		return nil, err
	}
	if info.Error != nil && info.Error != false {
		return nil, nil
	}
	if !sameOrEmpty(address.City, info.City) || !sameOrEmpty(address.Neighborhood, info.Neighborhood) {
		return nil, nil
	}
	street := info.Street
	if strings.TrimSpace(street) == "" {
		street = address.Street
	}
	text := joinNonEmpty(", ", joinNonEmpty(", ", street, address.Number), info.Neighborhood, info.City, info.State, cep, c.countryName())
	coord, err := c.freeText(ctx, text)
	if coord != nil {
		coord.Source = "postal_code"
	}
	return coord, err
}

func (c *Client) freeText(ctx context.Context, text string) (*Coordinate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("address", text)
	return c.lookup(ctx, params)
}

type geocodeResponse struct {
	Status string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *Client) lookup(ctx context.Context, params url.Values) (*Coordinate, error) {
	params.Set("key", c.apiKey)
	var resp geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return nil, nil
	}
	location := resp.Results[0].Geometry.Location
	return &Coordinate{Latitude: location.Lat, Longitude: location.Lng}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrRequestFailed, err)
	}
	logger.FromContext(ctx).Debugw("geocoder_request_done", "latency_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Client) countryName() string {
	if strings.EqualFold(c.country, "BR") {
		return "Brasil"
	}
	return c.country
}

func sameOrEmpty(expected, actual string) bool {
	if strings.TrimSpace(expected) == "" || strings.TrimSpace(actual) == "" {
		return true
	}
	return Normalize(expected) == Normalize(actual)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, sep)
}
