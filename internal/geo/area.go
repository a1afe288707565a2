package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrInvalidPolygon 区域 GeoJSON 缺失或不是多边形
	ErrInvalidPolygon = errors.New("area polygon invalid")
	// ErrNoValidAreas 没有可用区域
	ErrNoValidAreas = errors.New("no valid areas")
)

// Area 已解析的区域多边形
type Area struct {
	ID      uint
	Name    string
	Polygon orb.MultiPolygon
}

// ParseArea 解析 Polygon / MultiPolygon / Feature / FeatureCollection
func ParseArea(id uint, name string, raw string) (Area, error) {
	area := Area{ID: id, Name: name}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return area, fmt.Errorf("%w: empty geojson", ErrInvalidPolygon)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(trimmed), &head); err != nil {
		return area, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
	}

	var geometries []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection([]byte(trimmed))
		if err != nil {
			return area, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
		}
		for _, feature := range fc.Features {
			if feature != nil {
				geometries = append(geometries, feature.Geometry)
			}
		}
	case "Feature":
		feature, err := geojson.UnmarshalFeature([]byte(trimmed))
		if err != nil {
			return area, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
		}
		geometries = append(geometries, feature.Geometry)
	default:
		geometry, err := geojson.UnmarshalGeometry([]byte(trimmed))
		if err != nil {
			return area, fmt.Errorf("%w: %v", ErrInvalidPolygon, err)
		}
		geometries = append(geometries, geometry.Geometry())
	}

	for _, geometry := range geometries {
		switch g := geometry.(type) {
		case orb.Polygon:
			if validPolygon(g) {
				area.Polygon = append(area.Polygon, g)
			}
		case orb.MultiPolygon:
			for _, polygon := range g {
				if validPolygon(polygon) {
					area.Polygon = append(area.Polygon, polygon)
				}
			}
		}
	}
	if len(area.Polygon) == 0 {
		return area, fmt.Errorf("%w: no polygon rings", ErrInvalidPolygon)
	}
	return area, nil
}

// Contains 点是否落在区域内
func (a Area) Contains(point orb.Point) bool {
	return planar.MultiPolygonContains(a.Polygon, point)
}

// DistanceTo 点到区域边界的平面距离（经纬度单位）
func (a Area) DistanceTo(point orb.Point) float64 {
	return planar.DistanceFrom(a.Polygon, point)
}

// Centroid 区域质心
func (a Area) Centroid() orb.Point {
	centroid, _ := planar.CentroidArea(a.Polygon)
	return centroid
}

func validPolygon(polygon orb.Polygon) bool {
	return len(polygon) > 0 && len(polygon[0]) >= 4
}
