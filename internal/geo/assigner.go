package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Point 待分配的配送点
type Point struct {
	DeliveryID uint
	Latitude   float64
	Longitude  float64
}

// OrbPoint 转换为 [lon, lat]
func (p Point) OrbPoint() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// Assignment 单个配送点的分配结果
type Assignment struct {
	DeliveryID uint
	AreaID     uint
	Fallback   bool // 不在任何多边形内，按最近距离分配
	Distance   float64
}

// Bucket 同一区域的配送点，保持输入顺序
type Bucket struct {
	Area   Area
	Points []Point
}

// Result 分配结果，Buckets 与区域顺序一致
type Result struct {
	Buckets     []Bucket
	Assignments []Assignment
}

// Bucket 按区域 ID 取分桶
func (r Result) Bucket(areaID uint) (Bucket, bool) {
	for _, bucket := range r.Buckets {
		if bucket.Area.ID == areaID {
			return bucket, true
		}
	}
	return Bucket{}, false
}

// FallbackCount 按最近距离分配的数量
func (r Result) FallbackCount() int {
	count := 0
	for _, assignment := range r.Assignments {
		if assignment.Fallback {
			count++
		}
	}
	return count
}

// Assign 为每个配送点选择区域：
// 先取第一个包含该点的区域，否则取平面距离最小的区域，距离相同取靠前者。
func Assign(points []Point, areas []Area) (Result, error) {
	if len(areas) == 0 {
		return Result{}, ErrNoValidAreas
	}
	result := Result{
		Buckets:     make([]Bucket, len(areas)),
		Assignments: make([]Assignment, 0, len(points)),
	}
	for i, area := range areas {
		result.Buckets[i] = Bucket{Area: area}
	}

	for _, point := range points {
		index, assignment := assignOne(point, areas)
		result.Buckets[index].Points = append(result.Buckets[index].Points, point)
		result.Assignments = append(result.Assignments, assignment)
	}
	return result, nil
}

func assignOne(point Point, areas []Area) (int, Assignment) {
	p := point.OrbPoint()
	for i, area := range areas {
		if area.Contains(p) {
			return i, Assignment{DeliveryID: point.DeliveryID, AreaID: area.ID}
		}
	}

	best := 0
	bestDistance := math.Inf(1)
	for i, area := range areas {
		distance := area.DistanceTo(p)
		if distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	return best, Assignment{
		DeliveryID: point.DeliveryID,
		AreaID:     areas[best].ID,
		Fallback:   true,
		Distance:   bestDistance,
	}
}
