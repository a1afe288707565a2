package geo

import (
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// OrderByProximity 按区域质心到起点的球面距离升序排列，距离相同保持原顺序
func OrderByProximity(areas []Area, origin orb.Point) []Area {
	ordered := make([]Area, len(areas))
	copy(ordered, areas)
	distances := make(map[uint]float64, len(ordered))
	for _, area := range ordered {
		distances[area.ID] = orbgeo.Distance(origin, area.Centroid())
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return distances[ordered[i].ID] < distances[ordered[j].ID]
	})
	return ordered
}
