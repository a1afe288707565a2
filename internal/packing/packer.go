package packing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Item 待装载的配送单
type Item struct {
	ID       uint
	WeightKG decimal.Decimal
	VolumeM3 decimal.Decimal
}

func (i Item) size() decimal.Decimal {
	return i.WeightKG.Add(i.VolumeM3)
}

// Bin 车辆容量
type Bin struct {
	ID          uint
	MaxWeightKG decimal.Decimal
	MaxVolumeM3 decimal.Decimal
}

func (b Bin) size() decimal.Decimal {
	return b.MaxWeightKG.Add(b.MaxVolumeM3)
}

// Remaining 车辆剩余容量
type Remaining struct {
	WeightKG decimal.Decimal
	VolumeM3 decimal.Decimal
}

func (r Remaining) fits(item Item) bool {
	return item.WeightKG.LessThanOrEqual(r.WeightKG) && item.VolumeM3.LessThanOrEqual(r.VolumeM3)
}

// Result 装箱结果
type Result struct {
	Bins       []Bin           // 按装载顺序排列的车辆
	Loads      map[uint][]Item // 车辆 ID -> 按放入顺序的配送单
	Unassigned []Item          // 无法放入任何车辆的配送单
	remaining  map[uint]Remaining
}

// Remaining 查询车辆剩余容量
func (r Result) Remaining(binID uint) Remaining {
	if rem, ok := r.remaining[binID]; ok {
		return rem
	}
	return Remaining{WeightKG: decimal.Zero, VolumeM3: decimal.Zero}
}

// LoadedBins 有装载的车辆，保持装载顺序
func (r Result) LoadedBins() []Bin {
	loaded := make([]Bin, 0, len(r.Bins))
	for _, bin := range r.Bins {
		if len(r.Loads[bin.ID]) > 0 {
			loaded = append(loaded, bin)
		}
	}
	return loaded
}

// Pack 首次适应递减：配送单按重量+体积降序，车辆按容量降序，
// 放入第一辆重量与体积都能容纳的车辆，否则记为未分配。
func Pack(items []Item, bins []Bin) Result {
	result := Result{
		Bins:      sortBins(bins),
		Loads:     make(map[uint][]Item, len(bins)),
		remaining: make(map[uint]Remaining, len(bins)),
	}
	for _, bin := range result.Bins {
		result.remaining[bin.ID] = Remaining{
			WeightKG: nonNegative(bin.MaxWeightKG),
			VolumeM3: nonNegative(bin.MaxVolumeM3),
		}
	}
	result.place(sortItems(items))
	return result
}

// Backfill 第二轮：把上一轮未分配的配送单放入任意车辆的剩余容量
func Backfill(prior Result, items []Item, bins []Bin) Result {
	result := Result{
		Bins:      sortBins(bins),
		Loads:     make(map[uint][]Item, len(bins)),
		remaining: make(map[uint]Remaining, len(bins)),
	}
	for _, bin := range result.Bins {
		if rem, ok := prior.remaining[bin.ID]; ok {
			result.remaining[bin.ID] = rem
			continue
		}
		result.remaining[bin.ID] = Remaining{
			WeightKG: nonNegative(bin.MaxWeightKG),
			VolumeM3: nonNegative(bin.MaxVolumeM3),
		}
	}
	result.place(sortItems(items))
	return result
}

func (r *Result) place(items []Item) {
	for _, item := range items {
		placed := false
		for _, bin := range r.Bins {
			rem := r.remaining[bin.ID]
			if !rem.fits(item) {
				continue
			}
			r.Loads[bin.ID] = append(r.Loads[bin.ID], item)
			r.remaining[bin.ID] = Remaining{
				WeightKG: rem.WeightKG.Sub(item.WeightKG),
				VolumeM3: rem.VolumeM3.Sub(item.VolumeM3),
			}
			placed = true
			break
		}
		if !placed {
			r.Unassigned = append(r.Unassigned, item)
		}
	}
}

// Merge 合并两轮结果：second 的装载追加到 first 之后，未分配列表以 second 为准
func Merge(first, second Result) Result {
	merged := Result{
		Bins:       append([]Bin{}, first.Bins...),
		Loads:      make(map[uint][]Item, len(first.Loads)+len(second.Loads)),
		Unassigned: append([]Item{}, second.Unassigned...),
		remaining:  make(map[uint]Remaining, len(first.remaining)+len(second.remaining)),
	}
	known := make(map[uint]bool, len(first.Bins))
	for _, bin := range first.Bins {
		known[bin.ID] = true
	}
	for _, bin := range second.Bins {
		if !known[bin.ID] {
			merged.Bins = append(merged.Bins, bin)
			known[bin.ID] = true
		}
	}
	for id, items := range first.Loads {
		merged.Loads[id] = append(merged.Loads[id], items...)
	}
	for id, items := range second.Loads {
		merged.Loads[id] = append(merged.Loads[id], items...)
	}
	for id, rem := range first.remaining {
		merged.remaining[id] = rem
	}
	for id, rem := range second.remaining {
		merged.remaining[id] = rem
	}
	return merged
}

func sortItems(items []Item) []Item {
	sorted := make([]Item, len(items))
	for i, item := range items {
		sorted[i] = Item{ID: item.ID, WeightKG: nonNegative(item.WeightKG), VolumeM3: nonNegative(item.VolumeM3)}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if cmp := sorted[i].size().Cmp(sorted[j].size()); cmp != 0 {
			return cmp > 0
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func sortBins(bins []Bin) []Bin {
	sorted := make([]Bin, len(bins))
	copy(sorted, bins)
	sort.SliceStable(sorted, func(i, j int) bool {
		if cmp := sorted[i].size().Cmp(sorted[j].size()); cmp != 0 {
			return cmp > 0
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func nonNegative(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
