package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tms-next/internal/constants"

	"github.com/shopspring/decimal"
)

// cascadeRule 编排状态变更时同步到配送单与装载计划的状态
type cascadeRule struct {
	DeliveryStatus string
	LoadPlanStatus string
}

var compositionCascade = map[string]cascadeRule{
	constants.CompositionStatusDraft:           {constants.DeliveryStatusInScript, constants.LoadPlanStatusDraft},
	constants.CompositionStatusPlanned:         {constants.DeliveryStatusInLoad, constants.LoadPlanStatusRouteStarted},
	constants.CompositionStatusAwaitingLoading: {constants.DeliveryStatusInLoad, constants.LoadPlanStatusAwaitingLoading},
	constants.CompositionStatusLoading:         {constants.DeliveryStatusLoaded, constants.LoadPlanStatusLoading},
	constants.CompositionStatusInTransit:       {constants.DeliveryStatusInTransit, constants.LoadPlanStatusInTransit},
	constants.CompositionStatusCompleted:       {constants.DeliveryStatusDelivered, constants.LoadPlanStatusCompleted},
	constants.CompositionStatusCancelled:       {constants.DeliveryStatusPending, constants.LoadPlanStatusCancelled},
}

// 正向推进顺序，允许跳级，不允许回退
var compositionStatusRank = map[string]int{
	constants.CompositionStatusDraft:           0,
	constants.CompositionStatusPlanned:         1,
	constants.CompositionStatusAwaitingLoading: 2,
	constants.CompositionStatusLoading:         3,
	constants.CompositionStatusInTransit:       4,
	constants.CompositionStatusCompleted:       5,
}

func isTerminalComposition(status string) bool {
	return status == constants.CompositionStatusCompleted || status == constants.CompositionStatusCancelled
}

// checkCompositionTransition 校验状态变更，相同状态返回 noop
func checkCompositionTransition(from, to string) (bool, error) {
	if _, ok := compositionCascade[to]; !ok {
		return false, fmt.Errorf("%w: unknown status %q", ErrCompositionTransitionInvalid, to)
	}
	if from == to {
		return true, nil
	}
	if isTerminalComposition(from) {
		return false, ErrCompositionTerminal
	}
	if to == constants.CompositionStatusCancelled {
		return false, nil
	}
	fromRank, ok := compositionStatusRank[from]
	if !ok {
		return false, fmt.Errorf("%w: unknown status %q", ErrCompositionTransitionInvalid, from)
	}
	if compositionStatusRank[to] < fromRank {
		return false, fmt.Errorf("%w: %s -> %s", ErrCompositionTransitionInvalid, from, to)
	}
	return false, nil
}

// FormatDuration 分钟转为 "1h 2m 3s"，零值部分省略
func FormatDuration(minutes decimal.Decimal) string {
	if !minutes.IsPositive() {
		return "Sem dados"
	}
	total := minutes.Mul(decimal.NewFromInt(60)).IntPart()
	hours, remainder := total/3600, total%3600
	mins, seconds := remainder/60, remainder%60
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	if len(parts) == 0 {
		return "Sem dados"
	}
	return strings.Join(parts, " ")
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

func sortedIDs(set map[uint]bool) []uint {
	ids := make([]uint, 0, len(set))
	for id, ok := range set {
		if ok && id != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
