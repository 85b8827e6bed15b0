package usecase

import (
	"fmt"

	"lineops/internal/domain"
)

// Thresholds configure the quota guard. Sending is skipped once
// consumed/allowance reaches StopPercent (0.95 = 95%) or the remaining
// allowance is at or below MinRemain.
type Thresholds struct {
	StopPercent float64
	MinRemain   int64
}

func DefaultThresholds() Thresholds {
	return Thresholds{StopPercent: 0.95, MinRemain: 0}
}

// QuotaDecision is the outcome of EvaluateQuota.
type QuotaDecision struct {
	Skip     bool
	Reasons  []string
	Snapshot domain.QuotaSnapshot
}

// EvaluateQuota decides whether a send costing expectedCost messages should be
// skipped. Plans that are not limited, or limited plans without an allowance,
// are never skipped. All triggered conditions are reported.
func EvaluateQuota(q domain.QuotaSnapshot, expectedCost int64, th Thresholds) QuotaDecision {
	d := QuotaDecision{Snapshot: q}
	if !q.Metered() {
		return d
	}

	remain := q.Remaining()
	ratio := q.Ratio()
	if ratio >= th.StopPercent {
		d.Reasons = append(d.Reasons, fmt.Sprintf("usage ratio %.1f%% >= threshold %.0f%%", ratio*100, th.StopPercent*100))
	}
	if remain <= th.MinRemain {
		d.Reasons = append(d.Reasons, fmt.Sprintf("remaining %d <= reserve %d", remain, th.MinRemain))
	}
	if expectedCost > 0 && expectedCost > remain {
		d.Reasons = append(d.Reasons, fmt.Sprintf("expected cost %d > remaining %d", expectedCost, remain))
	}
	d.Skip = len(d.Reasons) > 0
	return d
}
