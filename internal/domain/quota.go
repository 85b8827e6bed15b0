package domain

// PlanKind is the monthly message plan type reported by the quota endpoint.
type PlanKind string

const (
	PlanLimited   PlanKind = "limited"
	PlanUnlimited PlanKind = "unlimited"
	PlanNone      PlanKind = "none"
)

// QuotaSnapshot is the plan and usage state for the current month. Allowance is
// only meaningful for PlanLimited.
type QuotaSnapshot struct {
	Kind      PlanKind
	Allowance int64
	Consumed  int64
}

// Metered reports whether the snapshot carries a usable allowance.
func (q QuotaSnapshot) Metered() bool {
	return q.Kind == PlanLimited && q.Allowance > 0
}

// Remaining is allowance minus consumed. It can be negative when the plan was
// overdrawn.
func (q QuotaSnapshot) Remaining() int64 {
	return q.Allowance - q.Consumed
}

// Ratio is consumed/allowance, or 0 for unmetered plans.
func (q QuotaSnapshot) Ratio() float64 {
	if q.Allowance <= 0 {
		return 0
	}
	return float64(q.Consumed) / float64(q.Allowance)
}
