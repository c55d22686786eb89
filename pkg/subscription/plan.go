package subscription

// Plan describes a subscription plan's billing shape. Resource quotas
// live in the limits package; this catalog only carries what the
// billing path needs.
type Plan struct {
	ID       PlanID
	Name     string
	Interval BillingInterval
}

// Catalog is the closed set of plans. BASIC is the entry-level plan
// (no expiry means perpetual trial), ELITE the top tier (always active
// unless deleted or canceled).
var Catalog = map[PlanID]Plan{
	PlanBasic: {ID: PlanBasic, Name: "Basic", Interval: BillingIntervalMonthly},
	PlanPro:   {ID: PlanPro, Name: "Pro", Interval: BillingIntervalMonthly},
	PlanElite: {ID: PlanElite, Name: "Elite", Interval: BillingIntervalMonthly},
}

// LookupPlan returns the catalog entry for p.
func LookupPlan(p PlanID) (Plan, error) {
	plan, ok := Catalog[p]
	if !ok {
		return Plan{}, ErrInvalidPlan
	}
	return plan, nil
}
