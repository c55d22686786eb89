package subscription

import "time"

// Status is the derived access state of a tenant. Exactly one value holds
// at any instant; it is recomputed from raw tenant fields, never edited
// directly.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusSuspended Status = "suspended"
	StatusCanceled  Status = "canceled"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is one of the closed set of statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTrial, StatusActive, StatusPastDue, StatusSuspended, StatusCanceled, StatusDeleted:
		return true
	}
	return false
}

// Eligible reports whether the status permits creating new billable resources.
// PAST_DUE tenants keep access during the grace window.
func (s Status) Eligible() bool {
	switch s {
	case StatusTrial, StatusActive, StatusPastDue:
		return true
	}
	return false
}

// PlanID identifies one of the closed set of subscription plans.
type PlanID string

const (
	PlanBasic PlanID = "basic"
	PlanPro   PlanID = "pro"
	PlanElite PlanID = "elite"
)

// Valid reports whether p names a known plan.
func (p PlanID) Valid() bool {
	switch p {
	case PlanBasic, PlanPro, PlanElite:
		return true
	}
	return false
}

// BillingInterval represents the billing frequency for a plan.
type BillingInterval string

const (
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)

// Period returns the duration added to a tenant's expiry when a payment
// for one billing period succeeds, anchored at from.
func (i BillingInterval) Period(from time.Time) time.Time {
	if i == BillingIntervalAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
