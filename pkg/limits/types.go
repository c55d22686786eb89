package limits

import "time"

// Resource is a countable tenant resource type.
type Resource string

const (
	ResourceUsers   Resource = "users"
	ResourceClients Resource = "clients"
	ResourceJobs    Resource = "jobs"
	ResourceQuotes  Resource = "quotes"
	ResourceExports Resource = "exports"
)

// Unlimited is the sentinel limit value for a resource with no cap.
const Unlimited int64 = -1

// Window describes the counting period for a resource.
type Window string

const (
	// WindowTotal counts every live record the tenant owns.
	WindowTotal Window = "total"
	// WindowMonth counts records created in the current calendar
	// month, UTC.
	WindowMonth Window = "month"
)

// flow resources reset monthly; everything else accumulates.
var resourceWindows = map[Resource]Window{
	ResourceUsers:   WindowTotal,
	ResourceClients: WindowTotal,
	ResourceJobs:    WindowMonth,
	ResourceQuotes:  WindowMonth,
	ResourceExports: WindowMonth,
}

// CountingWindow returns the window used when counting the resource.
// Unknown resources count as total.
func (r Resource) CountingWindow() Window {
	if w, ok := resourceWindows[r]; ok {
		return w
	}
	return WindowTotal
}

// WindowStart returns the lower bound for counting: zero time for
// total resources, the start of the current UTC month for flow ones.
func (r Resource) WindowStart(now time.Time) time.Time {
	if r.CountingWindow() != WindowMonth {
		return time.Time{}
	}
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// UsageInfo reports current usage against the plan limit for one resource.
type UsageInfo struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}
