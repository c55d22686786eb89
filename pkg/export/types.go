package export

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a data export.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the artifact must not be generated again.
// Failed exports stay non-terminal so queue retries can finish them.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// DataExport is one tenant data export request and its artifact. The
// artifact lives in object storage under Key; URL is what gets handed
// to the tenant. After ExpiresAt the retention job deletes the artifact
// and flips the record to expired.
type DataExport struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	RequestedBy uuid.UUID  `json:"requested_by"`
	Status      Status     `json:"status"`
	Key         string     `json:"key,omitempty"`
	URL         string     `json:"url,omitempty"`
	Size        int64      `json:"size,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ArtifactKey builds the storage key for an export artifact.
func ArtifactKey(tenantID, exportID uuid.UUID) string {
	return "exports/" + tenantID.String() + "/" + exportID.String() + ".zip"
}
