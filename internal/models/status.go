package models

// TenantStatus tracks where a tenant inquiry sits in the rental workflow.
type TenantStatus string

const (
	StatusProspect             TenantStatus = "prospect"
	StatusQualified            TenantStatus = "qualified"
	StatusViewingScheduled     TenantStatus = "viewing_scheduled"
	StatusApplicationSubmitted TenantStatus = "application_submitted"
	StatusApproved             TenantStatus = "approved"
	StatusActiveTenant         TenantStatus = "active_tenant"
	StatusFormerTenant         TenantStatus = "former_tenant"
	StatusRejected             TenantStatus = "rejected"
	StatusWithdrawn            TenantStatus = "withdrawn"
)

// AllStatuses returns every valid status value in workflow order.
func AllStatuses() []TenantStatus {
	return []TenantStatus{
		StatusProspect,
		StatusQualified,
		StatusViewingScheduled,
		StatusApplicationSubmitted,
		StatusApproved,
		StatusActiveTenant,
		StatusFormerTenant,
		StatusRejected,
		StatusWithdrawn,
	}
}

// IsValid reports whether s is a known status value.
func (s TenantStatus) IsValid() bool {
	for _, v := range AllStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// DisplayName returns a human-readable name for dashboards and notifications.
func (s TenantStatus) DisplayName() string {
	switch s {
	case StatusProspect:
		return "Prospect"
	case StatusQualified:
		return "Qualified"
	case StatusViewingScheduled:
		return "Viewing Scheduled"
	case StatusApplicationSubmitted:
		return "Application Submitted"
	case StatusApproved:
		return "Approved"
	case StatusActiveTenant:
		return "Active Tenant"
	case StatusFormerTenant:
		return "Former Tenant"
	case StatusRejected:
		return "Rejected"
	case StatusWithdrawn:
		return "Withdrawn"
	}
	return string(s)
}
