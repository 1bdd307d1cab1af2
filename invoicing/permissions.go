package invoicing

import "github.com/yourusername/trade-invoices/models"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFinance Role = "finance"
	RoleViewer  Role = "viewer"
)

type Capability string

const (
	CapabilityView      Capability = "view"
	CapabilityCreate    Capability = "create"
	CapabilityEdit      Capability = "edit"
	CapabilityIssue     Capability = "issue"
	CapabilityCancel    Capability = "cancel"
	CapabilityReconcile Capability = "reconcile"
)

// capabilities is the only place that decides what a role may do. Issue and
// cancel are the elevated capabilities.
var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapabilityView:      true,
		CapabilityCreate:    true,
		CapabilityEdit:      true,
		CapabilityIssue:     true,
		CapabilityCancel:    true,
		CapabilityReconcile: true,
	},
	RoleFinance: {
		CapabilityView:   true,
		CapabilityCreate: true,
		CapabilityEdit:   true,
	},
	RoleViewer: {
		CapabilityView: true,
	},
}

// RoleHas reports whether role carries capability. Unknown roles carry none.
func RoleHas(role Role, capability Capability) bool {
	return capabilities[role][capability]
}

// Roles returns the roles known to the capability table.
func Roles() []Role {
	return []Role{RoleAdmin, RoleFinance, RoleViewer}
}

// The gates below are advisory: they decide which actions are offered. The
// API repeats them before every write.

func CanCreateInvoice(role Role) bool {
	return RoleHas(role, CapabilityCreate)
}

func CanEditInvoice(role Role, inv *models.Invoice) bool {
	return inv != nil && RoleHas(role, CapabilityEdit) && inv.Status == models.InvoiceStatusDraft
}

func CanIssueInvoice(role Role, inv *models.Invoice) bool {
	return inv != nil && RoleHas(role, CapabilityIssue) && inv.Status == models.InvoiceStatusDraft
}

func CanCancelInvoice(role Role, inv *models.Invoice) bool {
	return inv != nil && RoleHas(role, CapabilityCancel) && inv.Status == models.InvoiceStatusDraft
}
