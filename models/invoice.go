package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusIssued        InvoiceStatus = "ISSUED"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusSettled       InvoiceStatus = "SETTLED"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// InvoiceStatuses lists every lifecycle state in display order.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusIssued,
	InvoiceStatusPartiallyPaid,
	InvoiceStatusSettled,
	InvoiceStatusCancelled,
}

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	for _, known := range InvoiceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Invoice struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	DeletedAt         gorm.DeletedAt      `gorm:"index" json:"-"`
	TradeID           string              `gorm:"size:64;not null;index" json:"trade_id"`
	PartyID           string              `gorm:"size:64;index" json:"party_id"`
	InvoiceNumber     string              `gorm:"uniqueIndex;size:50;not null" json:"invoice_number"`
	InvoiceDate       time.Time           `gorm:"not null" json:"invoice_date"`
	DueDate           time.Time           `gorm:"not null" json:"due_date"`
	Currency          string              `gorm:"size:10;not null;index" json:"currency"`
	LineItems         []LineItem          `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`
	Subtotal          decimal.Decimal     `gorm:"type:decimal(30,2);not null" json:"subtotal"`
	InvoiceAmount     decimal.Decimal     `gorm:"type:decimal(30,2);not null" json:"invoice_amount"` // equals subtotal until tax/discount exist
	OutstandingAmount decimal.Decimal     `gorm:"type:decimal(30,2);not null" json:"outstanding_amount"`
	PaidAmount        decimal.Decimal     `gorm:"type:decimal(30,2);not null" json:"paid_amount"`
	Status            InvoiceStatus       `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`
	ExposureID        *string             `gorm:"size:36" json:"exposure_id,omitempty"`
	ExposedAmount     decimal.NullDecimal `gorm:"type:decimal(30,2)" json:"exposed_amount"`
	HedgedAmount      decimal.NullDecimal `gorm:"type:decimal(30,2)" json:"hedged_amount"`
	UnhedgedAmount    decimal.NullDecimal `gorm:"type:decimal(30,2)" json:"unhedged_amount"`
	CreatedBy         string              `gorm:"size:64" json:"created_by"`
	IssuedBy          string              `gorm:"size:64" json:"issued_by,omitempty"`
	IssuedAt          *time.Time          `json:"issued_at,omitempty"`
	CancelledBy       string              `gorm:"size:64" json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason      string              `gorm:"size:500" json:"cancel_reason,omitempty"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}
