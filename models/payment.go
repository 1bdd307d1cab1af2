package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoicePayment is a payment observed against an issued invoice. Reference is
// the settlement rail's identifier (a transaction hash for Stellar payments)
// and is unique so replays are ignored.
type InvoicePayment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
	InvoiceID  uint            `gorm:"not null;index" json:"invoice_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(30,2);not null" json:"amount"`
	Currency   string          `gorm:"size:10;not null" json:"currency"`
	Reference  string          `gorm:"uniqueIndex;size:255;not null" json:"reference"`
	Source     string          `gorm:"size:20;default:'manual'" json:"source"` // manual, stellar
	ReceivedAt time.Time       `gorm:"not null" json:"received_at"`
	RecordedBy string          `gorm:"size:64" json:"recorded_by"`
	Notes      string          `gorm:"type:text" json:"notes"`
}

// TableName overrides the table name
func (InvoicePayment) TableName() string {
	return "invoice_payments"
}

// Exposure is the forex exposure opened when an invoice is issued. Hedge
// bookings are owned by the hedging desk; this service only reads them.
type Exposure struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	InvoiceID     uint            `gorm:"uniqueIndex;not null" json:"invoice_id"`
	TradeID       string          `gorm:"size:64;not null" json:"trade_id"`
	Currency      string          `gorm:"size:10;not null" json:"currency"`
	ExposedAmount decimal.Decimal `gorm:"type:decimal(30,2);not null" json:"exposed_amount"`
	HedgedAmount  decimal.Decimal `gorm:"type:decimal(30,2);not null" json:"hedged_amount"`
}

// TableName overrides the table name
func (Exposure) TableName() string {
	return "exposures"
}
