package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	InvoiceID   uint            `gorm:"not null;index" json:"invoice_id"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"size:500;not null" json:"description"`
	HSCode      string          `gorm:"size:8" json:"hs_code,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null" json:"quantity"`
	Unit        string          `gorm:"size:10;not null" json:"unit"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(30,2);not null" json:"line_total"` // always recomputed server-side
}

// TableName overrides the table name
func (LineItem) TableName() string {
	return "invoice_line_items"
}
