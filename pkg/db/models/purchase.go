package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is an immutable record of one completed checkout. Sequence numbers purchases per
// session starting at 1.
type Purchase struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SessionID   string          `gorm:"column:session_id;not null;uniqueIndex:idx_purchases_session_sequence,priority:1"`
	Sequence    int             `gorm:"column:sequence;not null;uniqueIndex:idx_purchases_session_sequence,priority:2"`
	Total       decimal.Decimal `gorm:"column:total;type:numeric;not null"`
	ItemCount   int             `gorm:"column:item_count;not null"`
	PurchasedAt time.Time       `gorm:"column:purchased_at;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	Lines       []PurchaseLine  `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
}

// PurchaseLine captures the product snapshot and quantity of a line at checkout.
type PurchaseLine struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;index"`
	Position   int             `gorm:"column:position;not null"`
	Name       string          `gorm:"column:name;not null"`
	Category   string          `gorm:"column:category;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric;not null"`
	Rating     float64         `gorm:"column:rating;not null;default:0"`
	Quantity   int             `gorm:"column:quantity;not null"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric;not null"`
}

// LedgerModels lists the tables the purchase ledger owns, in migration order.
func LedgerModels() []any {
	return []any{&Purchase{}, &PurchaseLine{}}
}
