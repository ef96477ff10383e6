package journal

import (
	"context"
	"time"

	"tickpipe/internal/schema"
)

// Journal persists placed orders off the hot path.
type Journal interface {
	Record(o schema.Order)
	Close() error
}

// Store writes batches of records.
type Store interface {
	Insert(ctx context.Context, records []OrderRecord) error
}

// OrderRecord is one journaled order.
type OrderRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement:false"`
	ClientID  string `gorm:"size:20;uniqueIndex"`
	Symbol    string `gorm:"size:16;index"`
	Side      string `gorm:"size:8"`
	Qty       string `gorm:"size:40"`
	Price     string `gorm:"size:40"`
	Strategy  string `gorm:"size:32"`
	Status    string `gorm:"size:16"`
	Reason    string `gorm:"size:32"`
	TsSignal  int64
	TsSubmit  int64
	TsAck     int64
	LatencyNs int64
	CreatedAt time.Time
}

// NewOrderRecord renders o with the symbol's scales.
func NewOrderRecord(o schema.Order, reg *schema.Registry) OrderRecord {
	rec := OrderRecord{
		ID:        o.ID,
		ClientID:  o.ClientID,
		Symbol:    reg.Name(o.SymbolID),
		Side:      o.Side.String(),
		Strategy:  o.Strategy,
		Status:    o.Status.String(),
		Reason:    o.Reason.String(),
		TsSignal:  o.TsSignal,
		TsSubmit:  o.TsSubmit,
		TsAck:     o.TsAck,
		LatencyNs: o.TsAck - o.TsSignal,
	}
	if spec, ok := reg.Symbol(o.SymbolID); ok {
		rec.Qty = o.Qty.Decimal(spec.QtyScale).String()
		rec.Price = o.Price.Decimal(spec.PriceScale).String()
	}
	return rec
}
