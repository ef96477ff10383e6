package schema

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// MaxStrategyNameLen bounds the strategy name carried on the wire.
const MaxStrategyNameLen = 32

// TradingSignal is a strategy's recommendation derived from one enriched tick.
// It is consumed exactly once by the order gateway.
type TradingSignal struct {
	SymbolID SymbolID
	Side     OrderSide
	Qty      Quantity
	Price    Price
	Strategy string
	// TickSeq is the sequence number of the tick that produced the signal.
	TickSeq  uint64
	TsSignal int64
}

// OrderStatus is the terminal status stamped by the gateway.
type OrderStatus uint16

const (
	OrderStatusUnknown OrderStatus = iota
	OrderStatusAcked
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusAcked:
		return "ACKED"
	case OrderStatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// RejectReason is a coarse reason code for rejected orders.
type RejectReason uint16

const (
	RejectReasonNone RejectReason = iota
	RejectReasonKillSwitch
	RejectReasonInvalidQty
	RejectReasonInvalidPrice
	RejectReasonMaxQty
	RejectReasonRateLimit
	RejectReasonPositionLimit
)

func (r RejectReason) String() string {
	switch r {
	case RejectReasonNone:
		return "none"
	case RejectReasonKillSwitch:
		return "kill_switch"
	case RejectReasonInvalidQty:
		return "invalid_qty"
	case RejectReasonInvalidPrice:
		return "invalid_price"
	case RejectReasonMaxQty:
		return "max_qty"
	case RejectReasonRateLimit:
		return "rate_limit"
	case RejectReasonPositionLimit:
		return "position_limit"
	default:
		return "unknown"
	}
}

// Order is a submitted signal with its gateway bookkeeping.
type Order struct {
	ID       uint64
	ClientID string
	SymbolID SymbolID
	Side     OrderSide
	Qty      Quantity
	Price    Price
	Strategy string
	TsSignal int64
	TsSubmit int64
	TsAck    int64
	Status   OrderStatus
	Reason   RejectReason
}

// OrderFromSignal copies the signal fields into a new order.
func OrderFromSignal(sig TradingSignal) Order {
	return Order{
		SymbolID: sig.SymbolID,
		Side:     sig.Side,
		Qty:      sig.Qty,
		Price:    sig.Price,
		Strategy: sig.Strategy,
		TsSignal: sig.TsSignal,
	}
}
