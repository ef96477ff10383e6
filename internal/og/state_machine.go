package og

import (
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// OrderState tracks where an order is in its life.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStateSubmitted
	OrderStateAcked
	OrderStateFilled
	OrderStateRejected
	OrderStateCanceled
)

func (s OrderState) String() string {
	switch s {
	case OrderStateSubmitted:
		return "SUBMITTED"
	case OrderStateAcked:
		return "ACKED"
	case OrderStateFilled:
		return "FILLED"
	case OrderStateRejected:
		return "REJECTED"
	case OrderStateCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

func (s OrderState) terminal() bool {
	switch s {
	case OrderStateFilled, OrderStateRejected, OrderStateCanceled:
		return true
	default:
		return false
	}
}

// StateMachine tracks in-flight orders. Terminal orders are forgotten so the
// table only ever holds what is still waiting for an ack.
type StateMachine struct {
	orders map[uint64]OrderState
}

// NewStateMachine creates an empty state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{orders: make(map[uint64]OrderState)}
}

// State returns the current state of an open order.
func (m *StateMachine) State(id uint64) (OrderState, bool) {
	s, ok := m.orders[id]
	return s, ok
}

// Open returns the number of orders not yet in a terminal state.
func (m *StateMachine) Open() int {
	return len(m.orders)
}

// Submit registers a new order.
func (m *StateMachine) Submit(id uint64) error {
	if id == 0 {
		return exception.ErrUnknownOrder
	}
	if _, ok := m.orders[id]; ok {
		return exception.ErrDuplicateOrder
	}
	m.orders[id] = OrderStateSubmitted
	return nil
}

// Ack moves a submitted order to acked or rejected.
func (m *StateMachine) Ack(id uint64, status schema.OrderStatus) (OrderState, error) {
	s, ok := m.orders[id]
	if !ok {
		return OrderStateUnknown, exception.ErrUnknownOrder
	}
	if s != OrderStateSubmitted {
		return s, exception.ErrInvalidTransition
	}
	next := OrderStateAcked
	if status == schema.OrderStatusRejected {
		next = OrderStateRejected
	}
	return m.set(id, next), nil
}

// Fill completes an acked order.
func (m *StateMachine) Fill(id uint64) (OrderState, error) {
	s, ok := m.orders[id]
	if !ok {
		return OrderStateUnknown, exception.ErrUnknownOrder
	}
	if s != OrderStateAcked {
		return s, exception.ErrInvalidTransition
	}
	return m.set(id, OrderStateFilled), nil
}

// Cancel abandons an order that has not reached a terminal state.
func (m *StateMachine) Cancel(id uint64) (OrderState, error) {
	if _, ok := m.orders[id]; !ok {
		return OrderStateUnknown, exception.ErrUnknownOrder
	}
	return m.set(id, OrderStateCanceled), nil
}

func (m *StateMachine) set(id uint64, s OrderState) OrderState {
	if s.terminal() {
		delete(m.orders, id)
	} else {
		m.orders[id] = s
	}
	return s
}
