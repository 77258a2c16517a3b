package models

import "fmt"

// OrderStatus is the lifecycle state of a sticker order
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusPrinted        OrderStatus = "printed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// AllOrderStatuses lists every order status in lifecycle order
var AllOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusPrinted,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// orderTransitions maps each status to the statuses it may move to.
// pending_payment -> paid/cancelled are driven by payment events;
// everything else is driven by the printer.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusProcessing, OrderStatusPrinted},
	OrderStatusProcessing:     {OrderStatusPrinted},
	OrderStatusPrinted:        {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusDelivered},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

// PrinterSettableStatuses are the targets a printer token may request
var PrinterSettableStatuses = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusPrinted,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// IsValid reports whether s is a known order status
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(orderTransitions[s]) == 0
}

// IsPrinterSettable reports whether the printer may request s
func (s OrderStatus) IsPrinterSettable() bool {
	for _, status := range PrinterSettableStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the table allows moving from s to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AtLeast reports whether s is at or past other in the fulfillment sequence.
// cancelled is outside the sequence and only compares equal to itself.
func (s OrderStatus) AtLeast(other OrderStatus) bool {
	if s == OrderStatusCancelled || other == OrderStatusCancelled {
		return s == other
	}
	return orderRank(s) >= orderRank(other)
}

func orderRank(s OrderStatus) int {
	for i, status := range AllOrderStatuses {
		if status == s {
			return i
		}
	}
	return -1
}

// TransitionError is returned when a status change is not in the transition table
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from %s to %s", e.From, e.To)
}

// ValidateTransition returns a *TransitionError when from -> to is not allowed
func ValidateTransition(from, to OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: string(from), To: string(to)}
	}
	return nil
}
