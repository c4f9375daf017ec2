package domain

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	// PENDING - order created, awaiting payment
	OrderStatusPending OrderStatus = "pending"
	// CONFIRMED - payment authorized (card) or accepted for manual collection (COD/bank transfer)
	OrderStatusConfirmed OrderStatus = "confirmed"
	// PROCESSING - order is being prepared for shipment
	OrderStatusProcessing OrderStatus = "processing"
	// SHIPPED - order handed to the carrier; shipped_at set
	OrderStatusShipped OrderStatus = "shipped"
	// DELIVERED - order received by the customer; delivered_at set
	OrderStatusDelivered OrderStatus = "delivered"
	// CANCELLED - order cancelled before shipment
	OrderStatusCancelled OrderStatus = "cancelled"
	// REFUNDED - order fully refunded
	OrderStatusRefunded OrderStatus = "refunded"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusConfirmed ||
			newStatus == OrderStatusCancelled
	case OrderStatusConfirmed:
		return newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusRefunded
	case OrderStatusProcessing:
		return newStatus == OrderStatusShipped ||
			newStatus == OrderStatusCancelled ||
			newStatus == OrderStatusRefunded
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered ||
			newStatus == OrderStatusRefunded
	case OrderStatusDelivered:
		return newStatus == OrderStatusRefunded
	case OrderStatusCancelled, OrderStatusRefunded:
		return false // Terminal states
	default:
		return false
	}
}

// CanBeCancelled reports whether the order may still be cancelled.
// Cancellation is allowed any time before shipment.
func (s OrderStatus) CanBeCancelled() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	default:
		return false
	}
}

// PaymentStatus represents the state of a single payment attempt
type PaymentStatus string

const (
	// PENDING - payment created, awaiting gateway result or manual confirmation
	PaymentStatusPending PaymentStatus = "pending"
	// COMPLETED - funds authorized and captured
	PaymentStatusCompleted PaymentStatus = "completed"
	// FAILED - gateway declined or errored; the order can be retried with a new payment
	PaymentStatusFailed PaymentStatus = "failed"
	// REFUNDED - negative-amount ledger entry recording a refund
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// PaymentMethod is how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCashOnDelivery, PaymentMethodBankTransfer:
		return true
	default:
		return false
	}
}

// RequiresGateway reports whether the method is charged through the payment gateway.
// COD and bank transfer are confirmed manually by staff.
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentMethodCard
}

// DiscountType is how a discount code reduces the order total
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// IsValid checks if the discount type is valid
func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}
