package model

// PaymentStatus represents the payment state of a registration.
type PaymentStatus string

const (
	PaymentStatusFree    PaymentStatus = "free"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)
