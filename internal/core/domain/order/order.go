package order

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusDraft      Status = "draft"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type Line struct {
	ID        int64   `json:"id" msgpack:"id"`
	ProductID int64   `json:"product_id" msgpack:"product_id"`
	Quantity  float64 `json:"product_uom_qty" msgpack:"product_uom_qty"`
	PriceUnit float64 `json:"price_unit" msgpack:"price_unit"`
	Subtotal  float64 `json:"subtotal" msgpack:"subtotal"`
}

type Order struct {
	ID              int64     `json:"id" msgpack:"id"`
	Name            string    `json:"name" msgpack:"name"`
	UserID          string    `json:"user_id" msgpack:"user_id"`
	State           Status    `json:"state" msgpack:"state"`
	OrderDate       time.Time `json:"order_date" msgpack:"order_date"`
	ShippingAddress string    `json:"shipping_address" msgpack:"shipping_address"`
	PaymentMethod   string    `json:"payment_method,omitempty" msgpack:"payment_method"`
	TotalPrice      float64   `json:"total_price" msgpack:"total_price"`
	Lines           []Line    `json:"lines" msgpack:"lines"`
}

// StatusView is the lightweight status projection.
type StatusView struct {
	ID    int64  `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	State Status `json:"state" msgpack:"state"`
}

// DisplayName formats the order reference as ORD/YYYYMM/NNN.
func DisplayName(id int64, at time.Time) string {
	return fmt.Sprintf("ORD/%s/%03d", at.Format("200601"), id)
}

type LineInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"product_uom_qty" validate:"gt=0"`
	PriceUnit float64 `json:"price_unit" validate:"gte=0"`
}

// CreateRequest is the body for order create and draft update.
type CreateRequest struct {
	ShippingAddress string      `json:"shipping_address" validate:"required"`
	PaymentMethod   string      `json:"payment_method"`
	Lines           []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// Total sums line subtotals.
func (r *CreateRequest) Total() float64 {
	total := 0.0
	for _, l := range r.Lines {
		total += l.PriceUnit * l.Quantity
	}
	return total
}
