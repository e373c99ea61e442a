package cart

import "time"

type Item struct {
	ID        int64   `json:"id" msgpack:"id"`
	ProductID int64   `json:"product_id" msgpack:"product_id"`
	Quantity  int     `json:"quantity" msgpack:"quantity"`
	PriceUnit float64 `json:"price_unit" msgpack:"price_unit"`
}

// Cart is the basket of one user.
type Cart struct {
	UserID     string    `json:"user_id" msgpack:"user_id"`
	Items      []Item    `json:"items" msgpack:"items"`
	TotalPrice float64   `json:"total_price" msgpack:"total_price"`
	UpdatedAt  time.Time `json:"updated_at" msgpack:"updated_at"`
}

// Recalculate refreshes the total from item lines.
func (c *Cart) Recalculate() {
	total := 0.0
	for _, it := range c.Items {
		total += it.PriceUnit * float64(it.Quantity)
	}
	c.TotalPrice = total
}

type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}
