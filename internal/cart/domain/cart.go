package domain

import "time"

// CartLine is one product in the cart. UnitPrice and StockCeiling are
// snapshots taken when the line was added or last updated, they are not
// re-read from the catalog on every access.
type CartLine struct {
	ProductID    int64     `bson:"product_id" json:"product_id"`
	Name         string    `bson:"name" json:"name"`
	UnitPrice    float64   `bson:"unit_price" json:"unit_price"`
	ImageRef     string    `bson:"image_ref" json:"image_ref"`
	Quantity     int       `bson:"quantity" json:"quantity"`
	StockCeiling int       `bson:"stock_ceiling" json:"stock_ceiling"`
	AddedAt      time.Time `bson:"added_at" json:"added_at"`
}

// Cart holds one user's lines. The slice preserves insertion order for
// display; product ids are unique within it.
type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"-"`
	UserID    string     `bson:"user_id" json:"user_id"`
	Lines     []CartLine `bson:"lines" json:"lines"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Find returns a pointer into Lines so callers can mutate the line in place.
func (c *Cart) Find(productID int64) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Remove deletes the line for productID and reports whether it existed.
func (c *Cart) Remove(productID int64) (CartLine, bool) {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return line, true
		}
	}
	return CartLine{}, false
}

func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

func (c *Cart) Subtotal() float64 {
	subtotal := 0.0
	for _, line := range c.Lines {
		subtotal += line.UnitPrice * float64(line.Quantity)
	}
	return subtotal
}
