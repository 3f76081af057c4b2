package store

import "fmt"

// NoticeKind classifies the non-fatal, user-visible notices a cart
// mutation can produce. A notice never means the operation failed, the
// cart always settles in a valid state.
type NoticeKind int

const (
	// NoticeStockClamped means a requested quantity was reduced to the
	// product's available stock.
	NoticeStockClamped NoticeKind = iota
	// NoticeItemRemoved confirms a line was removed from the cart.
	NoticeItemRemoved
	// NoticeOutOfStock means the product has no stock left at all.
	NoticeOutOfStock
)

type Notice struct {
	Kind         NoticeKind
	ProductName  string
	StockCeiling int
}

func (n *Notice) Message() string {
	switch n.Kind {
	case NoticeStockClamped:
		return fmt.Sprintf("only %d of %q available, quantity adjusted", n.StockCeiling, n.ProductName)
	case NoticeItemRemoved:
		return fmt.Sprintf("%q removed from cart", n.ProductName)
	case NoticeOutOfStock:
		return fmt.Sprintf("%q is out of stock", n.ProductName)
	}
	return ""
}
