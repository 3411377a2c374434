package model

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrItemNotInBasket = errors.New("item not in basket")

// CartItem holds a copy of the product taken when it was first added, so later
// catalog edits do not change the basket price.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Basket keeps one line per product id in insertion order.
// It is not safe for concurrent use.
type Basket struct {
	items []CartItem
}

func NewBasket() *Basket {
	return &Basket{}
}

func (b *Basket) AddItem(p Product) {
	if i := b.indexOf(p.ID); i >= 0 {
		b.items[i].Quantity++
		return
	}
	b.items = append(b.items, CartItem{Product: p, Quantity: 1})
}

// SetQuantity applies delta to the line quantity; the result never drops below 1.
func (b *Basket) SetQuantity(id string, delta int) error {
	i := b.indexOf(id)
	if i < 0 {
		return ErrItemNotInBasket
	}
	q := b.items[i].Quantity + delta
	if q < 1 {
		q = 1
	}
	b.items[i].Quantity = q
	return nil
}

func (b *Basket) RemoveItem(id string) {
	i := b.indexOf(id)
	if i < 0 {
		return
	}
	b.items = append(b.items[:i], b.items[i+1:]...)
}

func (b *Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (b *Basket) Clear() {
	b.items = nil
}

func (b *Basket) Items() []CartItem {
	out := make([]CartItem, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Basket) Item(id string) (CartItem, bool) {
	i := b.indexOf(id)
	if i < 0 {
		return CartItem{}, false
	}
	return b.items[i], true
}

// Len is the number of distinct lines.
func (b *Basket) Len() int { return len(b.items) }

// Units is the sum of all line quantities.
func (b *Basket) Units() int {
	var n int
	for _, item := range b.items {
		n += item.Quantity
	}
	return n
}

func (b *Basket) IsEmpty() bool { return len(b.items) == 0 }

func (b *Basket) indexOf(id string) int {
	for i, item := range b.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
