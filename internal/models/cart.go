package models

// CartItem is one row of a cart. ID is the product id, so a cart never holds two rows
// for the same product. Name, Price and ImageURL are a snapshot taken when the row
// was last written.
type CartItem struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
	Quantity int     `json:"quantity" validate:"gte=1"`
}

// CartItemFromProduct builds a cart row holding a snapshot of p.
func CartItemFromProduct(p Product, quantity int) CartItem {
	return CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageURL: p.ImageURL,
		Quantity: quantity,
	}
}
