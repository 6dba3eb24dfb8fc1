package domain

// Item is a product entry in the user's wishlist. Identity is ID.
type Item struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	Image         string  `json:"image,omitempty"`
	Price         float64 `json:"price"`
	DiscountPrice float64 `json:"discountPrice,omitempty"`
	Ratings       float64 `json:"ratings,omitempty"`
	Reviews       int     `json:"reviews,omitempty"`
}
