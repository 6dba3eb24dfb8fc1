package event

// UserData is the payload of user.* activities.
type UserData struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email"`
	Method string `json:"method,omitempty"` // password | identity_provider
}

// WishlistData is the payload of wishlist.* activities.
type WishlistData struct {
	ProductID string `json:"product_id"`
	Remaining int    `json:"remaining"`
}

// ProfileData is the payload of profile.field_updated.
type ProfileData struct {
	Field string `json:"field"`
}
