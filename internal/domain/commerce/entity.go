package commerce

// CartLine is one product line in the cart. Lines are unique by ID; adding
// an ID that already exists increments its quantity instead of appending a
// duplicate row.
type CartLine struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	ImageURL  string  `json:"image_url"`
	UnitPrice float64 `json:"unit_price"`
	ShopID    string  `json:"shop_id"`
	Quantity  int     `json:"quantity"`

	// Optional display fields
	ShopName string `json:"shop_name,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// WishlistLine is one saved product. Wishlist entries are presence-only:
// duplicates by ID are rejected, not merged.
type WishlistLine struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	ImageURL  string  `json:"image_url"`
	UnitPrice float64 `json:"unit_price"`
	ShopID    string  `json:"shop_id"`

	ShopName string `json:"shop_name,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// State holds the cart and wishlist for one session owner. It is owned
// exclusively by the owner's Store and persisted as a single JSON blob.
type State struct {
	Cart     []CartLine     `json:"cart"`
	Wishlist []WishlistLine `json:"wishlist"`
}

// Actor identifies who performed a mutation. An empty ID means the actor
// is anonymous and telemetry for the mutation is skipped.
type Actor struct {
	ID string `json:"id"`
}
