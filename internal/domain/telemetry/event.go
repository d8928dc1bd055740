package telemetry

// Action identifies which commerce mutation an event reports
type Action string

const (
	ActionAddToCart          Action = "add_to_cart"
	ActionRemoveFromCart     Action = "remove_from_cart"
	ActionAddToWishlist      Action = "add_to_wishlist"
	ActionRemoveFromWishlist Action = "remove_from_wishlist"
)

// Event represents one user action pushed onto the users-events stream.
// Events are transient: built per mutation, never persisted.
type Event struct {
	UserID    string `json:"userId"`
	Action    Action `json:"action"`
	ProductID string `json:"productId"`
	ShopID    string `json:"shopId"`
	Device    string `json:"device"`
	Country   string `json:"country"`
	City      string `json:"city"`
}

// HasContext reports whether the event carries enough context to be worth
// publishing. Events missing any of these fields are dropped, not queued.
func (e Event) HasContext() bool {
	return e.UserID != "" && e.Country != "" && e.City != "" && e.Device != ""
}
