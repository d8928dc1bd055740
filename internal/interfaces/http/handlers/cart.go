// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-state/internal/domain/commerce"
	"github.com/your-org/storefront-state/internal/domain/device"
	"github.com/your-org/storefront-state/internal/domain/location"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	manager   *commerce.Manager
	locations *location.Cache
	devices   device.Provider
	log       *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(manager *commerce.Manager, locations *location.Cache, devices device.Provider, log *logrus.Logger) *CartHandler {
	return &CartHandler{
		manager:   manager,
		locations: locations,
		devices:   devices,
		log:       log,
	}
}

// AddCartItemRequest represents an add to cart request
type AddCartItemRequest struct {
	ID        string  `json:"id" binding:"required"`
	Title     string  `json:"title" binding:"required"`
	ImageURL  string  `json:"image_url"`
	UnitPrice float64 `json:"unit_price"`
	ShopID    string  `json:"shop_id" binding:"required"`
	ShopName  string  `json:"shop_name"`
	Currency  string  `json:"currency"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	owner := resolveOwner(c)
	state := h.manager.Store(c.Request.Context(), owner).State()

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    state.Cart,
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	mc := resolveMutationContext(c, h.locations, h.devices, h.log)
	store := h.manager.Store(c.Request.Context(), mc.Owner)

	state := store.AddToCart(c.Request.Context(), commerce.CartLine{
		ID:        req.ID,
		Title:     req.Title,
		ImageURL:  req.ImageURL,
		UnitPrice: req.UnitPrice,
		ShopID:    req.ShopID,
		ShopName:  req.ShopName,
		Currency:  req.Currency,
	}, mc.Actor, mc.Location, mc.Device)

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    state.Cart,
	})
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	productID := c.Param("id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	mc := resolveMutationContext(c, h.locations, h.devices, h.log)
	store := h.manager.Store(c.Request.Context(), mc.Owner)

	state := store.RemoveFromCart(c.Request.Context(), productID, mc.Actor, mc.Location, mc.Device)

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    state.Cart,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	owner := resolveOwner(c)
	state := h.manager.Store(c.Request.Context(), owner).ClearCart(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
		"data":    state.Cart,
	})
}
