// internal/interfaces/http/handlers/wishlist.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-state/internal/domain/commerce"
	"github.com/your-org/storefront-state/internal/domain/device"
	"github.com/your-org/storefront-state/internal/domain/location"
)

// WishlistHandler handles wishlist endpoints
type WishlistHandler struct {
	manager   *commerce.Manager
	locations *location.Cache
	devices   device.Provider
	log       *logrus.Logger
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(manager *commerce.Manager, locations *location.Cache, devices device.Provider, log *logrus.Logger) *WishlistHandler {
	return &WishlistHandler{
		manager:   manager,
		locations: locations,
		devices:   devices,
		log:       log,
	}
}

// AddWishlistItemRequest represents an add to wishlist request
type AddWishlistItemRequest struct {
	ID        string  `json:"id" binding:"required"`
	Title     string  `json:"title" binding:"required"`
	ImageURL  string  `json:"image_url"`
	UnitPrice float64 `json:"unit_price"`
	ShopID    string  `json:"shop_id" binding:"required"`
	ShopName  string  `json:"shop_name"`
	Currency  string  `json:"currency"`
}

// GetWishlist handles GET /wishlist
func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	owner := resolveOwner(c)
	state := h.manager.Store(c.Request.Context(), owner).State()

	c.JSON(http.StatusOK, gin.H{
		"message": "Wishlist retrieved successfully",
		"data":    state.Wishlist,
	})
}

// AddToWishlist handles POST /wishlist/items
func (h *WishlistHandler) AddToWishlist(c *gin.Context) {
	var req AddWishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	mc := resolveMutationContext(c, h.locations, h.devices, h.log)
	store := h.manager.Store(c.Request.Context(), mc.Owner)

	state := store.AddToWishlist(c.Request.Context(), commerce.WishlistLine{
		ID:        req.ID,
		Title:     req.Title,
		ImageURL:  req.ImageURL,
		UnitPrice: req.UnitPrice,
		ShopID:    req.ShopID,
		ShopName:  req.ShopName,
		Currency:  req.Currency,
	}, mc.Actor, mc.Location, mc.Device)

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to wishlist successfully",
		"data":    state.Wishlist,
	})
}

// RemoveFromWishlist handles DELETE /wishlist/items/:id
func (h *WishlistHandler) RemoveFromWishlist(c *gin.Context) {
	productID := c.Param("id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}

	mc := resolveMutationContext(c, h.locations, h.devices, h.log)
	store := h.manager.Store(c.Request.Context(), mc.Owner)

	state := store.RemoveFromWishlist(c.Request.Context(), productID, mc.Actor, mc.Location, mc.Device)

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from wishlist successfully",
		"data":    state.Wishlist,
	})
}

// ClearWishlist handles DELETE /wishlist
func (h *WishlistHandler) ClearWishlist(c *gin.Context) {
	owner := resolveOwner(c)
	state := h.manager.Store(c.Request.Context(), owner).ClearWishlist(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"message": "Wishlist cleared successfully",
		"data":    state.Wishlist,
	})
}
