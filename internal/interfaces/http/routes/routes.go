// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-state/internal/domain/commerce"
	"github.com/your-org/storefront-state/internal/domain/device"
	"github.com/your-org/storefront-state/internal/domain/location"
	"github.com/your-org/storefront-state/internal/interfaces/http/handlers"
)

// SetupCartRoutes sets up cart related routes
func SetupCartRoutes(rg *gin.RouterGroup, manager *commerce.Manager, locations *location.Cache, devices device.Provider, log *logrus.Logger) {
	cartHandler := handlers.NewCartHandler(manager, locations, devices, log)

	cart := rg.Group("/cart")
	{
		cart.GET("", cartHandler.GetCart)
		cart.POST("/items", cartHandler.AddToCart)
		cart.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cart.DELETE("", cartHandler.ClearCart)
	}
}

// SetupWishlistRoutes sets up wishlist related routes
func SetupWishlistRoutes(rg *gin.RouterGroup, manager *commerce.Manager, locations *location.Cache, devices device.Provider, log *logrus.Logger) {
	wishlistHandler := handlers.NewWishlistHandler(manager, locations, devices, log)

	wishlist := rg.Group("/wishlist")
	{
		wishlist.GET("", wishlistHandler.GetWishlist)
		wishlist.POST("/items", wishlistHandler.AddToWishlist)
		wishlist.DELETE("/items/:id", wishlistHandler.RemoveFromWishlist)
		wishlist.DELETE("", wishlistHandler.ClearWishlist)
	}
}

// SetupRoutes sets up all application routes
func SetupRoutes(rg *gin.RouterGroup, manager *commerce.Manager, locations *location.Cache, devices device.Provider, log *logrus.Logger) {
	SetupCartRoutes(rg, manager, locations, devices, log)
	SetupWishlistRoutes(rg, manager, locations, devices, log)
}
