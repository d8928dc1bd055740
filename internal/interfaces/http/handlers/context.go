package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-state/internal/domain/commerce"
	"github.com/your-org/storefront-state/internal/domain/device"
	"github.com/your-org/storefront-state/internal/domain/location"
	"github.com/your-org/storefront-state/internal/interfaces/http/middleware"
)

// mutationContext carries everything a store mutation needs to describe
// the action for telemetry
type mutationContext struct {
	Owner    string
	Actor    commerce.Actor
	Location location.Record
	Device   string
}

// resolveOwner returns the state owner for a request: the authenticated
// user when present, otherwise the anonymous session
func resolveOwner(c *gin.Context) string {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return userID
	}
	sessionID, _ := middleware.GetSessionIDFromContext(c)
	return sessionID
}

// resolveMutationContext builds the telemetry context for a request. The
// location lookup is best-effort: an unresolved location leaves the record
// empty, which downstream turns into a skipped event rather than an error.
func resolveMutationContext(c *gin.Context, locations *location.Cache, devices device.Provider, log *logrus.Logger) mutationContext {
	userID, _ := middleware.GetUserIDFromContext(c)
	owner := resolveOwner(c)

	record, err := locations.Resolve(c.Request.Context(), owner, c.ClientIP())
	if err != nil {
		log.WithError(err).Debug("Location unresolved, telemetry will be skipped")
	}

	return mutationContext{
		Owner:    owner,
		Actor:    commerce.Actor{ID: userID},
		Location: record,
		Device:   devices.DeviceInfo(),
	}
}
