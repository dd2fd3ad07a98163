package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const tripHeader = "X-Trip-ID"

const contextKeyTripID = "trip_id"

// TripIDFromContext returns the trip ID set by RequireTrip. Empty if not set.
func TripIDFromContext(c *gin.Context) string {
	v, ok := c.Get(contextKeyTripID)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}

// RequireTrip returns a middleware that pins requests to the session's trip.
// A request naming another trip (query "trip" or X-Trip-ID header) gets 404.
func RequireTrip(tripID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		asked := strings.TrimSpace(c.GetHeader(tripHeader))
		if q := strings.TrimSpace(c.Query(ParamTrip)); q != "" {
			asked = q
		}
		if asked != "" && asked != tripID {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown trip"})
			return
		}
		c.Set(contextKeyTripID, tripID)
		c.Next()
	}
}
