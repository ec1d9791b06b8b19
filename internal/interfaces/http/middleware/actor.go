package middleware

import (
	"net/http"

	"github.com/foodtruck/backend/internal/domain/procurement"
	"github.com/foodtruck/backend/internal/infrastructure/logger"
	"github.com/foodtruck/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Actor identity is asserted by the upstream gateway
const (
	ActorIDHeader           = "X-Actor-ID"
	ActorCapabilitiesHeader = "X-Actor-Capabilities"
	ActorKey                = "actor"
)

// Actor reads the gateway actor headers into the gin context.
// Requests without X-Actor-ID pass through anonymously; a malformed id is rejected.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ActorIDHeader)
		if raw == "" {
			c.Next()
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, ActorIDHeader+" must be a UUID").
					WithRequestID(GetRequestID(c)))
			return
		}

		actor := procurement.NewActor(id, c.GetHeader(ActorCapabilitiesHeader))
		c.Set(ActorKey, actor)

		ctx, reqLogger := logger.WithActorID(c.Request.Context(), logger.GetGinLogger(c), id.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(logger.GinContextKey, reqLogger)
		c.Next()
	}
}

// GetActor returns the actor set by Actor
func GetActor(c *gin.Context) (procurement.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return procurement.Actor{}, false
	}
	actor, ok := v.(procurement.Actor)
	return actor, ok
}
