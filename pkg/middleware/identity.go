package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/oem-ev-warranty/parts-service/pkg/errors"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
)

// Identity headers set by the upstream gateway after authentication
const (
	HeaderUserID          = "X-User-ID"
	HeaderUserRole        = "X-User-Role"
	HeaderServiceCenterID = "X-Service-Center-ID"
	HeaderCompanyID       = "X-Company-ID"

	ContextKeyIdentity = "identity"
)

// Identity is the already-authenticated caller
type Identity struct {
	UserID          string
	Role            string
	ServiceCenterID string
	CompanyID       string
}

// RequireIdentity reads the caller identity headers. Requests without a user
// or role are rejected; scope ids are optional and checked by the services.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := Identity{
			UserID:          c.GetHeader(HeaderUserID),
			Role:            c.GetHeader(HeaderUserRole),
			ServiceCenterID: c.GetHeader(HeaderServiceCenterID),
			CompanyID:       c.GetHeader(HeaderCompanyID),
		}
		if id.UserID == "" || id.Role == "" {
			AbortWithAppError(c, errors.ErrUnauthorized("missing caller identity headers"))
			return
		}

		c.Set(ContextKeyIdentity, id)
		c.Request = c.Request.WithContext(logging.ContextWithUserID(c.Request.Context(), id.UserID))
		c.Next()
	}
}

// GetIdentity returns the caller identity stored by RequireIdentity
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
