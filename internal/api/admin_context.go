package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/MarkoPoloResearchLab/societyhub/internal/auth"
)

const contextKeyAdminClaims = "api_admin_claims"

// ErrMissingContext reports a nil gin context when setting the admin claims.
var ErrMissingContext = errors.New("missing context")

// ErrMissingClaims reports nil claims when setting auth state.
var ErrMissingClaims = errors.New("missing admin claims")

// SetAdminClaims stores the verified token claims in the request context.
func SetAdminClaims(context *gin.Context, claims *auth.Claims) error {
	if context == nil {
		return ErrMissingContext
	}
	if claims == nil {
		return ErrMissingClaims
	}
	context.Set(contextKeyAdminClaims, claims)
	return nil
}

// AdminClaimsFromContext returns the claims stored by AdminAuthMiddleware.
func AdminClaimsFromContext(context *gin.Context) (*auth.Claims, bool) {
	if context == nil {
		return nil, false
	}
	value, exists := context.Get(contextKeyAdminClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok && claims != nil
}
