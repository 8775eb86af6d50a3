package security

import (
	"net/http"
	"strings"

	"LinkupIM/tools/errs"
	tsec "LinkupIM/tools/security"

	"github.com/gin-gonic/gin"
)

// CtxUserIDKey is where the middleware stores the authenticated user id.
const CtxUserIDKey = "authUserID"

type Options struct {
	JWT tsec.Options
	// HeaderToken is checked before the Authorization header.
	HeaderToken string
}

func DefaultOptions(jwt tsec.Options) *Options {
	return &Options{JWT: jwt, HeaderToken: "token"}
}

// Middleware verifies the session token and installs the caller identity.
// The messaging core itself never authenticates; it trusts this id.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))
		if token == "" {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
				if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					token = strings.TrimSpace(authz[len("bearer "):])
				}
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": errs.ForbiddenError, "msg": "missing token"})
			return
		}
		userID, err := tsec.VerifyUserID(opts.JWT, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": errs.ForbiddenError, "msg": "invalid token"})
			return
		}
		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated caller id installed by Middleware.
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserIDKey)
	s, _ := v.(string)
	return s
}
