package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// LoginPath is where unauthenticated visitors of the dashboard are sent.
	LoginPath = "/auth/login"
	// HomePath is where authenticated visitors of the auth pages are sent.
	HomePath = "/dashboard/analytics"
)

var (
	protectedPrefixes = []string{"/dashboard"}
	authPrefixes      = []string{"/auth/login", "/auth/register"}
)

// Decision is the outcome of the route guard.
type Decision struct {
	Redirect bool
	Target   string
}

// Resolve decides whether path may be served given the presence of a token.
// It never decodes the token: presence is all that counts.
func Resolve(path string, hasToken bool) Decision {
	if !hasToken && hasPrefix(path, protectedPrefixes) {
		return Decision{Redirect: true, Target: LoginPath}
	}
	if hasToken && hasPrefix(path, authPrefixes) {
		return Decision{Redirect: true, Target: HomePath}
	}
	return Decision{}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// GuardMiddleware applies Resolve using the presence of the named cookie.
func GuardMiddleware(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		decision := Resolve(c.Request.URL.Path, err == nil && token != "")
		if !decision.Redirect {
			c.Next()
			return
		}
		status := http.StatusFound
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			status = http.StatusSeeOther
		}
		c.Redirect(status, decision.Target)
		c.Abort()
	}
}
