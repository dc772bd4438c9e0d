package middleware

// identity.go holds the helpers that read the authenticated identity set by
// JWTAuth back out of the Echo context.

import "github.com/labstack/echo/v4"

// Username returns the authenticated username, or "" when the request did
// not pass through JWTAuth.
func Username(c echo.Context) string {
	if s, ok := c.Get(UsernameKey).(string); ok {
		return s
	}
	return ""
}

// rateIdentity is the identity used in rate-limit keys.
func rateIdentity(c echo.Context) string {
	if u := Username(c); u != "" {
		return u
	}
	return "anon"
}
