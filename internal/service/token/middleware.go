package token

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// AutoRefreshMiddleware requires a logged-in user, transparently rotating an
// expired access token from the refresh cookie.
func (t *TokenService) AutoRefreshMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		newAccess, newRefresh, _, err := t.CheckCookie(c)
		if err != nil {
			return err
		}

		if newRefresh == "" {
			return next(c)
		}

		t.setRotatedCookies(c, newAccess, newRefresh)
		return next(c)
	}
}

// AutoRefreshMiddlewareAdmin rejects with 403 before the handler touches any
// data unless the identity carries the admin role.
func (t *TokenService) AutoRefreshMiddlewareAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		newAccess, newRefresh, role, err := t.CheckCookie(c)
		if err != nil {
			return err
		}

		if role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}

		if newRefresh != "" {
			t.setRotatedCookies(c, newAccess, newRefresh)
		}
		return next(c)
	}
}

// OptionalAuth attaches the identity when a valid cookie is present and lets
// anonymous requests through untouched. Order placement allows guest
// checkout, so it must not fail on missing or stale cookies.
func (t *TokenService) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := c.Cookie("accessToken"); err != nil {
			if _, err := c.Cookie("refreshToken"); err != nil {
				return next(c)
			}
		}

		newAccess, newRefresh, _, err := t.CheckCookie(c)
		if err != nil {
			return next(c)
		}

		if newRefresh != "" {
			t.setRotatedCookies(c, newAccess, newRefresh)
		}
		return next(c)
	}
}

func newCookie(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (t *TokenService) setRotatedCookies(c echo.Context, access, refresh string) {
	c.SetCookie(newCookie("accessToken", access, time.Now().Add(AccessTTL)))
	c.SetCookie(newCookie("refreshToken", refresh, time.Now().Add(RefreshTTL)))

	if token, _ := jwt.Parse(access, func(j *jwt.Token) (interface{}, error) { return t.JWTSecret, nil }); token != nil {
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			setUserContext(c, claims)
		}
	}
}
