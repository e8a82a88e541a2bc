package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: account id and a valid
// role must both be present (presence proves the middleware ran).
func ctxClaims(c echo.Context) (accountID string, role domain.Role, err error) {
	accountID, _ = c.Get("account_id").(string)
	if accountID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	roleStr, _ := c.Get("role").(string)
	role = domain.Role(roleStr)
	if !role.Valid() {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing role claim")
	}

	return accountID, role, nil
}
