package middleware

// identity.go holds the context keys JWTAuth fills and the accessors the
// handlers and the rate limiter read them with.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ctxStaffID = "staff_id"
	ctxRole    = "role"
)

// Staff roles carried in the JWT role claim.
const (
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)

// StaffID returns the authenticated staff id.  ok is false when the request
// did not pass through JWTAuth.
func StaffID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxStaffID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated role, or "" when none is known.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// staffKey identifies the caller for rate limiting.  It returns "anon"
// when no staff member is authenticated.
func staffKey(c echo.Context) string {
	if id, ok := StaffID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
