package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saos/service-desk/internal/domain"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

// RequireRole ensures the caller holds one of the allowed roles. With no
// roles given it only requires an authenticated caller.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff allows technicians and administrators.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleTechnician, domain.RoleAdmin)
}

// RequireAdmin allows administrators only.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
