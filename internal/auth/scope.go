package auth

import (
	"github.com/gofiber/fiber/v2"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/models"
)

// TenantScope is the access boundary an operation executes under. A nil
// ProviderID means unrestricted (administrative) access; otherwise every
// shipment- or batch-scoped read and write is limited to that provider.
type TenantScope struct {
	ProviderID *uint
}

// Unrestricted returns the administrative scope.
func Unrestricted() TenantScope { return TenantScope{} }

// Restricted returns a scope bound to one provider.
func Restricted(providerID uint) TenantScope { return TenantScope{ProviderID: &providerID} }

// IsUnrestricted reports whether the scope can see every tenant.
func (s TenantScope) IsUnrestricted() bool { return s.ProviderID == nil }

// Authorize checks the scope against a resource owner. Every VMS operation
// must call this before reading or mutating tenant-owned rows.
func (s TenantScope) Authorize(ownerProviderID uint) error {
	if s.ProviderID == nil || *s.ProviderID == ownerProviderID {
		return nil
	}
	return apperr.ErrAccessDenied
}

// ScopeFromCtx derives the tenant scope from the JWT claims the middleware
// stored in locals. Admins get the unrestricted scope; vendor users must
// carry a provider id.
func ScopeFromCtx(c *fiber.Ctx) (TenantScope, error) {
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return TenantScope{}, apperr.ErrAccessDenied
	}
	if role == models.RoleAdmin {
		return Unrestricted(), nil
	}

	providerID, ok := c.Locals(CtxProviderIDKey).(*uint)
	if !ok || providerID == nil {
		return TenantScope{}, apperr.Validationf("vendor user has no provider assigned")
	}
	return Restricted(*providerID), nil
}
