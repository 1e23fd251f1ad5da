package authorization

import (
	"errors"

	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
)

var ErrForbidden = errors.New("forbidden")

// RequireCapability checks that the person holds the given capability.
func RequireCapability(p persondomain.Person, capability persondomain.Capability) error {
	if !p.HasCapability(capability) {
		return ErrForbidden
	}
	return nil
}

// RequireLandlord is a shorthand used by handlers guarding landlord routes.
func RequireLandlord(p persondomain.Person) error {
	return RequireCapability(p, persondomain.CapabilityLandlord)
}

// RequireTenant is a shorthand used by handlers guarding tenant routes.
func RequireTenant(p persondomain.Person) error {
	return RequireCapability(p, persondomain.CapabilityTenant)
}
