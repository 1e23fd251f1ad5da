package authorization

import (
	"testing"

	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func personWith(capabilities ...persondomain.Capability) persondomain.Person {
	return persondomain.Person{Capabilities: datatypes.NewJSONSlice(capabilities)}
}

func TestRequireCapability(t *testing.T) {
	landlord := personWith(persondomain.CapabilityLandlord)

	assert.NoError(t, RequireLandlord(landlord))
	assert.ErrorIs(t, RequireTenant(landlord), ErrForbidden)

	both := personWith(persondomain.CapabilityLandlord, persondomain.CapabilityTenant)
	assert.NoError(t, RequireLandlord(both))
	assert.NoError(t, RequireTenant(both))

	assert.ErrorIs(t, RequireLandlord(personWith()), ErrForbidden)
}
