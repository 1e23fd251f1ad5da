package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Capability grants a person access to a side of the product. A single
// account can hold both: a landlord renting out one building can be a
// tenant in another.
type Capability string

const (
	CapabilityLandlord Capability = "landlord"
	CapabilityTenant   Capability = "tenant"
)

type Person struct {
	ID           snowflake.ID                    `gorm:"primaryKey" json:"id"`
	FirstName    string                          `gorm:"not null" json:"first_name"`
	LastName     string                          `gorm:"not null" json:"last_name"`
	Email        *string                         `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash *string                         `gorm:"column:password_hash" json:"-"`
	Phone        string                          `json:"phone,omitempty"`
	Capabilities datatypes.JSONSlice[Capability] `json:"capabilities"`
	CreatedAt    time.Time                       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time                       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Person) TableName() string {
	return "persons"
}

func (p Person) HasCapability(capability Capability) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Grant adds a capability if the person does not hold it yet.
func (p *Person) Grant(capability Capability) {
	if p.HasCapability(capability) {
		return
	}
	p.Capabilities = append(p.Capabilities, capability)
}
