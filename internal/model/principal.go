package model

import (
	"fmt"

	"github.com/google/uuid"
)

type Role string

const (
	RoleManager    Role = "MANAGER"
	RoleSpecialist Role = "SPECIALIST"
	RoleCustomer   Role = "CUSTOMER"
)

// Principal is the authenticated caller, extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsManager() bool    { return p.Role == RoleManager }
func (p Principal) IsSpecialist() bool { return p.Role == RoleSpecialist }
func (p Principal) IsCustomer() bool   { return p.Role == RoleCustomer }

// Actor renders the principal for audit events.
func (p Principal) Actor() string {
	return fmt.Sprintf("%s:%s", p.Role, p.UserID)
}

// SystemActor labels transitions not driven by a user (gateway callbacks, sweeps).
const SystemActor = "SYSTEM"
