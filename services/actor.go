package services

// Role is what an actor is acting as
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleSystem Role = "system"
)

// Actor is the authenticated principal of an operation. For buyers ID is the
// client id and for sellers it is the seller id.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

const systemActorID = "system:deadline-sweep"

// SystemActor is the identity the deadline sweep acts under
func SystemActor() Actor {
	return Actor{ID: systemActorID, Role: RoleSystem}
}

// Validate rejects actors that were not fully resolved
func (a Actor) Validate() error {
	if a.ID == "" {
		return ErrUnauthenticated
	}
	switch a.Role {
	case RoleBuyer, RoleSeller, RoleSystem:
		return nil
	}
	return ErrUnauthenticated
}

func (a Actor) IsBuyer() bool  { return a.Role == RoleBuyer }
func (a Actor) IsSeller() bool { return a.Role == RoleSeller }
func (a Actor) IsSystem() bool { return a.Role == RoleSystem }
