package domain

import "github.com/Faitltd/FAIT-sub003/pkg/auth"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == auth.RoleAdmin }

func (a Actor) IsAgent() bool { return a.Role == auth.RoleServiceAgent }

// Owns reports whether the actor is a party to b.
func (a Actor) Owns(b *Booking) bool {
	return a.ID != "" && (a.ID == b.ClientID || a.ID == b.ServiceAgentID)
}

// Manages reports whether the actor may act as the provider side of b.
func (a Actor) Manages(b *Booking) bool {
	return a.IsAdmin() || (a.IsAgent() && a.ID == b.ServiceAgentID)
}
