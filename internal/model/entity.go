package model

import "time"

// Ident carries the identity and timestamps shared by every entity. It is
// embedded by value; there is no entity supertype. The ID never changes after
// the service assigns it.
type Ident struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i Ident) EntityID() string { return i.ID }

// Entity is the constraint the repository contract is parameterized by.
// Clone returns a deep copy; stores traffic only in clones so no caller ever
// observes shared mutable state.
type Entity[T any] interface {
	EntityID() string
	Clone() T
}
