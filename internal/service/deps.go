// Package service implements the business-rule layer: one service per
// aggregate, orchestrating repositories and enforcing the cross-entity
// invariants. Services are the only components that mutate entity state.
package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/util"
)

// Store instantiations per aggregate.
type (
	UserStore    = repository.Store[*model.User]
	TaskStore    = repository.Store[*model.Task]
	ProjectStore = repository.Store[*model.Project]
	TeamStore    = repository.Store[*model.Team]
)

// Clock is injectable for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator mints the opaque ids assigned at creation time.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// PasswordHasher is the credential-hashing collaborator.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// BcryptHasher is the production PasswordHasher.
type BcryptHasher struct{}

func (BcryptHasher) Hash(password string) (string, error) {
	return util.HashPassword(password)
}

func (BcryptHasher) Verify(password, hash string) bool {
	return util.CheckPassword(password, hash)
}

// Deps bundles the ambient collaborators every service shares. Zero values
// get production defaults, so tests only override what they need.
type Deps struct {
	Clock  Clock
	IDs    IDGenerator
	Events event.Publisher
	Log    *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = systemClock{}
	}
	if d.IDs == nil {
		d.IDs = uuidGenerator{}
	}
	if d.Events == nil {
		d.Events = event.Nop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return d
}

// publish sends a domain event. Publishing is best-effort: failures are
// logged, never returned, so a broker outage cannot fail a committed write.
func (d Deps) publish(routingKey string, payload any) {
	if err := d.Events.Publish(routingKey, payload); err != nil {
		d.Log.Warn("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
