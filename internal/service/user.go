package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/pkg/metrics"
)

type UserService struct {
	users  UserStore
	hasher PasswordHasher
	deps   Deps
}

func NewUserService(users UserStore, hasher PasswordHasher, deps Deps) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		deps:   deps.withDefaults(),
	}
}

// CreateUser validates field invariants and case-insensitive uniqueness,
// hashes the credential, and persists the new account.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string, role model.Role) (*model.User, error) {
	username, err := model.ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	email, err = model.ValidateEmail(email)
	if err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperr.Validationf("unknown role %q", role)
	}

	// Username and email are stored lower-cased, so the case-insensitive
	// uniqueness check is a plain scan.
	taken, err := s.users.List(ctx, func(u *model.User) bool {
		return u.Username == username || u.Email == email
	})
	if err != nil {
		return nil, err
	}
	for _, u := range taken {
		if u.Username == username {
			return nil, apperr.Conflictf("username %q already exists", username)
		}
	}
	if len(taken) > 0 {
		return nil, apperr.Conflictf("email %q already exists", email)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.deps.Clock.Now()
	user := &model.User{
		Ident:        model.Ident{ID: s.deps.IDs.NewID(), CreatedAt: now, UpdatedAt: now},
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	created, err := s.users.Add(ctx, user)
	if err != nil {
		return nil, err
	}

	metrics.IncrementEntityCreated("user")
	s.deps.publish(event.UserCreated, event.UserCreatedPayload{
		UserID:   created.ID,
		Username: created.Username,
		Role:     string(created.Role),
	})
	s.deps.Log.Info("User created",
		zap.String("user_id", created.ID),
		zap.String("username", created.Username),
	)
	return created, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.Get(ctx, id)
}

// Authenticate verifies credentials by username or email. Every failure mode
// returns the same generic authentication error so callers cannot probe
// which part was wrong.
func (s *UserService) Authenticate(ctx context.Context, usernameOrEmail, password string) (*model.User, error) {
	q := strings.ToLower(strings.TrimSpace(usernameOrEmail))
	matches, err := s.users.List(ctx, func(u *model.User) bool {
		return u.Username == q || u.Email == q
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		metrics.IncrementLoginFailure()
		return nil, apperr.Authentication()
	}

	user := matches[0]
	if !user.Active || !s.hasher.Verify(password, user.PasswordHash) {
		metrics.IncrementLoginFailure()
		return nil, apperr.Authentication()
	}
	return user, nil
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Bio       *string
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.Profile.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.Profile.LastName = *update.LastName
	}
	if update.Bio != nil {
		user.Profile.Bio = *update.Bio
	}
	user.UpdatedAt = s.deps.Clock.Now()
	return s.users.Update(ctx, user)
}

// ChangePassword verifies the current credential before accepting the new
// one.
func (s *UserService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return apperr.Authentication()
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.deps.Clock.Now()
	_, err = s.users.Update(ctx, user)
	return err
}

// Deactivate turns the account off. Deactivated users cannot authenticate
// and cannot be newly assigned to tasks; existing assignments are left
// intact.
func (s *UserService) Deactivate(ctx context.Context, id string) (*model.User, error) {
	return s.setActive(ctx, id, false)
}

func (s *UserService) Reactivate(ctx context.Context, id string) (*model.User, error) {
	return s.setActive(ctx, id, true)
}

func (s *UserService) setActive(ctx context.Context, id string, active bool) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Active = active
	user.UpdatedAt = s.deps.Clock.Now()
	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}
	s.deps.Log.Info("User active flag changed",
		zap.String("user_id", id),
		zap.Bool("active", active),
	)
	return updated, nil
}

// ChangeRole moves an account to a new role. Only admins may do this, and
// the last remaining admin cannot be demoted.
func (s *UserService) ChangeRole(ctx context.Context, id string, newRole model.Role, actorID string) (*model.User, error) {
	if !newRole.Valid() {
		return nil, apperr.Validationf("unknown role %q", newRole)
	}
	actor, err := s.users.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !canChangeRole(actor) {
		metrics.IncrementAuthorizationDenied("user.change_role")
		return nil, apperr.Authorizationf("only admins can change roles")
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() && newRole != model.RoleAdmin {
		admins, err := s.users.List(ctx, func(u *model.User) bool {
			return u.Role == model.RoleAdmin
		})
		if err != nil {
			return nil, err
		}
		if len(admins) <= 1 {
			return nil, apperr.Validationf("cannot demote the last admin")
		}
	}

	user.Role = newRole
	user.UpdatedAt = s.deps.Clock.Now()
	return s.users.Update(ctx, user)
}

// SearchUsers matches the query against username, email, and profile names.
// An empty role matches every role.
func (s *UserService) SearchUsers(ctx context.Context, query string, role model.Role) ([]*model.User, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.users.List(ctx, func(u *model.User) bool {
		if role != "" && u.Role != role {
			return false
		}
		return strings.Contains(u.Username, q) ||
			strings.Contains(u.Email, q) ||
			strings.Contains(strings.ToLower(u.Profile.FirstName), q) ||
			strings.Contains(strings.ToLower(u.Profile.LastName), q)
	})
}

type UserStatistics struct {
	Total  int
	Active int
	ByRole map[model.Role]int
}

func (s *UserService) UserStatistics(ctx context.Context) (UserStatistics, error) {
	stats := UserStatistics{ByRole: make(map[model.Role]int)}
	users, err := s.users.List(ctx, nil)
	if err != nil {
		return stats, err
	}
	stats.Total = len(users)
	for _, u := range users {
		stats.ByRole[u.Role]++
		if u.Active {
			stats.Active++
		}
	}
	return stats, nil
}
