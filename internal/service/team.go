package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/pkg/metrics"
)

type TeamService struct {
	teams TeamStore
	users UserStore
	deps  Deps
}

func NewTeamService(teams TeamStore, users UserStore, deps Deps) *TeamService {
	return &TeamService{
		teams: teams,
		users: users,
		deps:  deps.withDefaults(),
	}
}

// CreateTeam makes the owner the sole initial member with the LEAD role.
func (s *TeamService) CreateTeam(ctx context.Context, name, description, ownerID string) (*model.Team, error) {
	if _, err := s.users.Get(ctx, ownerID); err != nil {
		return nil, err
	}

	now := s.deps.Clock.Now()
	team := &model.Team{
		Ident:       model.Ident{ID: s.deps.IDs.NewID(), CreatedAt: now, UpdatedAt: now},
		Name:        strings.TrimSpace(name),
		Description: description,
		OwnerID:     ownerID,
		Members:     map[string]model.TeamRole{ownerID: model.TeamRoleLead},
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}

	created, err := s.teams.Add(ctx, team)
	if err != nil {
		return nil, err
	}

	metrics.IncrementEntityCreated("team")
	s.deps.Log.Info("Team created",
		zap.String("team_id", created.ID),
		zap.String("name", created.Name),
	)
	return created, nil
}

func (s *TeamService) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	return s.teams.Get(ctx, id)
}

func (s *TeamService) AddMember(ctx context.Context, teamID, userID string, role model.TeamRole) (*model.Team, error) {
	if !role.Valid() {
		return nil, apperr.Validationf("unknown team role %q", role)
	}
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	if team.IsMember(userID) {
		return nil, apperr.Validationf("user %s is already a member of team %s", userID, teamID)
	}

	team.Members[userID] = role
	team.UpdatedAt = s.deps.Clock.Now()
	updated, err := s.teams.Update(ctx, team)
	if err != nil {
		return nil, err
	}

	s.deps.publish(event.TeamMemberAdded, event.TeamMemberAddedPayload{
		TeamID: teamID,
		UserID: userID,
		Role:   string(role),
	})
	return updated, nil
}

// RemoveMember removes a member. The owner cannot be removed while they are
// the sole LEAD; if another LEAD exists, ownership transfers to that lead
// (the first by user id, for determinism) before the removal.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) (*model.Team, error) {
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsMember(userID) {
		return nil, apperr.Validationf("user %s is not a member of team %s", userID, teamID)
	}

	if userID == team.OwnerID {
		successor := ""
		var leads []string
		for id, role := range team.Members {
			if role == model.TeamRoleLead && id != userID {
				leads = append(leads, id)
			}
		}
		if len(leads) == 0 {
			return nil, apperr.Validationf("cannot remove the team owner while they are the sole lead")
		}
		sort.Strings(leads)
		successor = leads[0]
		team.OwnerID = successor
		s.deps.Log.Info("Team ownership transferred",
			zap.String("team_id", teamID),
			zap.String("new_owner_id", successor),
		)
	}

	delete(team.Members, userID)
	team.UpdatedAt = s.deps.Clock.Now()
	return s.teams.Update(ctx, team)
}

// ChangeMemberRole changes a member's role within the team. The owner must
// remain a LEAD.
func (s *TeamService) ChangeMemberRole(ctx context.Context, teamID, userID string, newRole model.TeamRole) (*model.Team, error) {
	if !newRole.Valid() {
		return nil, apperr.Validationf("unknown team role %q", newRole)
	}
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsMember(userID) {
		return nil, apperr.NotFoundf("user %s is not a member of team %s", userID, teamID)
	}
	if userID == team.OwnerID && newRole != model.TeamRoleLead {
		return nil, apperr.Validationf("team owner must remain a lead")
	}

	team.Members[userID] = newRole
	team.UpdatedAt = s.deps.Clock.Now()
	return s.teams.Update(ctx, team)
}

// TransferLead hands ownership to another user, adding them as a LEAD member
// if needed. The previous owner stays a member.
func (s *TeamService) TransferLead(ctx context.Context, teamID, newOwnerID string) (*model.Team, error) {
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, newOwnerID); err != nil {
		return nil, err
	}

	team.OwnerID = newOwnerID
	team.Members[newOwnerID] = model.TeamRoleLead
	team.UpdatedAt = s.deps.Clock.Now()
	return s.teams.Update(ctx, team)
}

// DeleteTeam removes the team. Members are independent entities and are not
// cascaded.
func (s *TeamService) DeleteTeam(ctx context.Context, id string) error {
	if err := s.teams.Delete(ctx, id); err != nil {
		return err
	}
	metrics.IncrementEntityDeleted("team")
	s.deps.Log.Info("Team deleted", zap.String("team_id", id))
	return nil
}

// ListTeamsForUser returns every team the user is a member of.
func (s *TeamService) ListTeamsForUser(ctx context.Context, userID string) ([]*model.Team, error) {
	return s.teams.List(ctx, func(t *model.Team) bool { return t.IsMember(userID) })
}
