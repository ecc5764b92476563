package model

import (
	"maps"
	"strings"

	"taskhub/internal/apperr"
)

type TeamRole string

const (
	TeamRoleLead   TeamRole = "lead"
	TeamRoleMember TeamRole = "member"
)

func (r TeamRole) Valid() bool {
	return r == TeamRoleLead || r == TeamRoleMember
}

func ParseTeamRole(s string) (TeamRole, error) {
	r := TeamRole(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", apperr.Validationf("unknown team role %q", s)
	}
	return r, nil
}

// Team maps member user ids to their role within the team. The owner is
// always present as a member, so a team never has fewer than one member.
type Team struct {
	Ident
	Name        string              `json:"name"`
	Description string              `json:"description"`
	OwnerID     string              `json:"owner_id"`
	Members     map[string]TeamRole `json:"members"`
}

func (t *Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Validationf("team name cannot be empty")
	}
	if t.OwnerID == "" {
		return apperr.Validationf("team owner is required")
	}
	if _, ok := t.Members[t.OwnerID]; !ok {
		return apperr.Validationf("team owner must be a member")
	}
	for id, role := range t.Members {
		if !role.Valid() {
			return apperr.Validationf("member %s has unknown team role %q", id, role)
		}
	}
	return nil
}

func (t *Team) IsMember(userID string) bool {
	_, ok := t.Members[userID]
	return ok
}

// MemberRole returns the member's role and whether they belong to the team.
func (t *Team) MemberRole(userID string) (TeamRole, bool) {
	role, ok := t.Members[userID]
	return role, ok
}

// LeadCount returns the number of members holding the LEAD role.
func (t *Team) LeadCount() int {
	n := 0
	for _, role := range t.Members {
		if role == TeamRoleLead {
			n++
		}
	}
	return n
}

func (t *Team) Clone() *Team {
	cp := *t
	cp.Members = maps.Clone(t.Members)
	return &cp
}
