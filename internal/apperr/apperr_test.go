package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{Validationf("bad input"), IsValidation},
		{NotFoundf("missing"), IsNotFound},
		{Conflictf("duplicate"), IsConflict},
		{InvalidTransitionf("bad edge"), IsInvalidTransition},
		{Authorizationf("denied"), IsAuthorization},
		{Authentication(), IsAuthentication},
	}

	for _, tc := range cases {
		assert.True(t, tc.pred(tc.err), "%v", tc.err)
		// Each error matches exactly one kind.
		matched := 0
		for _, pred := range []func(error) bool{
			IsValidation, IsNotFound, IsConflict,
			IsInvalidTransition, IsAuthorization, IsAuthentication,
		} {
			if pred(tc.err) {
				matched++
			}
		}
		assert.Equal(t, 1, matched, "%v", tc.err)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("service call: %w", NotFoundf("user u1 not found"))
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsConflict(err))
}

func TestAuthenticationIsGeneric(t *testing.T) {
	// The same message for every failure mode, so callers cannot probe
	// which credential part was wrong.
	assert.Equal(t, Authentication().Error(), Authentication().Error())
	assert.Equal(t, "invalid credentials", Authentication().Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.False(t, IsNotFound(errors.New("plain")))
}
