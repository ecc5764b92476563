package model

import (
	"regexp"
	"strings"

	"taskhub/internal/apperr"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", apperr.Validationf("unknown role %q", s)
	}
	return r, nil
}

// Profile holds the optional descriptive fields of a user.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// User is the account entity. Username and email are stored lower-cased so
// the uniqueness scan is a plain equality check. PasswordHash is the bcrypt
// digest; plaintext is never stored.
type User struct {
	Ident
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"password_hash"`
	Role         Role    `json:"role"`
	Profile      Profile `json:"profile"`
	Active       bool    `json:"active"`
}

// ValidateUsername normalizes and checks a username.
func ValidateUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernameRegex.MatchString(username) {
		return "", apperr.Validationf("username must be 3-50 alphanumeric or underscore characters")
	}
	return username, nil
}

// ValidateEmail normalizes and checks an email address.
func ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return "", apperr.Validationf("invalid email format")
	}
	return email, nil
}

// ValidatePassword checks a plaintext password before hashing.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return apperr.Validationf("password must be at least 6 characters")
	}
	return nil
}

// Validate checks the user's own field invariants.
func (u *User) Validate() error {
	if _, err := ValidateUsername(u.Username); err != nil {
		return err
	}
	if _, err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if u.PasswordHash == "" {
		return apperr.Validationf("password hash is required")
	}
	if !u.Role.Valid() {
		return apperr.Validationf("unknown role %q", u.Role)
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) Clone() *User {
	cp := *u
	return &cp
}
