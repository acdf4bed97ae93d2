package users

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Group is an authorization group a user account may belong to.
type Group string

const (
	GroupUsers Group = "users"
	GroupStaff Group = "staff"
	GroupAdmin Group = "admin"
)

// DefaultGroups are granted to an account when its email is confirmed.
var DefaultGroups = []Group{GroupUsers}

var groupChoices = map[Group]struct{}{
	GroupUsers: {},
	GroupStaff: {},
	GroupAdmin: {},
}

// ValidGroup reports whether g is a known authorization group.
func ValidGroup(g Group) bool {
	_, ok := groupChoices[g]
	return ok
}

// bcrypt output is "$2a$<cost>$<22-char salt><31-char hash>"; the first 29
// bytes are the salt material persisted alongside the full hash.
const saltPrefixLen = 29

// User is an account record. All fields are reachable only through
// accessor methods; the repositories in this package are the only code
// that restores one from persisted state.
type User struct {
	id        string
	email     string
	groups    []Group
	joined    time.Time
	confirmed *time.Time
	lastLogin *time.Time
	prevLogin *time.Time
	salt      string
	hash      string
}

// New constructs a transient (unsaved) user with a freshly hashed
// password. The returned user has no id until it is persisted.
func New(email, password string, bcryptCost int) (*User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	u := &User{email: email}
	if err := u.SetPassword(password, bcryptCost); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) ID() string    { return u.id }
func (u *User) Email() string { return u.email }

// Groups returns a copy of the account's group list, in insertion order.
func (u *User) Groups() []Group {
	out := make([]Group, len(u.groups))
	copy(out, u.groups)
	return out
}

// GroupStrings returns the group list as plain strings, the form cached
// on session tokens and used for principal derivation.
func (u *User) GroupStrings() []string {
	out := make([]string, len(u.groups))
	for i, g := range u.groups {
		out[i] = string(g)
	}
	return out
}

// AddGroup appends group to the account. Adding a group the account
// already has is a no-op; an unknown group fails validation.
func (u *User) AddGroup(group Group) error {
	if !ValidGroup(group) {
		return fmt.Errorf("%w: unknown group %q", ErrValidation, group)
	}
	for _, g := range u.groups {
		if g == group {
			return nil
		}
	}
	u.groups = append(u.groups, group)
	return nil
}

// RemoveGroup removes group from the account. Removing a group the
// account does not have is an error.
func (u *User) RemoveGroup(group Group) error {
	for i, g := range u.groups {
		if g == group {
			u.groups = append(u.groups[:i], u.groups[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: group %q not present", ErrGroupNotFound, group)
}

func (u *User) Joined() time.Time     { return u.joined }
func (u *User) Confirmed() *time.Time { return u.confirmed }
func (u *User) LastLogin() *time.Time { return u.lastLogin }
func (u *User) PrevLogin() *time.Time { return u.prevLogin }

// Confirm grants the default groups and stamps the confirmation time.
// Calling it again re-stamps the time; groups are not duplicated.
func (u *User) Confirm() {
	for _, g := range DefaultGroups {
		_ = u.AddGroup(g)
	}
	now := time.Now().UTC()
	u.confirmed = &now
}

// TouchLogin shifts the last login into the previous-login slot and
// stamps the last login to now.
func (u *User) TouchLogin() time.Time {
	u.prevLogin = u.lastLogin
	now := time.Now().UTC()
	u.lastLogin = &now
	return now
}

// HasPassword reports whether credential material has been assigned.
func (u *User) HasPassword() bool {
	return u.salt != "" && u.hash != ""
}

// SetPassword validates password against the password policy and stores a
// freshly salted bcrypt hash. Two calls with the same password store
// different hashes.
func (u *User) SetPassword(password string, bcryptCost int) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	u.hash = string(hash)
	u.salt = string(hash[:saltPrefixLen])
	return nil
}

// CheckPassword reports whether password matches the stored credential.
// It returns false, not an error, when no credential material is set. A
// candidate that fails the password policy is a validation error, never a
// silent mismatch.
func (u *User) CheckPassword(password string) (bool, error) {
	if !u.HasPassword() {
		return false, nil
	}
	if err := validatePassword(password); err != nil {
		return false, err
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Validate checks that the record is complete enough to persist: a valid
// email, credential material, and a joined stamp. A user without
// salt/hash is valid only as a transient construction step.
func (u *User) Validate() error {
	if err := validateEmail(u.email); err != nil {
		return err
	}
	if !u.HasPassword() {
		return fmt.Errorf("%w: password has not been set", ErrValidation)
	}
	if u.joined.IsZero() {
		return fmt.Errorf("%w: joined timestamp is not set", ErrValidation)
	}
	return nil
}

// prepare is the pre-write cleanup pass: the joined stamp is assigned
// exactly once, on first persistence.
func (u *User) prepare() {
	if u.joined.IsZero() {
		u.joined = time.Now().UTC()
	}
}

func (u *User) setID(id string) { u.id = id }

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address %q", ErrValidation, email)
	}
	return nil
}

const (
	minPasswordLen = 8
	maxPasswordLen = 64
)

// validatePassword enforces the password policy: 8-64 characters with at
// least one lowercase letter, one uppercase letter, one digit and one
// symbol.
func validatePassword(password string) error {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be between %d and %d characters",
			ErrValidation, minPasswordLen, maxPasswordLen)
	}
	var lower, upper, digit, symbol bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return fmt.Errorf("%w: password must contain a lowercase letter, "+
			"an uppercase letter, a digit and a symbol", ErrValidation)
	}
	return nil
}
