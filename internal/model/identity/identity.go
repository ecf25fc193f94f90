package identity

import (
	"errors"
	"strings"
	"unicode"

	"github.com/zhouzirui/support-desk/backend/internal/errs"
)

// Role tags which side of the support conversation an identity is on.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

const (
	AdminID   = "admin-id"
	AdminName = "Support Admin"

	joinChar  = "_"
	separator = "-"
)

var (
	ErrFirstNameRequired = errors.New("firstName is required")
	ErrLastNameRequired  = errors.New("lastName is required")
)

// Identity is a principal known to the messaging backend.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

var admin = Identity{ID: AdminID, Name: AdminName, Role: RoleAdmin}

// Admin returns the fixed support admin identity.
func Admin() Identity {
	return admin
}

// DeriveCustomer builds the customer identity from the submitted names.
// The id is "<first>-<last>" lowercased, with every whitespace rune inside a
// name replaced by "_". Leading and trailing whitespace is dropped first.
func DeriveCustomer(firstName, lastName string) (Identity, error) {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	if first == "" {
		return Identity{}, errs.Validation("derive customer identity", ErrFirstNameRequired)
	}
	if last == "" {
		return Identity{}, errs.Validation("derive customer identity", ErrLastNameRequired)
	}

	id := strings.ToLower(normalize(first) + separator + normalize(last))
	return Identity{ID: id, Name: first, Role: RoleCustomer}, nil
}

// WithNonce appends a per-session suffix to a customer id so two people
// sharing a name get distinct identities.
func WithNonce(id Identity, nonce string) Identity {
	nonce = strings.ToLower(strings.TrimSpace(nonce))
	if nonce == "" || id.Role != RoleCustomer {
		return id
	}
	id.ID = id.ID + separator + normalize(nonce)
	return id
}

func normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) {
			b.WriteString(joinChar)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
