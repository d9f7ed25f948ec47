// Package role derives access tiers from identities.
//
// Roles are never stored. Callers recompute them from the current identity
// every time they need one.
package role

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/VinMeld/campus-chat/internal/models"
)

type Role string

const (
	Administrator Role = "administrator"
	Instructor    Role = "instructor"
	Student       Role = "student"
	Guest         Role = "guest"
)

// Role ids as issued by the identity provider.
const (
	IDAdministrator = 1
	IDInstructor    = 2
	IDStudent       = 3
)

// InstitutionalDomain is the only mail domain that maps to a non-guest role
// by pattern.
const InstitutionalDomain = "mail.utec.edu.sv"

var (
	studentLocal = regexp.MustCompile(`^[0-9]+$`)
	staffLocal   = regexp.MustCompile(`^[a-z]+(\.[a-z]+)+$`)
)

// Resolve maps an identity to its role. A nil identity is a Guest. A known
// role id wins over the email pattern.
func Resolve(id *models.Identity) Role {
	if id == nil {
		return Guest
	}
	if r, ok := fromID(id.RoleID); ok {
		return r
	}
	return fromEmail(id.Email)
}

// ResolveIdentifier accepts either an email address or a numeric role id.
func ResolveIdentifier(identifier string) Role {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Guest
	}
	if n, err := strconv.Atoi(identifier); err == nil {
		if r, ok := fromID(n); ok {
			return r
		}
		return Guest
	}
	return fromEmail(identifier)
}

func fromID(id int) (Role, bool) {
	switch id {
	case IDAdministrator:
		return Administrator, true
	case IDInstructor:
		return Instructor, true
	case IDStudent:
		return Student, true
	default:
		return "", false
	}
}

func fromEmail(email string) Role {
	local, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !ok || domain != InstitutionalDomain {
		return Guest
	}
	switch {
	case studentLocal.MatchString(local):
		return Student
	case staffLocal.MatchString(local):
		return Administrator
	default:
		return Guest
	}
}

// CanManageDocuments reports whether r may open the document manager.
func CanManageDocuments(r Role) bool {
	return r == Administrator
}
