package access

import (
	"fmt"
	"strings"
)

// Role is a capability which can be granted to an address.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleValidator
	RoleIssuer
	RoleTreasury
	RoleSponsor
)

var roleNames = map[Role]string{
	RoleAdmin:     "admin",
	RoleValidator: "validator",
	RoleIssuer:    "issuer",
	RoleTreasury:  "treasury",
	RoleSponsor:   "sponsor",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}
