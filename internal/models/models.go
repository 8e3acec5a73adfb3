package models

import (
	"sort"
	"strings"
	"time"
)

const DefaultRole = "USER"

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;not null"     json:"username"`
	Phone        string `gorm:"uniqueIndex;not null"     json:"phone"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Roles        string `gorm:"not null"                 json:"roles"`
}

// RoleSet returns the role labels as a slice. The column stores them
// comma-joined and sorted, so equality of columns is equality of sets.
func (u *User) RoleSet() []string {
	if u.Roles == "" {
		return nil
	}
	return strings.Split(u.Roles, ",")
}

func (u *User) SetRoles(roles ...string) {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	u.Roles = strings.Join(out, ",")
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.RoleSet() {
		if r == role {
			return true
		}
	}
	return false
}

// RevokedToken is an append-only ledger entry. ExpiresAt carries the
// token's own exp (unix seconds) so entries past their natural expiry
// can be pruned.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	RevokedAt time.Time `gorm:"not null"             json:"revoked_at"`
	ExpiresAt int64     `gorm:"index"                json:"expires_at"`
}
