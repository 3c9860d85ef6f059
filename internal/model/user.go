package model

import (
	"fmt"
	"strings"
	"time"
)

// Provider - 외부 identity provider 코드
type Provider string

const (
	ProviderDiscord Provider = "discord"
	ProviderGoogle  Provider = "google"
)

// KnownProviders lists every provider a token may be issued for.
var KnownProviders = []Provider{ProviderDiscord, ProviderGoogle}

func ParseProvider(value string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(value)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown provider: %q", value)
	}
	return p, nil
}

func (p Provider) Valid() bool {
	for _, known := range KnownProviders {
		if p == known {
			return true
		}
	}
	return false
}

// Identity is the (subject_id, provider) pair every user record is keyed by.
type Identity struct {
	SubjectID string   `json:"subject_id"`
	Provider  Provider `json:"provider"`
}

// Key is the ledger/limiter key for the identity.
func (i Identity) Key() string {
	return string(i.Provider) + ":" + i.SubjectID
}

func (i Identity) String() string {
	return i.Key()
}

func (i Identity) IsZero() bool {
	return i.SubjectID == "" && i.Provider == ""
}

// Role - 권한 레벨 (user < moderator < admin < super_admin)
type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Roles in ascending rank order.
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin, RoleSuperAdmin}

func ParseRole(value string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(value)))
	if r.Rank() < 0 {
		return "", fmt.Errorf("unknown role: %q", value)
	}
	return r, nil
}

// Rank returns the position of r in the role order, or -1 for unknown roles.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 0
	case RoleModerator:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	default:
		return -1
	}
}

func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= 0 && r.Rank() >= min.Rank()
}

// User - users 테이블 레코드
type User struct {
	ID           int64
	SubjectID    string
	Provider     Provider
	Username     string
	AvatarURL    string
	Role         Role
	Banned       bool
	BanReason    string
	ShadowBanned bool
	MutedUntil   *time.Time
	WarningCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Identity() Identity {
	return Identity{SubjectID: u.SubjectID, Provider: u.Provider}
}

// DefaultUser is the record assumed for identities that have never been persisted.
func DefaultUser(id Identity) *User {
	return &User{
		SubjectID: id.SubjectID,
		Provider:  id.Provider,
		Role:      RoleUser,
	}
}

// ExternalIdentity is what a login provider reports after a successful code exchange.
type ExternalIdentity struct {
	Identity  Identity
	Username  string
	AvatarURL string
}

// UserStats - 사용자 활동 통계
type UserStats struct {
	Identity                Identity `json:"identity"`
	Username                string   `json:"username"`
	Comments                int64    `json:"comments"`
	UpvotesReceived         int64    `json:"upvotes_received"`
	DownvotesReceived       int64    `json:"downvotes_received"`
	ReportsFiled            int64    `json:"reports_filed"`
	WarningCount            int      `json:"warning_count"`
	WarningThresholdReached bool     `json:"warning_threshold_reached"`
}
