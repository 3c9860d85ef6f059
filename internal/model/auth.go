package model

import "time"

type LoginRequest struct {
	Provider    string `json:"provider" binding:"required"`
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirect_uri"`
}

type LoginResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    UserProfile `json:"user"`
}

// UserProfile is the live view of a user record returned to clients.
type UserProfile struct {
	SubjectID               string     `json:"subject_id"`
	Provider                Provider   `json:"provider"`
	Username                string     `json:"username"`
	AvatarURL               string     `json:"avatar_url,omitempty"`
	Role                    Role       `json:"role"`
	Banned                  bool       `json:"banned"`
	ShadowBanned            bool       `json:"shadow_banned"`
	MutedUntil              *time.Time `json:"muted_until"`
	WarningCount            int        `json:"warning_count"`
	WarningThresholdReached bool       `json:"warning_threshold_reached"`
}

type MeResponse struct {
	Success bool        `json:"success"`
	User    UserProfile `json:"user"`
}

type ProvidersResponse struct {
	Success   bool       `json:"success"`
	Providers []Provider `json:"providers"`
}

func NewUserProfile(u *User, thresholdReached bool) UserProfile {
	return UserProfile{
		SubjectID:               u.SubjectID,
		Provider:                u.Provider,
		Username:                u.Username,
		AvatarURL:               u.AvatarURL,
		Role:                    u.Role,
		Banned:                  u.Banned,
		ShadowBanned:            u.ShadowBanned,
		MutedUntil:              u.MutedUntil,
		WarningCount:            u.WarningCount,
		WarningThresholdReached: thresholdReached,
	}
}
