package domain

import "context"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	UserID    string `json:"user_id"`
	Roles     []string `json:"roles"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (LoginResult, error)
	// IssueToken mints a bearer token for the given user.
	IssueToken(user User) (string, error)
	// VerifyToken resolves a raw bearer token to the caller identity.
	VerifyToken(raw string) (Identity, error)
}
