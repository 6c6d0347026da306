package server

import (
	"context"

	"firebase.google.com/go/auth"
	"github.com/pkg/errors"
	"github.com/techagentng/imagegallery/services/jwt"
)

// IdentityVerifier turns a bearer token into the id of the signed-in user.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier accepts HS256 tokens carrying an email claim.
type JWTVerifier struct {
	Secret string
}

func (v JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	claims, err := jwt.ValidateAndGetClaims(token, v.Secret)
	if err != nil {
		return "", err
	}
	return jwt.EmailFromClaims(claims)
}

// FirebaseVerifier accepts Firebase Auth ID tokens. Users are identified by
// email, falling back to the Firebase uid for accounts without one.
type FirebaseVerifier struct {
	Client *auth.Client
}

func (v FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	tok, err := v.Client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", errors.Wrap(err, "verify id token")
	}
	if email, ok := tok.Claims["email"].(string); ok && email != "" {
		return email, nil
	}
	return tok.UID, nil
}
