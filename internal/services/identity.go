package services

import (
	"context"

	"google.golang.org/api/idtoken"

	"flashdeck-backend/internal/models"
)

// IdentityVerifier turns an external identity token into the identity it
// vouches for.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*models.Identity, error)
}

// GoogleVerifier checks Google ID tokens against the configured OAuth
// client id.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*models.Identity, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid Google token"}
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" || payload.Subject == "" {
		return nil, &ValidationError{Fields: map[string]string{"id_token": "Google account missing email"}}
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, &UnauthorizedError{Message: "Google account email is not verified"}
	}

	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	return &models.Identity{
		Subject: payload.Subject,
		Email:   email,
		Name:    name,
		Picture: picture,
	}, nil
}
