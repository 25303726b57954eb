package services

import (
	"errors"
	"fmt"
	"time"

	"faculty-ranker-api/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	oauthStateSubject = "google-oauth-state"
	oauthStateTTL     = 10 * time.Minute

	imageTicketAudience = "faculty-image"
	imageTicketTTL      = 24 * time.Hour
)

// Claims is the access token payload.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	expire time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, expireHours int) *TokenIssuer {
	if expireHours <= 0 {
		expireHours = 1
	}
	return &TokenIssuer{
		secret: []byte(secret),
		expire: time.Duration(expireHours) * time.Hour,
		now:    time.Now,
	}
}

func (t *TokenIssuer) Issue(user *models.User) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: user.UserID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// IssueState returns a short-lived signed value for the OAuth state parameter.
func (t *TokenIssuer) IssueState() (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   oauthStateSubject,
		ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenIssuer) VerifyState(state string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithSubject(oauthStateSubject))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}

type imageTicketClaims struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	jwt.RegisteredClaims
}

// IssueImageTicket binds an uploaded image to the user who uploaded it.
func (t *TokenIssuer) IssueImageTicket(userID string, img *UploadedImage) (string, error) {
	now := t.now()
	claims := imageTicketClaims{
		URL:      img.URL,
		PublicID: img.PublicID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{imageTicketAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(imageTicketTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// ParseImageTicket returns the image a ticket was issued for, provided it was
// issued to userID.
func (t *TokenIssuer) ParseImageTicket(ticket, userID string) (*UploadedImage, error) {
	if userID == "" {
		return nil, ErrInvalidImageTicket
	}
	claims := &imageTicketClaims{}
	_, err := jwt.ParseWithClaims(ticket, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithAudience(imageTicketAudience),
		jwt.WithSubject(userID))
	if err != nil || claims.PublicID == "" {
		return nil, ErrInvalidImageTicket
	}
	return &UploadedImage{URL: claims.URL, PublicID: claims.PublicID}, nil
}

func (t *TokenIssuer) keyFunc(*jwt.Token) (interface{}, error) {
	return t.secret, nil
}
