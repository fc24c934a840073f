package export

import (
	"errors"
	"fmt"
	"time"

	"ai-day-planner/internal/itinerary"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrSharingDisabled is returned when no share secret is configured.
	ErrSharingDisabled = errors.New("sharing is disabled: SHARE_SECRET is not set")
	// ErrInvalidShareToken covers bad signatures, expiry and malformed tokens.
	ErrInvalidShareToken = errors.New("invalid or expired share link")
)

const shareIssuer = "ai-day-planner"

// SharedTrip is what a share link carries.
type SharedTrip struct {
	Prefs     itinerary.TripPreferences `json:"prefs"`
	Itinerary itinerary.Itinerary       `json:"itinerary"`
}

type shareClaims struct {
	Trip SharedTrip `json:"trip"`
	jwt.RegisteredClaims
}

// ShareCodec signs trips into self-contained tokens. Nothing is stored
// server side; the token is the only copy.
type ShareCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewShareCodec creates a codec. An empty secret disables sharing.
func NewShareCodec(secret string, ttl time.Duration) (*ShareCodec, error) {
	if secret == "" {
		return nil, ErrSharingDisabled
	}
	return &ShareCodec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Encode signs the trip into a token valid for the configured TTL.
func (c *ShareCodec) Encode(prefs itinerary.TripPreferences, it itinerary.Itinerary) (string, error) {
	now := c.now()
	claims := shareClaims{
		Trip: SharedTrip{Prefs: prefs, Itinerary: it},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    shareIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign share token: %w", err)
	}
	return signed, nil
}

// Decode verifies a token and returns the trip it carries.
func (c *ShareCodec) Decode(tokenString string) (SharedTrip, error) {
	claims := &shareClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(shareIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return SharedTrip{}, fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
	}
	return claims.Trip, nil
}
