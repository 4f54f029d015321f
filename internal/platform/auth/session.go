package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer is the iss claim of doctor session tokens.
const TokenIssuer = "queue-server"

type Claims struct {
	jwt.RegisteredClaims
	DoctorID int64  `json:"doctor_id"`
	Tier     string `json:"tier"`
	Name     string `json:"name"`
}

// Session is the authenticated doctor behind a request.
type Session struct {
	DoctorID  int64     `json:"doctor_id"`
	Name      string    `json:"name"`
	Tier      string    `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for s. ExpiresAt is set from the issuer's TTL.
func (i *Issuer) Issue(s *Session) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("session signing secret is not configured")
	}
	now := i.now()
	s.ExpiresAt = now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   strconv.FormatInt(s.DoctorID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		DoctorID: s.DoctorID,
		Tier:     s.Tier,
		Name:     s.Name,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (i *Issuer) Parse(tokenStr string) (*Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	if claims.Subject != strconv.FormatInt(claims.DoctorID, 10) {
		return nil, fmt.Errorf("invalid session token: subject mismatch")
	}
	return &Session{
		DoctorID:  claims.DoctorID,
		Name:      claims.Name,
		Tier:      claims.Tier,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
