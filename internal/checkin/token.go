package checkin

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	qrIssuer   = "gymdesk-checkin"
	qrAudience = "gymdesk-qr"
)

var (
	errMalformedToken = errors.New("malformed qr token")
	errExpiredToken   = errors.New("qr token expired")
)

type qrToken struct {
	UserID    int
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func signToken(userID int, issuedAt time.Time, ttl time.Duration, secret string) (string, qrToken, error) {
	tok := qrToken{
		UserID:    userID,
		Nonce:     uuid.NewString(),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}
	claims := jwt.RegisteredClaims{
		Issuer:    qrIssuer,
		Subject:   strconv.Itoa(userID),
		Audience:  jwt.ClaimStrings{qrAudience},
		IssuedAt:  jwt.NewNumericDate(tok.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(tok.ExpiresAt),
		ID:        tok.Nonce,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", qrToken{}, err
	}
	return signed, tok, nil
}

// parseToken checks the signature and the validity window against now.
func parseToken(raw, secret string, ttl time.Duration, now time.Time) (qrToken, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(qrAudience),
		jwt.WithIssuer(qrIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		// exp equals iat+ttl, so the parser alone would reject a token at
		// exactly ttl; the window below is the authoritative check.
		jwt.WithLeeway(time.Second),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return qrToken{}, errExpiredToken
		}
		return qrToken{}, errMalformedToken
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID <= 0 || claims.ID == "" || claims.IssuedAt == nil {
		return qrToken{}, errMalformedToken
	}

	tok := qrToken{
		UserID:    userID,
		Nonce:     claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if now.Sub(tok.IssuedAt) > ttl {
		return qrToken{}, errExpiredToken
	}
	return tok, nil
}
