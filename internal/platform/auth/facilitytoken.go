package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidFacilityToken is returned when a facility token cannot be decoded
// or carries no facility code. Callers treat it as "no facility selected".
var ErrInvalidFacilityToken = errors.New("auth: invalid facility token")

// FacilityCodec signs and decodes the opaque facility tokens the portal hands
// to the browser instead of raw facility codes. Tokens are HS256 JWTs with a
// single claim carrying the code.
type FacilityCodec struct {
	secret []byte
	ttl    time.Duration
}

const facilityClaim = "fac"

// NewFacilityCodec creates a codec for the given signing secret. Tokens
// expire after 12 hours, the length of a reporting session.
func NewFacilityCodec(secret []byte) *FacilityCodec {
	return &FacilityCodec{secret: secret, ttl: 12 * time.Hour}
}

// EncodeFacility wraps a facility code in a signed token.
func (c *FacilityCodec) EncodeFacility(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: empty facility code", ErrInvalidFacilityToken)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		facilityClaim: code,
		"iat":         now.Unix(),
		"exp":         now.Add(c.ttl).Unix(),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign facility token: %w", err)
	}
	return signed, nil
}

// DecodeFacility extracts the facility code from a signed token. Any parse,
// signature, or expiry failure yields ErrInvalidFacilityToken; callers never
// see a facility code from a token that did not verify.
func (c *FacilityCodec) DecodeFacility(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidFacilityToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidFacilityToken
	}
	code, _ := claims[facilityClaim].(string)
	if code == "" {
		return "", fmt.Errorf("%w: missing facility claim", ErrInvalidFacilityToken)
	}
	return code, nil
}
