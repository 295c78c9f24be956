package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorTokenIssuer is the issuer stamped on operator tokens minted by ledgerctl.
const OperatorTokenIssuer = "repair-shop-billing"

// GenerateOperatorJWT signs an HS256 token whose subject is the operator id recorded in audit fields.
func GenerateOperatorJWT(operatorID, secret string, ttl time.Duration, now time.Time) (string, error) {
	if operatorID == "" {
		return "", errors.New("operator id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token lifetime must be positive, got %s", ttl)
	}
	claims := jwt.RegisteredClaims{
		Issuer:    OperatorTokenIssuer,
		Subject:   operatorID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseOperatorJWT validates the signature and time claims of tokenString.
// Errors wrap the jwt sentinels, so errors.Is(err, jwt.ErrTokenExpired) works.
func ParseOperatorJWT(tokenString, secret string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject missing", jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}
