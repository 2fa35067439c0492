// client/auth.go
package client

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Danhnam1/Audit-System-sub002/models"
)

// Claims is the token payload the remote store issues at login. The role
// claim is what the workflow validator checks transitions against.
type Claims struct {
	UserID       string      `json:"userID"`
	Name         string      `json:"name"`
	Role         models.Role `json:"role"`
	DepartmentID string      `json:"departmentId"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for the given identity. Used by the stub
// server; a real deployment gets tokens from its identity provider.
func GenerateToken(key []byte, expiration time.Duration, userID, name string, role models.Role, departmentID string) (string, error) {
	claims := Claims{
		UserID:       userID,
		Name:         name,
		Role:         role,
		DepartmentID: departmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateToken verifies a signed token and returns its claims.
func ValidateToken(key []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ParseClaims reads the claims out of a token without verifying the
// signature. The client is not the token's audience verifier — the remote
// store is — it only needs to know who it is acting as.
func ParseClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}
