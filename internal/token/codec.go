// Package token decodes Trawells bearer tokens into their identity claims.
//
// The decoder is deliberately signature-blind: the client consumes tokens the
// backend already signed and only needs the embedded claims and expiry. All
// expiry checks fail closed, so an undecodable token behaves like an expired
// one.
package token

import (
	"errors"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken indicates the string is not a three-segment token
	// with a decodable payload.
	ErrMalformedToken = errors.New("token: malformed token")
	// ErrMissingClaims indicates a structurally valid payload that lacks one
	// of the required identity claims.
	ErrMissingClaims = errors.New("token: required claims missing")
)

// MinutesUnknown is the sentinel returned by MinutesUntilExpiry when the
// token cannot be decoded at all. It is distinct from 0, which means the
// token decoded fine but has already expired.
const MinutesUnknown = -1

// Claim names are fixed by the Trawells backend and case-sensitive.
const (
	claimEmail      = "Email"
	claimUserID     = "userid"
	claimFirstName  = "firstname"
	claimLastName   = "lastname"
	claimDepartment = "departmentid"
	claimRole       = "role"
	claimRoleID     = "roleId"
	claimManagerID  = "managerid"
	claimExpiresAt  = "exp"
	claimIssuedAt   = "iat"
)

// Claims holds the identity fields embedded in a bearer token.
type Claims struct {
	SubjectEmail string
	UserID       int64
	FirstName    string
	LastName     string
	DepartmentID int64
	RoleName     string
	RoleID       int64
	ManagerID    int64
	HasManager   bool
	IssuedAt     int64
	ExpiresAt    int64
}

// Decode parses the claims out of a raw bearer token without verifying its
// signature. It is pure and deterministic: the same input always yields the
// same result and nothing is read from the environment.
func Decode(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return Claims{}, ErrMalformedToken
	}

	payload := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, payload); err != nil {
		return Claims{}, ErrMalformedToken
	}

	email, _ := payload[claimEmail].(string)
	roleName, _ := payload[claimRole].(string)
	userID, hasUserID := toInt64(payload[claimUserID])
	if strings.TrimSpace(email) == "" || strings.TrimSpace(roleName) == "" || !hasUserID {
		return Claims{}, ErrMissingClaims
	}

	claims := Claims{
		SubjectEmail: email,
		UserID:       userID,
		RoleName:     roleName,
	}
	if v, ok := payload[claimFirstName].(string); ok {
		claims.FirstName = v
	}
	// lastname is nullable on the wire; a JSON null shows up as an untyped nil.
	if v, ok := payload[claimLastName].(string); ok {
		claims.LastName = v
	}
	if v, ok := toInt64(payload[claimDepartment]); ok {
		claims.DepartmentID = v
	}
	if v, ok := toInt64(payload[claimRoleID]); ok {
		claims.RoleID = v
	}
	if v, ok := toInt64(payload[claimManagerID]); ok {
		claims.ManagerID = v
		claims.HasManager = true
	}
	if v, ok := toInt64(payload[claimExpiresAt]); ok {
		claims.ExpiresAt = v
	}
	if v, ok := toInt64(payload[claimIssuedAt]); ok {
		claims.IssuedAt = v
	}
	return claims, nil
}

// IsExpired reports whether the token's expiry has passed at nowSeconds.
// Decode failures count as expired.
func IsExpired(raw string, nowSeconds int64) bool {
	claims, err := Decode(raw)
	if err != nil {
		return true
	}
	return claims.ExpiresAt <= nowSeconds
}

// MinutesUntilExpiry returns the whole minutes remaining before the token
// expires, clamped at zero. It returns MinutesUnknown when the token cannot
// be decoded.
func MinutesUntilExpiry(raw string, nowSeconds int64) int {
	claims, err := Decode(raw)
	if err != nil {
		return MinutesUnknown
	}
	remaining := claims.ExpiresAt - nowSeconds
	if remaining <= 0 {
		return 0
	}
	return int(remaining / 60)
}

// toInt64 accepts the numeric shapes the backend has been observed to emit:
// JSON numbers arrive as float64, some legacy claims as quoted strings.
func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return 0, false
		}
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
