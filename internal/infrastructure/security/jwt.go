// Package security provides JWT token utilities
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// VoterSession holds the claims minted on a successful credential check.
type VoterSession struct {
	VoterID    string
	ElectionID string
	UniqueID   string
}

// GenerateVoterToken creates a short-lived JWT for an authenticated voter.
func GenerateVoterToken(session VoterSession, jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":        session.VoterID,
		"electionId": session.ElectionID,
		"uniqueId":   session.UniqueID,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ValidateVoterToken validates a voter session token and returns its claims.
func ValidateVoterToken(tokenString, jwtSecret string) (*VoterSession, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	session := &VoterSession{}
	if sub, ok := claims["sub"].(string); ok {
		session.VoterID = sub
	}
	if electionID, ok := claims["electionId"].(string); ok {
		session.ElectionID = electionID
	}
	if uniqueID, ok := claims["uniqueId"].(string); ok {
		session.UniqueID = uniqueID
	}
	if session.VoterID == "" {
		return nil, errors.New("invalid token")
	}
	return session, nil
}
