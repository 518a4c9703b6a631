package utils

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var JWTSecret []byte

func init() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Development fallback; override in production via .env
		secret = "TableSessionSecret2209"
	}
	JWTSecret = []byte(secret)
}

// SessionClaims is the payload of the per-session opaque token handed to
// every participant at join time. The websocket endpoint authenticates with
// it, so it carries everything the hub needs to place a connection in a room.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	TableID   uint   `json:"table_id"`
	CartID    string `json:"cart_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	jwt.RegisteredClaims
}

func GenerateSessionToken(sessionID string, tableID uint, cartID, userID, userName string) (string, error) {
	claims := &SessionClaims{
		SessionID: sessionID,
		TableID:   tableID,
		CartID:    cartID,
		UserID:    userID,
		UserName:  userName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "dinesync",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

func ParseSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired session token")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, errors.New("invalid session token claims")
	}
	return claims, nil
}
