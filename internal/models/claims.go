package models

import "github.com/dgrijalva/jwt-go"

// Claims is the bearer-token payload accepted by the sandbox backend.
// KeeperID falls back to the token subject when absent.
type Claims struct {
	KeeperID string `json:"keeper_id,omitempty"`
	jwt.StandardClaims
}
