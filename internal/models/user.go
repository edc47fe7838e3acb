package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the owning account for generated schedules. Account management and
// authentication live outside this service; users are read-only here.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// JWTClaims are the access token claims issued by the identity service.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}
