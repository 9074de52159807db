// Package schema defines the data structures shared between the LRS
// daemon, the SDK and the CLI.
package schema

import "time"

// User is a registered account. The password hash and sealed magic token
// never leave the server: they are excluded from every JSON response.
type User struct {
	ID          string    `json:"id" bson:"_id"`
	Email       string    `json:"email" bson:"email"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	Role        string    `json:"role,omitempty" bson:"role,omitempty"`
	Hash        string    `json:"-" bson:"hash"`
	MagicNonce  string    `json:"-" bson:"magic_nonce,omitempty"`
	LastActive  time.Time `json:"last_active" bson:"last_active"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Credentials is the body of the password credential exchange.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MagicCredentials is the body of the single-use token exchange.
type MagicCredentials struct {
	MagicToken string `json:"magicToken"`
}

// AuthResponse is returned by both credential exchanges on success.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Registration is the body of the account-creation operation.
type Registration struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role,omitempty"`
}
