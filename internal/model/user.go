// Package model defines the data structures used throughout the application.
//
// Every struct carries two sets of tags: `json` for the HTTP layer and `bson`
// for the MongoDB store. Field names follow the documents the frontend
// already consumes (userId, isEmailVerified, ...), so they are camelCase in
// both encodings.
package model

import "time"

// User represents a registered account.
//
// An account is created either by password registration (IsManualAuth=true)
// or by the first Google sign-in (IsManualAuth=false, no password). Email is
// unique across all users and ID never changes once assigned.
//
// Sensitive fields are tagged `json:"-"` so a User can be returned by the
// API as-is without leaking the hash or the provider id.
type User struct {
	ID                    string    `json:"userId"                bson:"userId"`
	Name                  string    `json:"name"                  bson:"name"`
	Username              string    `json:"username,omitempty"    bson:"username,omitempty"`
	Email                 string    `json:"email"                 bson:"email"`
	PasswordHash          string    `json:"-"                     bson:"password,omitempty"`
	GoogleID              string    `json:"-"                     bson:"googleId,omitempty"`
	ProfilePicture        string    `json:"profilePicture"        bson:"profilePicture"`
	IsActive              bool      `json:"isActive"              bson:"isActive"`
	IsEmailVerified       bool      `json:"isEmailVerified"       bson:"isEmailVerified"`
	IsManualAuth          bool      `json:"-"                     bson:"isManualAuth"`
	IsUsernameUpdated     bool      `json:"isUsernameUpdated"     bson:"isUsernameUpdated"`
	IsOnBoardingCompleted bool      `json:"isOnBoardingCompleted" bson:"isOnBoardingCompleted"`
	Skills                []string  `json:"skills"                bson:"skills"`
	CreatedAt             time.Time `json:"-"                     bson:"createdAt"`
	UpdatedAt             time.Time `json:"-"                     bson:"updatedAt"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.IsManualAuth && u.PasswordHash != ""
}

// Profile is the public view of a user returned by GET /user/profile/{userId}.
// Skills are resolved to full Skill records rather than ids.
type Profile struct {
	UserID                string  `json:"userId"                bson:"userId"`
	Username              string  `json:"username,omitempty"    bson:"username,omitempty"`
	ProfilePicture        string  `json:"profilePicture"        bson:"profilePicture"`
	IsOnBoardingCompleted bool    `json:"isOnBoardingCompleted" bson:"isOnBoardingCompleted"`
	Skills                []Skill `json:"skills"                bson:"skills"`
}
