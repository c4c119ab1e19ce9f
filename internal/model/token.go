package model

import "time"

// TokenPurpose distinguishes the one-time tokens mailed to users.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// VerificationToken is a one-time opaque id proving control of an email
// address. There is at most one pending token per (user, purpose); asking
// again before it is consumed re-sends the same id.
type VerificationToken struct {
	ID        string       `json:"verificationTokenId" bson:"verificationTokenId"`
	UserID    string       `json:"userId"              bson:"userId"`
	Purpose   TokenPurpose `json:"purpose"             bson:"purpose"`
	CreatedAt time.Time    `json:"createdAt"           bson:"createdAt"`
}
