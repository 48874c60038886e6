package model

import "time"

// User is a back-office profile stored in the usuarios collection.
type User struct {
	UserID             string    `bson:"user_id" json:"user_id"`
	Email              string    `bson:"email" json:"email"`
	DisplayName        string    `bson:"display_name" json:"display_name"`
	Password           string    `bson:"password" json:"-"`
	Role               string    `bson:"role" json:"role"`
	Active             bool      `bson:"active" json:"active"`
	TwoFactorSecret    string    `bson:"two_factor_secret,omitempty" json:"-"`
	TwoFactorEnabled   bool      `bson:"two_factor_enabled" json:"two_factor_enabled"`
	RecoveryCodes      []string  `bson:"recovery_codes,omitempty" json:"-"`
	LastPasswordChange time.Time `bson:"last_password_change,omitempty" json:"last_password_change,omitempty"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updated_at"`
}
