package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a ledger participant and their current balance.
// The core only reads Balance (as a snapshot at transaction creation);
// settlement against it belongs to the bank-transfer collaborator.
type User struct {
	ID                  string          `json:"id"`
	Username            string          `json:"username"`
	FirstName           string          `json:"firstName"`
	LastName            string          `json:"lastName"`
	Email               string          `json:"email,omitempty"`
	PhoneNumber         string          `json:"phoneNumber,omitempty"`
	Avatar              string          `json:"avatar,omitempty"`
	Balance             decimal.Decimal `json:"balance"`
	DefaultPrivacyLevel PrivacyLevel    `json:"defaultPrivacyLevel"`
	PasswordHash        string          `json:"-"`
	CreatedAt           time.Time       `json:"createdAt"`
	ModifiedAt          time.Time       `json:"modifiedAt"`
}

// UserPatch is a partial update of a user's mutable fields. Nil means leave
// the column alone. Balance and the password hash are not patchable here.
type UserPatch struct {
	Username            *string
	FirstName           *string
	LastName            *string
	Email               *string
	PhoneNumber         *string
	Avatar              *string
	DefaultPrivacyLevel *PrivacyLevel
}

// Profile is the public subset of a user exposed without authentication.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar,omitempty"`
}

// Contact is a directional contact row. Visibility logic reads the relation
// symmetrically: a row in either direction grants contact-level access.
type Contact struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ContactUserID string    `json:"contactUserId"`
	CreatedAt     time.Time `json:"createdAt"`
}
