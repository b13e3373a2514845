package model

import "time"

// User represents an application user record as stored in the `users`
// table. Authentication is email + password; the wallet-identity linkage of
// the hosted product is carried on the profile row (ens_label), not here.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user and contains metadata for expiry and revocation.
// The plain token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Profile holds the displayable identity of a user: the fields shown to a
// counterparty on the confirmation page and used when addressing invites.
type Profile struct {
	UserID    uint64    // profiles.user_id
	Name      *string   // profiles.name (nullable)
	Email     *string   // profiles.email (nullable)
	PhoneE164 *string   // profiles.phone_e164 (nullable)
	ENSLabel  *string   // profiles.ens_label (nullable)
	Currency  string    // profiles.currency
	CreatedAt time.Time // profiles.created_at
	UpdatedAt time.Time // profiles.updated_at
}

// MissingFields lists which of the contact fields a profile still lacks.
// The dashboard nags the user until name, email and phone are all present.
func (p Profile) MissingFields() []string {
	missing := []string{}
	if p.Name == nil || *p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Email == nil || *p.Email == "" {
		missing = append(missing, "email")
	}
	if p.PhoneE164 == nil || *p.PhoneE164 == "" {
		missing = append(missing, "phone")
	}
	return missing
}
