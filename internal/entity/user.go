package entity

import "time"

type Role string

const (
	RoleConsumer    Role = "consumer"
	RoleSellerAdmin Role = "seller_admin"
	RoleSystemAdmin Role = "system_admin"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // empty for guest records created at checkout
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Verified     bool      `json:"verified"`
	Active       bool      `json:"active"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsGuest reports whether the user only exists to own guest orders.
func (u *User) IsGuest() bool {
	return u.PasswordHash == "" && !u.Verified
}

/*
Mysql Schema:

CREATE TABLE users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	email VARCHAR(255) COLLATE utf8mb4_unicode_ci NOT NULL,
	password_hash VARCHAR(255) NOT NULL DEFAULT '',
	...
	UNIQUE KEY users_email_idx (email)
);

The case-insensitive collation makes the unique index and `WHERE email = ?`
lookups case-insensitive.
*/
