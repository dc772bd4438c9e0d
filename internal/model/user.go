package model

import "time"

// User represents an application user record as stored in the
// `users` table.  The username is the primary key and never changes.
//
// Fields:
//
//	Username     – unique identifier chosen at registration.
//	PasswordHash – bcrypt hashed password.
//	FirstName    – given name.
//	LastName     – family name.
//	Phone        – contact phone number, free-form.
//	JoinAt       – registration timestamp.
//	LastLoginAt  – last successful authentication (nil until the first one).
type User struct {
	Username     string     // users.username
	PasswordHash string     // users.password_hash
	FirstName    string     // users.first_name
	LastName     string     // users.last_name
	Phone        string     // users.phone
	JoinAt       time.Time  // users.join_at
	LastLoginAt  *time.Time // users.last_login_at (nullable)
}

// UserRef is the public profile of a user embedded in message details.
// It never carries the password hash.
type UserRef struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Ref returns the public profile view of u.
func (u User) Ref() UserRef {
	return UserRef{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone}
}
