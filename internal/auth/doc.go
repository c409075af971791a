// Package auth provides credential handling for coven-chat accounts.
//
// # Passwords
//
// Passwords are stored as bcrypt hashes:
//
//	hash, err := HashPassword(password, cost)
//	match, legacy := VerifyPassword(stored, password)
//
// Databases written by older clients may hold clear-text passwords.
// VerifyPassword accepts those with a constant-time comparison and reports
// legacy=true so the store can replace the row with a hash after a
// successful login.
//
// When the account does not exist, BurnCompare runs a bcrypt comparison
// against a fixed hash so an unknown email costs the same as a wrong
// password.
//
// # Sessions
//
// A session token is a random UUID:
//
//	token := NewSessionToken()
//	ok := ValidSessionToken(token)
//
// ValidSessionToken only checks the shape; the store decides whether the
// token is live.
package auth
