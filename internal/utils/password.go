package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword bcrypt-hashes an admin password at the given cost. Admin
// accounts are the only credentialed principals here; the public board
// page never sends one.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored admin password hash against a login
// attempt.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
