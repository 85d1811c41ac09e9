package services

// PasswordHasher abstracts password hashing for email signup and login.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}
