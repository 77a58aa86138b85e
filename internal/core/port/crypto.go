package port

// PasswordVerifier compares a raw password against a stored hash.
// Hashing itself happens outside this service.
type PasswordVerifier interface {
	Verify(rawPassword, passwordHash string) (bool, error)
	Hash(rawPassword string) (string, error)
}
