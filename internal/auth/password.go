package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes and checks local passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashed, plain string) error
}

// BcryptHasher is the production hasher.
type BcryptHasher struct {
	Cost int
}

// Hash hashes a plaintext password with configured cost.
func (b BcryptHasher) Hash(password string) (string, error) {
	cost := b.Cost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare verifies a password against its hashed value.
func (b BcryptHasher) Compare(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
