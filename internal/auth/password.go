package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when configuration leaves the cost unset.
const DefaultBcryptCost = 10

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// CompareAgainstDummy burns the same bcrypt work as a real comparison. Call it
// when the account does not exist so timing does not reveal that.
func CompareAgainstDummy(plain string, cost int) {
	dummyOnce.Do(func() {
		if cost <= 0 {
			cost = DefaultBcryptCost
		}
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("helpdesk-dummy-password"), cost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
