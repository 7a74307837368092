package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength     = 16
	argonTime      = 1
	argonMemory    = 64 * 1024
	argonThreads   = 4
	argonKeyLength = 32
)

// dummySalt and dummyHash are compared against when the user does not exist
// so that unknown usernames take as long as wrong passwords.
var (
	dummySalt = make([]byte, saltLength)
	dummyHash = argon2.IDKey([]byte("not-a-password"), dummySalt, argonTime, argonMemory, argonThreads, argonKeyLength)
)

// HashPassword derives an argon2id hash with a fresh random salt. Both are
// returned base64 encoded.
func HashPassword(password string) (hash, salt string, err error) {
	rawSalt := make([]byte, saltLength)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}

	rawHash := argon2.IDKey([]byte(password), rawSalt, argonTime, argonMemory, argonThreads, argonKeyLength)
	return base64.StdEncoding.EncodeToString(rawHash), base64.StdEncoding.EncodeToString(rawSalt), nil
}

// VerifyPassword reports whether password matches the stored hash and salt.
func VerifyPassword(password, hash, salt string) bool {
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false
	}
	rawHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), rawSalt, argonTime, argonMemory, argonThreads, uint32(len(rawHash)))
	return subtle.ConstantTimeCompare(computed, rawHash) == 1
}

func burnPassword(password string) {
	computed := argon2.IDKey([]byte(password), dummySalt, argonTime, argonMemory, argonThreads, argonKeyLength)
	subtle.ConstantTimeCompare(computed, dummyHash)
}
