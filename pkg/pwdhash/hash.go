// Package pwdhash hashes the API keys that guard the conversion service.
// Only hashes are written into config files, never the keys themselves.
package pwdhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// A hash is 1 byte of version, followed by 16 bytes of salt, followed by 32 bytes of scrypt.
const (
	hashVersion = 1
	saltSize    = 16
	keySize     = 32
	scryptN     = 16384
	scryptR     = 8
	scryptP     = 1
	hashLen     = 1 + saltSize + keySize
)

func derive(key string, salt []byte) []byte {
	dk, err := scrypt.Key([]byte(key), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		panic(fmt.Sprintf("Error hashing API key: %v", err))
	}
	return dk
}

// Hash returns the base64 hash of key, with a fresh random salt
func Hash(key string) string {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		panic("Error creating salt")
	}
	raw := make([]byte, 0, hashLen)
	raw = append(raw, hashVersion)
	raw = append(raw, salt...)
	raw = append(raw, derive(key, salt)...)
	return base64.RawStdEncoding.EncodeToString(raw)
}

// Verify returns true if key matches a hash produced by Hash
func Verify(key, hash string) bool {
	raw, err := base64.RawStdEncoding.DecodeString(hash)
	if err != nil || len(raw) != hashLen || raw[0] != hashVersion {
		return false
	}
	salt := raw[1 : 1+saltSize]
	return subtle.ConstantTimeCompare(derive(key, salt), raw[1+saltSize:]) == 1
}

// VerifyAny returns true if key matches any of hashes
func VerifyAny(key string, hashes []string) bool {
	for _, h := range hashes {
		if Verify(key, h) {
			return true
		}
	}
	return false
}

// NewKey returns a random API key
func NewKey() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		panic("Error creating API key")
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b))
}
