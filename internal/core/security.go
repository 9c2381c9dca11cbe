// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Password hashes are PHC strings:
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<hash>

const saltLength = 16

var ErrMalformedHash = errors.New("malformed password hash")

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var currentArgon = argonParams{
	memory:  64 * 1024,
	time:    1,
	threads: 4,
	keyLen:  32,
}

func (p argonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

func (p argonParams) encode(salt, hash []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory,
		p.time,
		p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return currentArgon.encode(salt, currentArgon.derive(password, salt)), nil
}

// CheckPassword reports whether password matches encoded. When it matches
// a hash made with older parameters, rehash holds a replacement in the
// current ones.
func CheckPassword(password, encoded string) (ok bool, rehash string, err error) {
	params, salt, want, err := parseArgon(encoded)
	if err != nil {
		return false, "", err
	}

	got := params.derive(password, salt)
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return false, "", nil
	}

	if params != currentArgon {
		if fresh, hashErr := HashPassword(password); hashErr == nil {
			rehash = fresh
		}
	}
	return true, rehash, nil
}

var decoyHash = sync.OnceValue(func() string {
	h, err := HashPassword("decoy password for unknown accounts")
	if err != nil {
		panic(fmt.Sprintf("security: build decoy hash: %v", err))
	}
	return h
})

// BurnPasswordCheck does the work of a full password check against a
// decoy hash so an unknown username answers as slowly as a wrong password.
func BurnPasswordCheck(password string) {
	//nolint:errcheck // result is discarded
	_, _, _ = CheckPassword(password, decoyHash())
}

func parseArgon(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("argon2 version %q: %w", parts[2], ErrMalformedHash)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("argon2 params %q: %w", parts[3], ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("argon2 salt: %w", ErrMalformedHash)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("argon2 hash: %w", ErrMalformedHash)
	}

	//nolint:gosec // G115: argon2 key lengths are tiny
	p.keyLen = uint32(len(hash))

	return p, salt, hash, nil
}

// SecureCompare compares two secrets in constant time, independent of
// their lengths.
func SecureCompare(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
