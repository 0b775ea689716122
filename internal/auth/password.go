// internal/auth/password.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidHash is returned for stored hashes that are not argon2id PHC strings.
	ErrInvalidHash = errors.New("the encoded hash is not in the correct format")
	// ErrIncompatibleVersion is returned for hashes from another argon2 version.
	ErrIncompatibleVersion = errors.New("incompatible version of argon2")
)

var b64 = base64.RawStdEncoding.Strict()

// Hasher derives argon2id keys for account passwords.
type Hasher struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHasher is used by HashPassword and sized for the login path of the server.
var DefaultHasher = Hasher{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: parallelism(),
	SaltLength:  16,
	KeyLength:   32,
}

// parallelism uses half the CPUs, between 1 and 8 lanes.
func parallelism() uint8 {
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return uint8(n)
}

// HashPassword hashes with DefaultHasher.
func HashPassword(password string) (string, error) {
	return DefaultHasher.Hash(password)
}

// VerifyPassword reports whether password matches a stored hash. A malformed hash never matches.
func VerifyPassword(password, encodedHash string) bool {
	ok, err := Verify(password, encodedHash)
	return err == nil && ok
}

// Hash returns $argon2id$v=19$m=<memory>,t=<iterations>,p=<lanes>$<salt>$<key>.
func (h Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.Iterations, h.Memory, h.Parallelism, h.KeyLength)
	return h.encode(salt, key), nil
}

func (h Hasher) encode(salt, key []byte) string {
	var sb strings.Builder
	sb.WriteString("$argon2id$v=")
	sb.WriteString(strconv.Itoa(argon2.Version))
	fmt.Fprintf(&sb, "$m=%d,t=%d,p=%d$", h.Memory, h.Iterations, h.Parallelism)
	sb.WriteString(b64.EncodeToString(salt))
	sb.WriteByte('$')
	sb.WriteString(b64.EncodeToString(key))
	return sb.String()
}

// Verify recomputes the key with the parameters stored in encodedHash, so hashes made by
// an older Hasher keep working, and compares in constant time.
func Verify(password, encodedHash string) (bool, error) {
	h, salt, key, err := DecodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, h.Iterations, h.Memory, h.Parallelism, h.KeyLength)
	return subtle.ConstantTimeCompare(key, got) == 1, nil
}

// DecodeHash splits a stored hash into the Hasher that produced it, the salt and the key.
func DecodeHash(encodedHash string) (Hasher, []byte, []byte, error) {
	var h Hasher
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return h, nil, nil, ErrInvalidHash
	}

	v, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return h, nil, nil, ErrInvalidHash
	}
	version, err := strconv.Atoi(v)
	if err != nil {
		return h, nil, nil, fmt.Errorf("%w: version %q", ErrInvalidHash, v)
	}
	if version != argon2.Version {
		return h, nil, nil, ErrIncompatibleVersion
	}

	for _, kv := range strings.Split(parts[3], ",") {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return h, nil, nil, ErrInvalidHash
		}
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return h, nil, nil, fmt.Errorf("%w: %s", ErrInvalidHash, kv)
		}
		switch name {
		case "m":
			h.Memory = uint32(n)
		case "t":
			h.Iterations = uint32(n)
		case "p":
			if n == 0 || n > 255 {
				return h, nil, nil, fmt.Errorf("%w: %s", ErrInvalidHash, kv)
			}
			h.Parallelism = uint8(n)
		default:
			return h, nil, nil, fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, name)
		}
	}
	if h.Memory == 0 || h.Iterations == 0 || h.Parallelism == 0 {
		return h, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return h, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return h, nil, nil, fmt.Errorf("%w: key", ErrInvalidHash)
	}
	h.SaltLength = uint32(len(salt))
	h.KeyLength = uint32(len(key))
	return h, salt, key, nil
}
