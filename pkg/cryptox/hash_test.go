package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Cheap parameters keep the suite fast; the format is what matters here.
func testHasher() *Argon2Hasher {
	return &Argon2Hasher{
		Params: Params{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16},
		Pepper: "test-pepper",
	}
}

func TestHash_PHCFormat(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"simple", "password123"},
		{"complex", "P@ssw0rd!#$%^&*()"},
		{"longer than bcrypt limit", strings.Repeat("a", 200)},
		{"empty", ""},
		{"unicode", "пароль🔒密码"},
	}

	h := testHasher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := h.Hash(tt.secret)
			require.NoError(t, err)

			parts := strings.Split(digest, "$")
			require.Len(t, parts, 6)
			require.Equal(t, "argon2id", parts[1])
			require.Equal(t, "v=19", parts[2])
			require.Equal(t, "m=1024,t=1,p=1", parts[3])
			require.NotEmpty(t, parts[4])
			require.NotEmpty(t, parts[5])

			require.True(t, h.Verify(tt.secret, digest))
		})
	}
}

func TestHash_UniqueSalts(t *testing.T) {
	h := testHasher()

	d1, err := h.Hash("same")
	require.NoError(t, err)
	d2, err := h.Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, d1, d2)
	require.True(t, h.Verify("same", d1))
	require.True(t, h.Verify("same", d2))
}

func TestVerify_WrongSecret(t *testing.T) {
	h := testHasher()
	digest, err := h.Hash("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{"wrong", "Correct-Password", "correct-password ", "", strings.Repeat("x", 10000)} {
		require.False(t, h.Verify(wrong, digest))
		require.ErrorIs(t, h.Compare(wrong, digest), ErrMismatch)
	}
}

func TestVerify_PepperMatters(t *testing.T) {
	h := testHasher()
	digest, err := h.Hash("secret")
	require.NoError(t, err)

	other := testHasher()
	other.Pepper = "different"
	require.False(t, other.Verify("secret", digest))
}

func TestVerify_MalformedDigest(t *testing.T) {
	tests := []struct {
		name   string
		digest string
	}{
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19$m=19456"},
		{"malformed parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"zero parameters", "$argon2id$v=19$m=0,t=0,p=0$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA"},
		{"invalid base64 hash", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"broken bcrypt", "$2b$10$short"},
	}

	h := testHasher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, h.Verify("anything", tt.digest))
			require.ErrorIs(t, h.Compare("anything", tt.digest), ErrInvalidDigest)
		})
	}
}

func TestVerify_LegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)

	h := testHasher()
	require.True(t, h.Verify("old-password", string(legacy)))
	require.False(t, h.Verify("new-password", string(legacy)))
}

func TestNewArgon2Hasher_DefaultParams(t *testing.T) {
	h := NewArgon2Hasher("p")
	digest, err := h.Hash("x")
	require.NoError(t, err)
	require.Contains(t, digest, "m=19456,t=2,p=1")
}
