package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcAccountID(t *testing.T) {
	tests := []struct {
		name      string
		publicKey string
		accountID string
	}{
		{
			name:      "ed25519 public key",
			publicKey: "ED9434799226374926EDA3B54B1B461B4ABF7237962EAE18528FEA67595397FA32",
			accountID: "7f58b19358f8e497c8a9ded3e6db3bc23a13c1a5",
		},
		{
			name:      "secp256k1 public key",
			publicKey: "0330E7FC9D56BB25D6893BA3F317AE5BCF33B3291BD63DB32654A313222F7FD020",
			accountID: "b5f762798a53d543a014caf8b297cff8f2f937e8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pubKey, err := hex.DecodeString(tt.publicKey)
			require.NoError(t, err)

			id := CalcAccountID(pubKey)
			assert.Equal(t, strings.ToUpper(tt.accountID), id.Hex())
		})
	}
}

func TestKeyFromPassphrase(t *testing.T) {
	a := KeyFromPassphrase("alice")
	assert.Equal(t, a.Account(), KeyFromPassphrase("alice").Account())
	assert.NotEqual(t, a.Account(), KeyFromPassphrase("bob").Account())

	pub := a.PublicKey()
	require.Len(t, pub, 33)
	assert.Contains(t, []byte{0x02, 0x03}, pub[0])
	assert.Equal(t, CalcAccountID(pub), a.Account())

	id, err := AccountFromPublicKey(a.PublicKeyHex())
	require.NoError(t, err)
	assert.Equal(t, a.Account(), id)
}

func TestAccountFromPublicKey(t *testing.T) {
	id, err := AccountFromPublicKey("0330E7FC9D56BB25D6893BA3F317AE5BCF33B3291BD63DB32654A313222F7FD020")
	require.NoError(t, err)
	assert.Equal(t, "B5F762798A53D543A014CAF8B297CFF8F2F937E8", id.Hex())

	for _, bad := range []string{"zz", "02" + strings.Repeat("00", 31), ""} {
		_, err := AccountFromPublicKey(bad)
		assert.ErrorIs(t, err, ErrInvalidPublicKey, bad)
	}
}
