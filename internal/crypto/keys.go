package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
)

var ErrInvalidPublicKey = errors.New("invalid public key")

// KeyPair is a secp256k1 key with its account.
type KeyPair struct {
	private *secp256k1.PrivateKey
	public  []byte
	account amount.AccountID
}

// KeyFromPassphrase derives a key pair deterministically from passphrase.
// It is meant for fixtures, not for keys that guard value.
func KeyFromPassphrase(passphrase string) *KeyPair {
	seed := Sha512Half([]byte(passphrase))
	priv := secp256k1.PrivKeyFromBytes(seed[:])
	pub := priv.PubKey().SerializeCompressed()
	return &KeyPair{private: priv, public: pub, account: CalcAccountID(pub)}
}

// PublicKey returns the compressed public key.
func (k *KeyPair) PublicKey() []byte {
	out := make([]byte, len(k.public))
	copy(out, k.public)
	return out
}

// PublicKeyHex returns the compressed public key in upper case hex.
func (k *KeyPair) PublicKeyHex() string {
	return fmt.Sprintf("%X", k.public)
}

// Account returns the account controlled by the key.
func (k *KeyPair) Account() amount.AccountID { return k.account }

// AccountFromPublicKey parses a hex encoded secp256k1 public key, compressed
// or not, and returns its account.
func AccountFromPublicKey(s string) (amount.AccountID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return amount.AccountID{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if _, err := secp256k1.ParsePubKey(raw); err != nil {
		return amount.AccountID{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return CalcAccountID(raw), nil
}
