// Package crypto derives account identifiers from secp256k1 keys.
package crypto

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/decred/dcrd/crypto/ripemd160"

	"github.com/LeJamon/goDivvyd/internal/core/amount"
)

// CalcAccountID computes the account ID of a public key as
// RIPEMD160(SHA256(publicKey)). The whole key, prefix included, is hashed.
func CalcAccountID(publicKey []byte) amount.AccountID {
	sum := sha256.Sum256(publicKey)

	h := ripemd160.New()
	h.Write(sum[:])

	var id amount.AccountID
	copy(id[:], h.Sum(nil))
	return id
}

// Sha512Half returns the first 32 bytes of the SHA-512 of msg.
func Sha512Half(msg []byte) [32]byte {
	h := sha512.Sum512(msg)
	var out [32]byte
	copy(out[:], h[:32])
	return out
}
