// Package witness implements the one-time order identity scheme.
//
// Each submission commits a fresh address-like identity ("witness") into
// the on-chain payload. The identity is the address of a throwaway keypair
// whose secret stays in memory for the duration of the submission call;
// disclosing the secret later authorizes cancellation, like a hash-commit /
// reveal. The witness must be unpredictable before submission so the
// identity itself cannot be front-run.
package witness

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// secretPrefix pads the random secret to a full 32-byte private key.
// Only the 13 random bytes carry entropy; that is enough to stop a relayer
// front-running the identity, which is all the scheme needs.
const secretPrefix = "2070696e652e66696e616e63652020d83ddc09"

const entropyBytes = 13

// Commitment pairs a witness with the secret that can later reveal it.
// The secret is never written into an Order record.
type Commitment struct {
	SecretHex string
	Witness   string
}

// Generate draws a fresh secret and derives its witness identity.
func Generate() (Commitment, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return Commitment{}, fmt.Errorf("draw witness secret: %w", err)
	}
	secret := secretPrefix + hex.EncodeToString(buf)
	w, err := FromSecret(secret)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{SecretHex: secret, Witness: w}, nil
}

// FromSecret re-derives the witness for a known secret, as done when the
// secret is revealed to authorize a cancellation.
func FromSecret(secretHex string) (string, error) {
	key, err := ethcrypto.HexToECDSA(secretHex)
	if err != nil {
		return "", fmt.Errorf("derive witness key: %w", err)
	}
	pub := ethcrypto.FromECDSAPub(&key.PublicKey)
	return lowerHexAddress(pub), nil
}

// SubWitness derives the identity of DCA sub-trade i from the batch's base
// witness. The suffix keeps one secret per batch while giving every
// sub-trade its own lookup key.
func SubWitness(base string, i int) string {
	return base + strconv.Itoa(i)
}

// addressHexLen is the length of a 0x-prefixed address string.
const addressHexLen = 42

// Base recovers the batch's base witness from a sub-witness. The base is
// a fixed-length address string; everything past it is the sub-trade
// suffix. Only the base is a real address and only it may be packed into
// calldata.
func Base(sub string) string {
	if len(sub) <= addressHexLen {
		return sub
	}
	return sub[:addressHexLen]
}

// lowerHexAddress maps a 65-byte uncompressed secp256k1 pubkey
// (0x04 || X || Y) to the canonical lowercase 0x address string.
func lowerHexAddress(pub []byte) string {
	if len(pub) != 65 || pub[0] != 0x04 {
		return ""
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(pub[1:])
	sum := h.Sum(nil)
	return "0x" + strings.ToLower(hex.EncodeToString(sum[12:]))
}
