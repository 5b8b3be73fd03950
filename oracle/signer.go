package oracle

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/DE-labtory/cipherbatch"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of one recoverable secp256k1 signature in a
// proof.
const SignatureLength = crypto.SignatureLength

var digestPrefix = []byte("cipherbatch/decryption")

var ErrInvalidThreshold = errors.New("invalid signer threshold")

// Digest is what every signer signs: the request id bound to the exact
// cleartext payload.
func Digest(id cipherbatch.RequestID, cleartexts []byte) []byte {
	return crypto.Keccak256(digestPrefix, id[:], cleartexts)
}

// Sign concatenates one signature per key over Digest(id, cleartexts).
func Sign(keys []*ecdsa.PrivateKey, id cipherbatch.RequestID, cleartexts []byte) ([]byte, error) {
	digest := Digest(id, cleartexts)
	proof := make([]byte, 0, len(keys)*SignatureLength)
	for _, key := range keys {
		sig, err := crypto.Sign(digest, key)
		if err != nil {
			return nil, err
		}
		proof = append(proof, sig...)
	}
	return proof, nil
}

func ParseSignerKeys(hexKeys []string) ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, 0, len(hexKeys))
	for i, h := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(h, "0x"))
		if err != nil {
			return nil, fmt.Errorf("signer key %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func SignerAddresses(keys []*ecdsa.PrivateKey) []cipherbatch.Address {
	addrs := make([]cipherbatch.Address, 0, len(keys))
	for _, key := range keys {
		addrs = append(addrs, crypto.PubkeyToAddress(key.PublicKey))
	}
	return addrs
}

// SignatureVerifier accepts a proof when at least threshold distinct known
// signers signed the digest.
type SignatureVerifier struct {
	signers   map[cipherbatch.Address]struct{}
	threshold int
}

func NewSignatureVerifier(signers []cipherbatch.Address, threshold int) (*SignatureVerifier, error) {
	set := make(map[cipherbatch.Address]struct{})
	for _, s := range signers {
		set[s] = struct{}{}
	}
	if threshold < 1 || threshold > len(set) {
		return nil, fmt.Errorf("%w: %d of %d signers", ErrInvalidThreshold, threshold, len(set))
	}
	return &SignatureVerifier{
		signers:   set,
		threshold: threshold,
	}, nil
}

func (v *SignatureVerifier) Verify(id cipherbatch.RequestID, cleartexts []byte, proof []byte) bool {
	if len(proof) == 0 || len(proof)%SignatureLength != 0 {
		return false
	}

	digest := Digest(id, cleartexts)
	seen := make(map[cipherbatch.Address]struct{})
	for i := 0; i < len(proof); i += SignatureLength {
		pub, err := crypto.SigToPub(digest, proof[i:i+SignatureLength])
		if err != nil {
			return false
		}
		addr := crypto.PubkeyToAddress(*pub)
		if _, ok := v.signers[addr]; !ok {
			continue
		}
		seen[addr] = struct{}{}
	}
	return len(seen) >= v.threshold
}
