package keygen

import (
	"testing"

	"github.com/DE-labtory/cipherbatch/oracle"
	"github.com/DE-labtory/cipherbatch/tpke"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func TestGenerate(t *testing.T) {
	k, err := generate(1, 3, 2)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if len(k.tpke.SecretShares) != 3 {
		t.Fatalf("expected secret shares size is %d, but got %d", 3, len(k.tpke.SecretShares))
	}
	if _, err := oracle.ParseSignerKeys(k.signerKeys); err != nil {
		t.Fatalf("generated signer keys do not parse: %s", err)
	}

	pks, err := hexutil.Decode(k.tpke.PublicKeySet)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	shares := make([]tpke.SecretKey, 0)
	for _, s := range k.tpke.SecretShares[:2] {
		raw, err := hexutil.Decode(s)
		if err != nil {
			t.Fatalf("unexpected err: %s", err)
		}
		share := tpke.SecretKey{}
		copy(share[:], raw)
		shares = append(shares, share)
	}

	committee, err := tpke.NewCommittee(1, pks, shares)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	ct, err := committee.Encrypt(31337)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	v, err := committee.Decrypt(ct)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if v != 31337 {
		t.Fatalf("expected value is %d, but got %d", 31337, v)
	}
}

func TestGenerate_invalid(t *testing.T) {
	if _, err := generate(3, 3, 1); err == nil {
		t.Fatalf("expected error when threshold reaches participants")
	}
	if _, err := generate(1, 3, 0); err == nil {
		t.Fatalf("expected error without signers")
	}
}
