package cipherbatch

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const HandleLength = 32

// Handle is an opaque reference to a stored ciphertext. The ledger never
// looks inside it.
type Handle [HandleLength]byte

type CipherText []byte

func HandleOf(ct CipherText) Handle {
	return Handle(crypto.Keccak256Hash(ct))
}

func BytesToHandle(b []byte) (Handle, error) {
	if len(b) != HandleLength {
		return Handle{}, fmt.Errorf("%w: handle must be %d bytes, got %d", ErrInvalidArgument, HandleLength, len(b))
	}
	var h Handle
	copy(h[:], b)
	return h, nil
}

func HexToHandle(s string) (Handle, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}
	return BytesToHandle(b)
}

func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) Bytes() []byte {
	return h[:]
}

func (h Handle) String() string {
	return hexutil.Encode(h[:])
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := HexToHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Commitment is the public value published for a submitted handle.
func Commitment(h Handle) common.Hash {
	return crypto.Keccak256Hash(h[:])
}

// Encryptor produces ciphertexts which can later be collectively decrypted.
type Encryptor interface {
	Encrypt(value uint64) (CipherText, error)
}

// Decryptor recovers a plaintext value from a ciphertext.
type Decryptor interface {
	Decrypt(ct CipherText) (uint64, error)
}

type CiphertextStore interface {
	Put(ct CipherText) (Handle, error)
	Get(h Handle) (CipherText, error)
	Has(h Handle) bool
}

// MemCiphertextStore keeps ciphertexts in memory
type MemCiphertextStore struct {
	lock sync.RWMutex
	cts  map[Handle]CipherText
}

func NewMemCiphertextStore() *MemCiphertextStore {
	return &MemCiphertextStore{
		cts: make(map[Handle]CipherText),
	}
}

func (s *MemCiphertextStore) Put(ct CipherText) (Handle, error) {
	if len(ct) == 0 {
		return Handle{}, fmt.Errorf("%w: empty ciphertext", ErrInvalidArgument)
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	h := HandleOf(ct)
	s.cts[h] = append(CipherText(nil), ct...)
	return h, nil
}

func (s *MemCiphertextStore) Get(h Handle) (CipherText, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	ct, ok := s.cts[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCiphertextNotFound, h)
	}
	return append(CipherText(nil), ct...), nil
}

func (s *MemCiphertextStore) Has(h Handle) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, ok := s.cts[h]
	return ok
}
