package tpke

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/tpke"
)

type SecretKey [32]byte
type PublicKey []byte
type DecryptionShare [96]byte

var ErrNotEnoughShares = errors.New("not enough key shares to reach threshold")

// plaintext layout of an encrypted potential value
const plaintextSize = 8

type KeySet struct {
	threshold    int
	participants int
	pkSet        *tpke.PublicKeySet
	skSet        *tpke.SecretKeySet
}

// Setup makes public key set and secret key set. Any threshold+1 of the
// participants' shares can decrypt.
func Setup(threshold, participants int) (*KeySet, error) {
	if threshold < 1 || participants <= threshold {
		return nil, fmt.Errorf("invalid threshold %d for %d participants", threshold, participants)
	}
	secretKeySet := tpke.RandomSecretKeySet(threshold)
	return &KeySet{
		threshold:    threshold,
		participants: participants,
		pkSet:        secretKeySet.PublicKeySet(),
		skSet:        secretKeySet,
	}, nil
}

func (k *KeySet) PublicKeySet() PublicKey {
	return k.pkSet.Serialize()
}

// SecretShares returns one key share per participant, indexed like the
// committee members built from them.
func (k *KeySet) SecretShares() []SecretKey {
	shares := make([]SecretKey, 0, k.participants)
	for i := 0; i < k.participants; i++ {
		shares = append(shares, k.skSet.KeyShareUsingString(memberID(i)).Serialize())
	}
	return shares
}

func memberID(i int) string {
	return strconv.Itoa(i)
}

// Tpke is one key share holder
type Tpke struct {
	id           string
	publicKeySet *tpke.PublicKeySet
	secretKey    *tpke.SecretKeyShare
}

func NewTpke(id string, skBytes SecretKey, pksBytes PublicKey) (*Tpke, error) {
	sk := tpke.NewSecretKeyFromBytes(skBytes)
	sks := tpke.NewSecretKeyShare(sk)

	pks, err := tpke.NewPublicKeySetFromBytes(pksBytes)
	if err != nil {
		return nil, err
	}

	return &Tpke{
		id:           id,
		publicKeySet: pks,
		secretKey:    sks,
	}, nil
}

// DecShare makes decryption share using own secret key share.
func (t *Tpke) DecShare(ct cipherbatch.CipherText) DecryptionShare {
	c := tpke.NewCipherTextFromBytes(ct)
	ds := t.secretKey.DecryptShare(c)
	return ds.Serialize()
}

// Encryptor only needs the public key set, so providers can seal values
// without holding any share.
type Encryptor struct {
	publicKeySet *tpke.PublicKeySet
	publicKey    *tpke.PublicKey
}

func NewEncryptor(pksBytes PublicKey) (*Encryptor, error) {
	pks, err := tpke.NewPublicKeySetFromBytes(pksBytes)
	if err != nil {
		return nil, err
	}
	return &Encryptor{
		publicKeySet: pks,
		publicKey:    pks.PublicKey(),
	}, nil
}

// Encrypt encrypts a potential value.
func (e *Encryptor) Encrypt(value uint64) (cipherbatch.CipherText, error) {
	msg := make([]byte, plaintextSize)
	binary.BigEndian.PutUint64(msg, value)

	encrypted, err := e.publicKey.Encrypt(msg)
	if err != nil {
		return nil, err
	}
	return encrypted.Serialize(), nil
}

// Committee holds the key shares the decryption oracle combines.
type Committee struct {
	*Encryptor
	threshold int
	members   []*Tpke
}

func NewCommittee(threshold int, pksBytes PublicKey, shares []SecretKey) (*Committee, error) {
	if len(shares) <= threshold {
		return nil, ErrNotEnoughShares
	}

	enc, err := NewEncryptor(pksBytes)
	if err != nil {
		return nil, err
	}

	members := make([]*Tpke, 0, len(shares))
	for i, share := range shares {
		member, err := NewTpke(memberID(i), share, pksBytes)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return &Committee{
		Encryptor: enc,
		threshold: threshold,
		members:   members,
	}, nil
}

// Decrypt collects decryption shares, and combine it for decryption.
func (c *Committee) Decrypt(ct cipherbatch.CipherText) (uint64, error) {
	if len(ct) == 0 {
		return 0, fmt.Errorf("%w: empty ciphertext", cipherbatch.ErrInvalidArgument)
	}
	cipherText := tpke.NewCipherTextFromBytes(ct)

	ds := make(map[string]*tpke.DecryptionShare)
	for _, member := range c.members {
		ds[member.id] = tpke.NewDecryptionShareFromBytes(member.DecShare(ct))
	}

	msg, err := c.publicKeySet.DecryptUsingStringMap(ds, cipherText)
	if err != nil {
		return 0, err
	}
	if len(msg) != plaintextSize {
		return 0, fmt.Errorf("unexpected plaintext size %d", len(msg))
	}
	return binary.BigEndian.Uint64(msg), nil
}
