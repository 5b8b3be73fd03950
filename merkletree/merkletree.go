package merkletree

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"

	"github.com/DE-labtory/cipherbatch"
	"github.com/cbergoon/merkletree"
)

type MerkleData = merkletree.Content
type RootPath [][]byte
type RootHash []byte

var ErrEmptyBatch = errors.New("cannot build merkle tree of empty batch")
var ErrUnknownLeaf = errors.New("leaf is not part of the tree")

// Proof shows that one artist's handle is part of a batch commitment.
type Proof struct {
	ArtistID uint32
	Handle   cipherbatch.Handle
	Path     RootPath
	Index    []int64
}

// Tree is built over the ordered handles of a batch. Leaf i belongs to
// artist i+1.
type Tree struct {
	tree    merkletree.MerkleTree
	handles []cipherbatch.Handle
}

func (t *Tree) Root() RootHash {
	return t.tree.MerkleRoot()
}

func (t *Tree) Proof(artistID uint32) (Proof, error) {
	if artistID == 0 || int(artistID) > len(t.handles) {
		return Proof{}, ErrUnknownLeaf
	}
	h := t.handles[artistID-1]
	path, index, err := t.tree.GetMerklePath(NewLeaf(artistID, h).Content)
	if err != nil {
		return Proof{}, err
	}
	if path == nil {
		return Proof{}, ErrUnknownLeaf
	}
	return Proof{
		ArtistID: artistID,
		Handle:   h,
		Path:     path,
		Index:    index,
	}, nil
}

func New(handles []cipherbatch.Handle) (*Tree, error) {
	if len(handles) == 0 {
		return nil, ErrEmptyBatch
	}

	merkleDataList := make([]MerkleData, 0, len(handles))
	for i, h := range handles {
		merkleDataList = append(merkleDataList, NewLeaf(uint32(i+1), h).Content)
	}

	t, err := merkletree.NewTree(merkleDataList)
	if err != nil {
		return nil, err
	}

	return &Tree{
		tree:    *t,
		handles: append([]cipherbatch.Handle(nil), handles...),
	}, nil
}

type Data struct {
	Content content
}

// NewLeaf binds the handle to its slot so identical handles in different
// slots still produce distinct leaves.
func NewLeaf(artistID uint32, h cipherbatch.Handle) Data {
	b := make([]byte, 4+cipherbatch.HandleLength)
	binary.BigEndian.PutUint32(b[:4], artistID)
	copy(b[4:], h[:])
	return Data{Content: content(b)}
}

func (d Data) CalculateHash() ([]byte, error) {
	return d.Content.CalculateHash()
}

func (d Data) Equals(a Data) (bool, error) {
	return d.Content.Equals(a.Content)
}

func (d Data) Bytes() []byte {
	return d.Content
}

type content []byte

func (c content) CalculateHash() ([]byte, error) {
	h := sha256.New()
	if _, err := h.Write([]byte(c)); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

func (c content) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(content)
	if !ok {
		return false, nil
	}
	return bytes.Equal(c, o), nil
}

// Verify checks p against rootHash, including that the path position
// matches the claimed artist id.
func Verify(p Proof, rootHash RootHash) bool {
	if p.ArtistID == 0 || len(p.Path) != len(p.Index) {
		return false
	}
	if OrderOfData(p.Index) != int(p.ArtistID-1) {
		return false
	}
	return ValidatePath(NewLeaf(p.ArtistID, p.Handle), rootHash, p.Path, p.Index)
}

func ValidatePath(data Data, rootHash RootHash, rootPath RootPath, indexList []int64) bool {
	leaf := make(content, 64)
	branch, err := data.CalculateHash()
	if err != nil {
		return false
	}

	for i, path := range rootPath {
		switch indexList[i] {
		// sibling is the left leaf
		case 0:
			copy(leaf[:32], path)
			copy(leaf[32:], branch)
		// sibling is the right leaf
		case 1:
			copy(leaf[:32], branch)
			copy(leaf[32:], path)
		default:
			return false
		}

		branch, err = leaf.CalculateHash()
		if err != nil {
			return false
		}
	}

	return bytes.Equal(rootHash, branch)
}

// OrderOfData return data's order as slice's order (slice's first index is 0)
// indexes tell whether the sibling at each level is left or right, so the
// position of the leaf can be read back from them.
func OrderOfData(indexList []int64) int {
	order := 0
	for i, idx := range indexList {
		num := int(math.Pow(2, float64(i+1)))
		if idx == 0 {
			order += num / 2
		}
	}

	return order
}
