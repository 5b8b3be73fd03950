package cipherbatch

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type Address = common.Address

var ZeroAddress = Address{}

func ToAddress(addr string) (Address, error) {
	if !common.IsHexAddress(addr) {
		return Address{}, fmt.Errorf("%w: malformed address %q", ErrInvalidArgument, addr)
	}
	return common.HexToAddress(addr), nil
}

// ProviderSet manages addresses which are allowed to submit artists
type ProviderSet struct {
	lock      sync.RWMutex
	providers map[Address]struct{}
}

func NewProviderSet() *ProviderSet {
	return &ProviderSet{
		providers: make(map[Address]struct{}),
		lock:      sync.RWMutex{},
	}
}

// Add returns false when addr was already a provider
func (s *ProviderSet) Add(addr Address) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.providers[addr]; ok {
		return false
	}
	s.providers[addr] = struct{}{}
	return true
}

// Del returns false when addr was not a provider
func (s *ProviderSet) Del(addr Address) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.providers[addr]; !ok {
		return false
	}
	delete(s.providers, addr)
	return true
}

func (s *ProviderSet) Has(addr Address) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, ok := s.providers[addr]
	return ok
}

// Providers returns current providers ordered by address bytes
func (s *ProviderSet) Providers() []Address {
	s.lock.RLock()
	defer s.lock.RUnlock()

	providers := make([]Address, 0, len(s.providers))
	for addr := range s.providers {
		providers = append(providers, addr)
	}
	sort.Slice(providers, func(i, j int) bool {
		return bytes.Compare(providers[i][:], providers[j][:]) < 0
	})
	return providers
}

func (s *ProviderSet) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.providers)
}
