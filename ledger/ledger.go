package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/log"
	"github.com/DE-labtory/cipherbatch/merkletree"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// BatchLimit is the maximum number of artists a batch accepts.
const BatchLimit = 100

const DefaultCooldown = 60 * time.Second

type Batch struct {
	ID           uint64
	IsOpen       bool
	TotalArtists uint32
}

type Slot struct {
	Potential cipherbatch.Handle
	Exists    bool
}

type slotKey struct {
	batchID  uint64
	artistID uint32
}

// DecryptionContext is the pending request table entry for one oracle
// request. Cleartexts is set together with Processed.
type DecryptionContext struct {
	RequestID  cipherbatch.RequestID
	BatchID    uint64
	StateHash  common.Hash
	Processed  bool
	Cleartexts []uint64
}

type Options struct {
	Owner    cipherbatch.Address
	Identity cipherbatch.Address
	Cooldown time.Duration

	// Providers are authorized at construction.
	Providers []cipherbatch.Address

	Store      cipherbatch.CiphertextStore
	Dispatcher cipherbatch.Dispatcher
	Verifier   cipherbatch.Verifier
	Events     cipherbatch.EventLog
	Tracer     cipherbatch.Tracer

	// History, when not empty, is replayed instead of starting a new ledger;
	// Owner, Providers and Cooldown then only apply to a ledger without
	// history.
	History []cipherbatch.Event

	Clock        func() time.Time
	PromRegistry prometheus.Registerer
}

// Ledger is the confidential batch ledger. Every operation holds mu for its
// whole duration, so operations are atomic and serial.
type Ledger struct {
	mu sync.Mutex

	identity cipherbatch.Address
	access   *accessController
	limiter  *rateLimiter

	currentBatchID uint64
	batches        map[uint64]*Batch
	slots          map[slotKey]Slot
	contexts       map[cipherbatch.RequestID]*DecryptionContext

	store      cipherbatch.CiphertextStore
	dispatcher cipherbatch.Dispatcher
	verifier   cipherbatch.Verifier
	events     cipherbatch.EventLog
	tracer     cipherbatch.Tracer
	now        func() time.Time
	metrics    *ledgerMetrics
}

// New builds a ledger owned by opts.Owner and opens batch 1, or rebuilds
// it from opts.History.
func New(opts Options) (*Ledger, error) {
	if opts.Owner == cipherbatch.ZeroAddress {
		return nil, errors.New("ledger owner is required")
	}
	if opts.Store == nil || opts.Dispatcher == nil || opts.Verifier == nil || opts.Events == nil {
		return nil, errors.New("ledger requires store, dispatcher, verifier and event log")
	}
	if opts.Cooldown < 0 {
		return nil, fmt.Errorf("negative cooldown: %s", opts.Cooldown)
	}
	if opts.Tracer == nil {
		opts.Tracer = cipherbatch.NewMemCacheTracer(100)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	l := &Ledger{
		identity:   opts.Identity,
		access:     newAccessController(opts.Owner),
		limiter:    newRateLimiter(opts.Cooldown),
		batches:    make(map[uint64]*Batch),
		slots:      make(map[slotKey]Slot),
		contexts:   make(map[cipherbatch.RequestID]*DecryptionContext),
		store:      opts.Store,
		dispatcher: opts.Dispatcher,
		verifier:   opts.Verifier,
		events:     opts.Events,
		tracer:     opts.Tracer,
		now:        opts.Clock,
		metrics:    newLedgerMetrics(opts.PromRegistry),
	}

	if len(opts.History) > 0 {
		if err := l.restore(opts.History); err != nil {
			return nil, err
		}
		return l, nil
	}

	l.emit(cipherbatch.OwnershipTransferredEventType, cipherbatch.OwnershipTransferredEvent{
		NewOwner: opts.Owner,
	})
	for _, provider := range opts.Providers {
		if provider == cipherbatch.ZeroAddress {
			return nil, fmt.Errorf("%w: zero provider address", cipherbatch.ErrInvalidArgument)
		}
		if l.access.providers.Add(provider) {
			l.emit(cipherbatch.ProviderAddedEventType, cipherbatch.ProviderAddedEvent{Provider: provider})
		}
	}
	l.openBatch()

	return l, nil
}

func (l *Ledger) emit(eventType cipherbatch.EventType, data interface{}) {
	evt := l.events.Append(eventType, data)
	log.Debug("msg", "event appended", "type", evt.Type, "seq", evt.Seq)
}

func (l *Ledger) Identity() cipherbatch.Address {
	return l.identity
}

func (l *Ledger) Owner() cipherbatch.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.access.owner
}

func (l *Ledger) IsProvider(addr cipherbatch.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.access.providers.Has(addr)
}

func (l *Ledger) Providers() []cipherbatch.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.access.providers.Providers()
}

func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.access.paused
}

func (l *Ledger) Cooldown() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limiter.cooldown
}

func (l *Ledger) CurrentBatchID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentBatchID
}

// Batch returns a copy of the batch state.
func (l *Ledger) Batch(batchID uint64) (Batch, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.batches[batchID]
	if !ok {
		return Batch{}, false
	}
	return *b, true
}

// Artist returns the slot of (batchID, artistID); Exists is false for
// slots never submitted.
func (l *Ledger) Artist(batchID uint64, artistID uint32) Slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slots[slotKey{batchID: batchID, artistID: artistID}]
}

func (l *Ledger) DecryptionContext(id cipherbatch.RequestID) (DecryptionContext, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, ok := l.contexts[id]
	if !ok {
		return DecryptionContext{}, false
	}
	c := *ctx
	c.Cleartexts = append([]uint64(nil), ctx.Cleartexts...)
	return c, true
}

func (l *Ledger) LastSubmissionTime(actor cipherbatch.Address) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limiter.lastActionTime(submissionAction, actor)
}

func (l *Ledger) LastDecryptionRequestTime(actor cipherbatch.Address) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limiter.lastActionTime(decryptionRequestAction, actor)
}

// BatchCommitment returns the merkle root over the batch's current ordered
// handles.
func (l *Ledger) BatchCommitment(batchID uint64) (merkletree.RootHash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tree, err := l.batchTree(batchID)
	if err != nil {
		return nil, err
	}
	return tree.Root(), nil
}

// ArtistProof proves the artist's handle is part of BatchCommitment(batchID).
func (l *Ledger) ArtistProof(batchID uint64, artistID uint32) (merkletree.Proof, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tree, err := l.batchTree(batchID)
	if err != nil {
		return merkletree.Proof{}, err
	}
	proof, err := tree.Proof(artistID)
	if err != nil {
		return merkletree.Proof{}, fmt.Errorf("%w: artist %d of batch %d", cipherbatch.ErrInvalidArgument, artistID, batchID)
	}
	return proof, nil
}

func (l *Ledger) batchTree(batchID uint64) (*merkletree.Tree, error) {
	handles, err := l.collectHandles(batchID)
	if err != nil {
		return nil, err
	}
	return merkletree.New(handles)
}
