package core

import (
	"crypto/ecdsa"
	"fmt"
	"sync/atomic"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/config"
	"github.com/DE-labtory/cipherbatch/eventlog"
	"github.com/DE-labtory/cipherbatch/ledger"
	"github.com/DE-labtory/cipherbatch/log"
	"github.com/DE-labtory/cipherbatch/oracle"
	"github.com/DE-labtory/cipherbatch/storage"
	"github.com/DE-labtory/cipherbatch/tpke"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
)

// Node wires the ledger to its collaborators and delivers oracle results
// back into it.
type Node struct {
	ledger    *ledger.Ledger
	oracle    *oracle.Oracle
	events    *eventlog.Log
	db        *storage.DB
	store     cipherbatch.CiphertextStore
	encryptor cipherbatch.Encryptor
	tracer    *cipherbatch.MemCacheTracer
	registry  *prometheus.Registry

	resultReceiver cipherbatch.ResultReceiver

	closeChan chan struct{}
	running   int32
	stopFlag  int32
}

func New(conf *config.Config) (*Node, error) {
	if err := log.SetLevel(conf.Log.Level); err != nil {
		return nil, err
	}
	if conf.Log.File != "" {
		if err := log.EnableFileLogger(conf.Log.File, false); err != nil {
			return nil, err
		}
	}

	owner, err := cipherbatch.ToAddress(conf.Identity.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	identity, err := cipherbatch.ToAddress(conf.Identity.Address)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	providers := make([]cipherbatch.Address, 0, len(conf.Ledger.Providers))
	for _, p := range conf.Ledger.Providers {
		addr, err := cipherbatch.ToAddress(p)
		if err != nil {
			return nil, fmt.Errorf("provider: %w", err)
		}
		providers = append(providers, addr)
	}

	committee, err := newCommittee(conf.Tpke)
	if err != nil {
		return nil, err
	}
	signers, err := newSigners(conf.Oracle)
	if err != nil {
		return nil, err
	}
	signerThreshold := conf.Oracle.SignerThreshold
	if signerThreshold == 0 {
		signerThreshold = len(signers)
	}
	verifier, err := oracle.NewSignatureVerifier(oracle.SignerAddresses(signers), signerThreshold)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(conf.Storage.Path, conf.Storage.InMemory)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	events, err := eventlog.New(db.Events(), registry)
	if err != nil {
		db.Close()
		return nil, err
	}
	store := db.Ciphertexts()
	history, err := events.Since(0)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read event history: %w", err)
	}

	results := cipherbatch.NewResultChannel(conf.Oracle.ResultBuffer)
	o, err := oracle.New(oracle.Options{
		Store:        store,
		Decryptor:    committee,
		Signers:      signers,
		ResultSender: results,
		PollInterval: conf.Oracle.PollInterval,
		PromRegistry: registry,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	tracer := cipherbatch.NewMemCacheTracer(100)
	l, err := ledger.New(ledger.Options{
		Owner:        owner,
		Identity:     identity,
		Cooldown:     conf.Ledger.Cooldown,
		Providers:    providers,
		Store:        store,
		Dispatcher:   o,
		Verifier:     verifier,
		Events:       events,
		Tracer:       tracer,
		History:      history,
		PromRegistry: registry,
	})
	if err != nil {
		o.Close()
		db.Close()
		return nil, err
	}
	if len(history) > 0 && l.Owner() != owner {
		log.Warn("msg", "configured owner differs from the restored owner", "configured", owner.Hex(), "owner", l.Owner().Hex())
	}

	return &Node{
		ledger:         l,
		oracle:         o,
		events:         events,
		db:             db,
		store:          store,
		encryptor:      committee,
		tracer:         tracer,
		registry:       registry,
		resultReceiver: results,
		closeChan:      make(chan struct{}),
	}, nil
}

type committee interface {
	cipherbatch.Encryptor
	cipherbatch.Decryptor
}

// newCommittee falls back to MockTpke when no key material is configured.
func newCommittee(conf config.Tpke) (committee, error) {
	if conf.PublicKeySet == "" {
		log.Warn("msg", "no threshold key set configured, ciphertexts are NOT confidential")
		return &tpke.MockTpke{}, nil
	}

	pks, err := hexutil.Decode(conf.PublicKeySet)
	if err != nil {
		return nil, fmt.Errorf("public key set: %w", err)
	}
	shares := make([]tpke.SecretKey, 0, len(conf.SecretShares))
	for i, s := range conf.SecretShares {
		raw, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("secret share %d: %w", i, err)
		}
		if len(raw) != len(tpke.SecretKey{}) {
			return nil, fmt.Errorf("secret share %d: expected %d bytes, got %d", i, len(tpke.SecretKey{}), len(raw))
		}
		share := tpke.SecretKey{}
		copy(share[:], raw)
		shares = append(shares, share)
	}
	return tpke.NewCommittee(conf.Threshold, pks, shares)
}

// newSigners generates a throwaway signer when none is configured.
func newSigners(conf config.Oracle) ([]*ecdsa.PrivateKey, error) {
	if len(conf.SignerKeys) != 0 {
		return oracle.ParseSignerKeys(conf.SignerKeys)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	log.Warn("msg", "no oracle signer configured, using an ephemeral key", "signer", crypto.PubkeyToAddress(key.PublicKey).Hex())
	return []*ecdsa.PrivateKey{key}, nil
}

// Run starts delivering oracle results to the ledger.
func (n *Node) Run() {
	if !atomic.CompareAndSwapInt32(&n.running, int32(0), int32(1)) {
		return
	}
	go n.run()
}

func (n *Node) run() {
	for {
		select {
		case <-n.closeChan:
			n.closeChan <- struct{}{}
			return
		case result := <-n.resultReceiver.Receive():
			n.deliver(result)
		}
	}
}

// deliver treats the result as untrusted; the ledger validates it.
func (n *Node) deliver(result cipherbatch.DecryptionResult) {
	err := n.ledger.FulfillDecryption(result.ID, result.Cleartexts, result.Proof)
	if err == nil {
		return
	}
	if cipherbatch.IsIntegrityErr(err) {
		n.tracer.Trace()
		return
	}
	log.Error("msg", "failed to deliver decryption result", "requestId", result.ID, "err", err)
}

func (n *Node) Close() {
	if first := atomic.CompareAndSwapInt32(&n.stopFlag, int32(0), int32(1)); !first {
		return
	}
	n.oracle.Close()
	if atomic.LoadInt32(&n.running) == int32(1) {
		n.closeChan <- struct{}{}
		<-n.closeChan
	}
	n.events.Close()
	n.tracer.Trace()
	if err := n.db.Close(); err != nil {
		log.Error("msg", "failed to close storage", "err", err)
	}
}

func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

func (n *Node) Events() *eventlog.Log {
	return n.events
}

func (n *Node) Store() cipherbatch.CiphertextStore {
	return n.store
}

func (n *Node) Encryptor() cipherbatch.Encryptor {
	return n.encryptor
}

func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}
