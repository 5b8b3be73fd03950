package oracle

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/iLogger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const DefaultPollInterval = 100 * time.Millisecond

var ErrOracleClosed = errors.New("oracle is closed")

type oracleMetrics struct {
	dispatched prometheus.Counter
	answered   prometheus.Counter
	failed     prometheus.Counter
	queued     prometheus.Gauge
}

func newOracleMetrics(promRegistry prometheus.Registerer) *oracleMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &oracleMetrics{
		dispatched: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "cipherbatch_oracle_requests_total",
			Help: "decryption requests accepted by the oracle",
		}),
		answered: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "cipherbatch_oracle_results_total",
			Help: "signed decryption results sent back",
		}),
		failed: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "cipherbatch_oracle_failures_total",
			Help: "decryption requests the oracle could not answer",
		}),
		queued: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "cipherbatch_oracle_queue_length",
			Help: "decryption requests waiting to be processed",
		}),
	}
}

type Options struct {
	Store        cipherbatch.CiphertextStore
	Decryptor    cipherbatch.Decryptor
	Signers      []*ecdsa.PrivateKey
	ResultSender cipherbatch.ResultSender
	PollInterval time.Duration
	PromRegistry prometheus.Registerer
}

// Oracle answers decryption requests off the caller's goroutine: Dispatch
// only queues, the run loop decrypts, signs and sends the result.
type Oracle struct {
	queue        cipherbatch.RequestQueue
	store        cipherbatch.CiphertextStore
	decryptor    cipherbatch.Decryptor
	signers      []*ecdsa.PrivateKey
	resultSender cipherbatch.ResultSender
	pollInterval time.Duration

	closeChan chan struct{}
	stopFlag  int32

	metrics *oracleMetrics
}

func New(opts Options) (*Oracle, error) {
	if opts.Store == nil || opts.Decryptor == nil || opts.ResultSender == nil {
		return nil, errors.New("oracle requires store, decryptor and result sender")
	}
	if len(opts.Signers) == 0 {
		return nil, errors.New("oracle requires at least one signer")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	o := &Oracle{
		queue:        cipherbatch.NewRequestQueue(),
		store:        opts.Store,
		decryptor:    opts.Decryptor,
		signers:      opts.Signers,
		resultSender: opts.ResultSender,
		pollInterval: opts.PollInterval,
		closeChan:    make(chan struct{}),
		metrics:      newOracleMetrics(opts.PromRegistry),
	}

	go o.run()
	return o, nil
}

// Dispatch queues the handles and returns a fresh request id right away.
func (o *Oracle) Dispatch(handles []cipherbatch.Handle) (cipherbatch.RequestID, error) {
	if o.toDie() {
		return cipherbatch.RequestID{}, ErrOracleClosed
	}

	id := uuid.New()
	o.queue.Push(cipherbatch.DecryptionRequest{
		ID:      id,
		Handles: append([]cipherbatch.Handle(nil), handles...),
	})
	o.metrics.dispatched.Inc()
	o.metrics.queued.Set(float64(o.queue.Len()))

	iLogger.Debugf(nil, "[oracle] request queued : id=%s, handles=%d", id, len(handles))
	return id, nil
}

func (o *Oracle) Close() {
	if first := atomic.CompareAndSwapInt32(&o.stopFlag, int32(0), int32(1)); !first {
		return
	}
	o.closeChan <- struct{}{}
	<-o.closeChan
}

func (o *Oracle) toDie() bool {
	return atomic.LoadInt32(&(o.stopFlag)) == int32(1)
}

func (o *Oracle) run() {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.closeChan:
			o.closeChan <- struct{}{}
			return
		case <-ticker.C:
			o.drain()
		}
	}
}

func (o *Oracle) drain() {
	for !o.toDie() {
		req, err := o.queue.Poll()
		if cipherbatch.IsErrEmptyQueue(err) {
			return
		}
		o.metrics.queued.Set(float64(o.queue.Len()))

		result, err := o.answer(req)
		if err != nil {
			// the request stays pending on the ledger, a new one can be issued
			o.metrics.failed.Inc()
			iLogger.Errorf(nil, "[oracle] failed to answer request : id=%s, err=%s", req.ID, err.Error())
			continue
		}
		o.resultSender.Send(result)
		o.metrics.answered.Inc()
		iLogger.Debugf(nil, "[oracle] result sent : id=%s", req.ID)
	}
}

func (o *Oracle) answer(req cipherbatch.DecryptionRequest) (cipherbatch.DecryptionResult, error) {
	values := make([]uint64, 0, len(req.Handles))
	for i, h := range req.Handles {
		ct, err := o.store.Get(h)
		if err != nil {
			return cipherbatch.DecryptionResult{}, fmt.Errorf("load ciphertext %d: %w", i, err)
		}
		v, err := o.decryptor.Decrypt(ct)
		if err != nil {
			return cipherbatch.DecryptionResult{}, fmt.Errorf("decrypt ciphertext %d: %w", i, err)
		}
		values = append(values, v)
	}

	payload := cipherbatch.EncodeCleartexts(values)
	proof, err := Sign(o.signers, req.ID, payload)
	if err != nil {
		return cipherbatch.DecryptionResult{}, err
	}
	return cipherbatch.DecryptionResult{
		ID:         req.ID,
		Cleartexts: payload,
		Proof:      proof,
	}, nil
}
