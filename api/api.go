package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/ledger"
	"github.com/DE-labtory/cipherbatch/merkletree"
	kitlog "github.com/go-kit/kit/log"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ErrIllegalArgument struct {
	Reason string
}

func (e ErrIllegalArgument) Error() string {
	return fmt.Sprintf("err illegal argument: %s", e.Reason)
}

var errNotFound = errors.New("not found")

// Ledger is the part of the ledger exposed over HTTP.
type Ledger interface {
	TransferOwnership(caller, newOwner cipherbatch.Address) error
	AddProvider(caller, provider cipherbatch.Address) error
	RemoveProvider(caller, provider cipherbatch.Address) error
	Pause(caller cipherbatch.Address) error
	Unpause(caller cipherbatch.Address) error
	SetCooldown(caller cipherbatch.Address, cooldown time.Duration) error

	OpenBatch(caller cipherbatch.Address) (uint64, error)
	CloseBatch(caller cipherbatch.Address, batchID uint64) error
	SubmitArtist(caller cipherbatch.Address, batchID uint64, potential cipherbatch.Handle) (uint32, error)
	RequestBatchDecryption(caller cipherbatch.Address, batchID uint64) (cipherbatch.RequestID, error)

	Owner() cipherbatch.Address
	Providers() []cipherbatch.Address
	IsProvider(addr cipherbatch.Address) bool
	Paused() bool
	Cooldown() time.Duration
	CurrentBatchID() uint64
	Batch(batchID uint64) (ledger.Batch, bool)
	Artist(batchID uint64, artistID uint32) ledger.Slot
	DecryptionContext(id cipherbatch.RequestID) (ledger.DecryptionContext, bool)
	LastSubmissionTime(actor cipherbatch.Address) time.Time
	LastDecryptionRequestTime(actor cipherbatch.Address) time.Time
	BatchCommitment(batchID uint64) (merkletree.RootHash, error)
	ArtistProof(batchID uint64, artistID uint32) (merkletree.Proof, error)
}

type endpoint struct {
	logger kitlog.Logger
	ledger Ledger
	store  cipherbatch.CiphertextStore
	events cipherbatch.EventLog
}

func newEndpoint(l Ledger, store cipherbatch.CiphertextStore, events cipherbatch.EventLog, logger kitlog.Logger) *endpoint {
	return &endpoint{
		logger: logger,
		ledger: l,
		store:  store,
		events: events,
	}
}

func NewApiHandler(
	l Ledger,
	store cipherbatch.CiphertextStore,
	events cipherbatch.EventLog,
	gatherer prometheus.Gatherer,
	logger kitlog.Logger,
) http.Handler {
	e := newEndpoint(l, store, events, logger)
	auth := newAuthenticator(DefaultSignatureWindow, time.Now)
	r := mux.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(encodeError),
	}
	server := func(path string, ep func(context.Context, interface{}) (interface{}, error), dec kithttp.DecodeRequestFunc) http.Handler {
		return kithttp.NewServer(
			e.logged(path, ep),
			dec,
			encodeResponse,
			opts...,
		)
	}
	route := func(method, path string, ep func(context.Context, interface{}) (interface{}, error), dec kithttp.DecodeRequestFunc) {
		r.Methods(method).Path(path).Handler(server(path, ep, dec))
	}
	// signed routes act on behalf of the address recovered from the request
	// signature
	signed := func(method, path string, ep func(context.Context, interface{}) (interface{}, error), dec kithttp.DecodeRequestFunc) {
		r.Methods(method).Path(path).Handler(auth.middleware(server(path, ep, dec)))
	}

	r.Methods("GET").Path("/healthz").HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
		w.Write([]byte("up"))
	})
	r.Methods("GET").Path("/metrics").Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	route("GET", "/status", e.status, decodeEmptyRequest)
	route("GET", "/actors/{address}", e.actor, decodeActorRequest)
	route("POST", "/ciphertexts", e.putCiphertext, decodePutCiphertextRequest)

	// batches/current must be registered before batches/{batchId}
	route("GET", "/batches/current", e.currentBatch, decodeEmptyRequest)
	signed("POST", "/batches", e.openBatch, decodeCallerRequest)
	route("GET", "/batches/{batchId}", e.batch, decodeBatchRequest)
	signed("POST", "/batches/{batchId}/close", e.closeBatch, decodeBatchRequest)
	route("GET", "/batches/{batchId}/commitment", e.commitment, decodeBatchRequest)
	signed("POST", "/batches/{batchId}/artists", e.submitArtist, decodeSubmitArtistRequest)
	route("GET", "/batches/{batchId}/artists/{artistId}", e.artist, decodeArtistRequest)
	route("GET", "/batches/{batchId}/artists/{artistId}/proof", e.artistProof, decodeArtistRequest)
	signed("POST", "/batches/{batchId}/decryption", e.requestDecryption, decodeBatchRequest)
	route("GET", "/decryptions/{requestId}", e.decryption, decodeDecryptionRequest)
	route("GET", "/events", e.eventsSince, decodeEventsRequest)

	signed("POST", "/admin/owner", e.transferOwnership, decodeTransferOwnershipRequest)
	signed("POST", "/admin/providers", e.addProvider, decodeProviderRequest)
	signed("DELETE", "/admin/providers/{address}", e.removeProvider, decodeProviderRequest)
	signed("POST", "/admin/pause", e.pause, decodeCallerRequest)
	signed("POST", "/admin/unpause", e.unpause, decodeCallerRequest)
	signed("POST", "/admin/cooldown", e.setCooldown, decodeSetCooldownRequest)
	return r
}

func (e *endpoint) logged(name string, f func(context.Context, interface{}) (interface{}, error)) func(context.Context, interface{}) (interface{}, error) {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		e.logger.Log("endpoint", name)

		response, err := f(ctx, request)
		if err != nil {
			e.logger.Log("endpoint", name, "err", err.Error())
		}
		return response, err
	}
}

func encodeResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// encode errors from business-logic
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusOf(err))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func statusOf(err error) int {
	var illegal ErrIllegalArgument
	switch {
	case errors.As(err, &illegal):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, cipherbatch.ErrNotOwner), errors.Is(err, cipherbatch.ErrNotProvider):
		return http.StatusForbidden
	case errors.Is(err, cipherbatch.ErrPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, cipherbatch.ErrInvalidBatch):
		return http.StatusConflict
	case errors.Is(err, cipherbatch.ErrCooldownActive):
		return http.StatusTooManyRequests
	case cipherbatch.IsIntegrityErr(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cipherbatch.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound),
		errors.Is(err, cipherbatch.ErrCiphertextNotFound),
		errors.Is(err, cipherbatch.ErrRequestNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
