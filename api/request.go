package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/DE-labtory/cipherbatch"
	"github.com/gorilla/mux"
)

type PutCiphertextRequest struct {
	Ciphertext []byte `json:"ciphertext"`
}

type PutCiphertextResponse struct {
	Handle cipherbatch.Handle `json:"handle"`
}

type SubmitArtistRequest struct {
	Handle cipherbatch.Handle `json:"handle"`
}

type SubmitArtistResponse struct {
	BatchID  uint64 `json:"batchId"`
	ArtistID uint32 `json:"artistId"`
}

type OpenBatchResponse struct {
	BatchID uint64 `json:"batchId"`
}

type RequestDecryptionResponse struct {
	RequestID cipherbatch.RequestID `json:"requestId"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"newOwner"`
}

type ProviderRequest struct {
	Provider string `json:"provider"`
}

type SetCooldownRequest struct {
	// Cooldown is a Go duration string, e.g. "90s"
	Cooldown string `json:"cooldown"`
}

type EmptyResponse struct{}

type BatchView struct {
	ID           uint64 `json:"id"`
	IsOpen       bool   `json:"isOpen"`
	TotalArtists uint32 `json:"totalArtists"`
}

type ArtistView struct {
	BatchID    uint64             `json:"batchId"`
	ArtistID   uint32             `json:"artistId"`
	Potential  cipherbatch.Handle `json:"potential"`
	Commitment string             `json:"commitment"`
}

type CommitmentView struct {
	BatchID uint64 `json:"batchId"`
	Root    string `json:"root"`
}

type ProofView struct {
	BatchID  uint64             `json:"batchId"`
	ArtistID uint32             `json:"artistId"`
	Handle   cipherbatch.Handle `json:"handle"`
	Path     []string           `json:"path"`
	Index    []int64            `json:"index"`
}

type DecryptionView struct {
	RequestID  cipherbatch.RequestID `json:"requestId"`
	BatchID    uint64                `json:"batchId"`
	StateHash  string                `json:"stateHash"`
	Processed  bool                  `json:"processed"`
	Cleartexts []uint64              `json:"cleartexts"`
}

type StatusView struct {
	Owner          cipherbatch.Address   `json:"owner"`
	Providers      []cipherbatch.Address `json:"providers"`
	Paused         bool                  `json:"paused"`
	Cooldown       string                `json:"cooldown"`
	CurrentBatchID uint64                `json:"currentBatchId"`
}

type ActorView struct {
	Address                   cipherbatch.Address `json:"address"`
	IsProvider                bool                `json:"isProvider"`
	LastSubmissionTime        *time.Time          `json:"lastSubmissionTime,omitempty"`
	LastDecryptionRequestTime *time.Time          `json:"lastDecryptionRequestTime,omitempty"`
}

type EventsResponse struct {
	Events []cipherbatch.Event `json:"events"`
}

// decoded requests handed to the endpoints

type callerRequest struct {
	caller cipherbatch.Address
}

type batchRequest struct {
	caller  cipherbatch.Address
	batchID uint64
}

type artistRequest struct {
	batchID  uint64
	artistID uint32
}

type submitArtistRequest struct {
	caller  cipherbatch.Address
	batchID uint64
	handle  cipherbatch.Handle
}

type addressRequest struct {
	caller  cipherbatch.Address
	address cipherbatch.Address
}

type cooldownRequest struct {
	caller   cipherbatch.Address
	cooldown time.Duration
}

type decryptionRequest struct {
	requestID cipherbatch.RequestID
}

type eventsRequest struct {
	since uint64
}

// decodeBody leaves body untouched when the request has none.
func decodeBody(r *http.Request, body interface{}) error {
	err := json.NewDecoder(r.Body).Decode(body)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return ErrIllegalArgument{err.Error()}
	}
	return nil
}

// requireSigner returns the caller recovered from the request signature.
func requireSigner(ctx context.Context) (cipherbatch.Address, error) {
	caller, ok := callerFrom(ctx)
	if !ok {
		return cipherbatch.Address{}, errUnauthenticated
	}
	return caller, nil
}

func parseBatchID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["batchId"], 10, 64)
	if err != nil {
		return 0, ErrIllegalArgument{"malformed batch id"}
	}
	return id, nil
}

func decodeEmptyRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return nil, nil
}

func decodeCallerRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	caller, err := requireSigner(ctx)
	if err != nil {
		return nil, err
	}
	return callerRequest{caller: caller}, nil
}

// decodeBatchRequest leaves the caller empty on unsigned (GET) routes.
func decodeBatchRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	batchID, err := parseBatchID(r)
	if err != nil {
		return nil, err
	}
	req := batchRequest{batchID: batchID}
	req.caller, _ = callerFrom(ctx)
	return req, nil
}

func decodeArtistRequest(_ context.Context, r *http.Request) (interface{}, error) {
	batchID, err := parseBatchID(r)
	if err != nil {
		return nil, err
	}
	artistID, err := strconv.ParseUint(mux.Vars(r)["artistId"], 10, 32)
	if err != nil {
		return nil, ErrIllegalArgument{"malformed artist id"}
	}
	return artistRequest{batchID: batchID, artistID: uint32(artistID)}, nil
}

func decodeSubmitArtistRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	caller, err := requireSigner(ctx)
	if err != nil {
		return nil, err
	}
	batchID, err := parseBatchID(r)
	if err != nil {
		return nil, err
	}
	body := SubmitArtistRequest{}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if body.Handle.IsZero() {
		return nil, ErrIllegalArgument{"handle is empty"}
	}
	return submitArtistRequest{caller: caller, batchID: batchID, handle: body.Handle}, nil
}

func decodePutCiphertextRequest(_ context.Context, r *http.Request) (interface{}, error) {
	body := PutCiphertextRequest{}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if len(body.Ciphertext) == 0 {
		return nil, ErrIllegalArgument{"ciphertext is empty"}
	}
	return body, nil
}

func decodeTransferOwnershipRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	body := TransferOwnershipRequest{}
	caller, err := requireSigner(ctx)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	newOwner, err := cipherbatch.ToAddress(body.NewOwner)
	if err != nil {
		return nil, ErrIllegalArgument{err.Error()}
	}
	return addressRequest{caller: caller, address: newOwner}, nil
}

// decodeProviderRequest takes the provider from the path when present
// (DELETE) and from the body otherwise.
func decodeProviderRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	body := ProviderRequest{}
	caller, err := requireSigner(ctx)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if p, ok := mux.Vars(r)["address"]; ok {
		body.Provider = p
	}
	provider, err := cipherbatch.ToAddress(body.Provider)
	if err != nil {
		return nil, ErrIllegalArgument{err.Error()}
	}
	return addressRequest{caller: caller, address: provider}, nil
}

func decodeSetCooldownRequest(ctx context.Context, r *http.Request) (interface{}, error) {
	body := SetCooldownRequest{}
	caller, err := requireSigner(ctx)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	cooldown, err := time.ParseDuration(body.Cooldown)
	if err != nil {
		return nil, ErrIllegalArgument{"malformed cooldown"}
	}
	return cooldownRequest{caller: caller, cooldown: cooldown}, nil
}

func decodeActorRequest(_ context.Context, r *http.Request) (interface{}, error) {
	addr, err := cipherbatch.ToAddress(mux.Vars(r)["address"])
	if err != nil {
		return nil, ErrIllegalArgument{err.Error()}
	}
	return addressRequest{address: addr}, nil
}

func decodeDecryptionRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := cipherbatch.ParseRequestID(mux.Vars(r)["requestId"])
	if err != nil {
		return nil, ErrIllegalArgument{"malformed request id"}
	}
	return decryptionRequest{requestID: id}, nil
}

func decodeEventsRequest(_ context.Context, r *http.Request) (interface{}, error) {
	req := eventsRequest{}
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, ErrIllegalArgument{"malformed since"}
		}
		req.since = since
	}
	return req, nil
}
