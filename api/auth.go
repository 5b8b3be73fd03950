package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DE-labtory/cipherbatch"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

const (
	SignatureHeader = "X-Cipherbatch-Signature"
	TimestampHeader = "X-Cipherbatch-Timestamp"
	NonceHeader     = "X-Cipherbatch-Nonce"

	// DefaultSignatureWindow bounds how far a request timestamp may be from
	// the server clock. A signed request is accepted once inside it.
	DefaultSignatureWindow = 5 * time.Minute

	maxBodySize = 1 << 20
)

var errUnauthenticated = errors.New("unauthenticated")

type callerKey struct{}

// RequestDigest is the message a caller signs: the request line, the unix
// timestamp, a nonce and the body.
func RequestDigest(method, requestURI string, timestamp int64, nonce string, body []byte) []byte {
	header := fmt.Sprintf("cipherbatch/api\n%s\n%s\n%d\n%s\n", method, requestURI, timestamp, nonce)
	return crypto.Keccak256([]byte(header), crypto.Keccak256(body))
}

// SignRequest sets the authentication headers of req for body signed by key.
func SignRequest(req *http.Request, body []byte, key *ecdsa.PrivateKey, at time.Time) error {
	timestamp := at.Unix()
	nonce := uuid.NewString()
	sig, err := crypto.Sign(RequestDigest(req.Method, req.URL.RequestURI(), timestamp, nonce, body), key)
	if err != nil {
		return err
	}
	req.Header.Set(TimestampHeader, strconv.FormatInt(timestamp, 10))
	req.Header.Set(NonceHeader, nonce)
	req.Header.Set(SignatureHeader, hexutil.Encode(sig))
	return nil
}

// authenticator recovers the caller of a signed request. Every digest is
// accepted at most once while its timestamp is inside the window, so a
// client needs a fresh nonce per request.
type authenticator struct {
	window time.Duration
	now    func() time.Time

	lock sync.Mutex
	seen map[common.Hash]time.Time
}

func newAuthenticator(window time.Duration, now func() time.Time) *authenticator {
	return &authenticator{
		window: window,
		now:    now,
		seen:   make(map[common.Hash]time.Time),
	}
}

func (a *authenticator) authenticate(r *http.Request, body []byte) (cipherbatch.Address, error) {
	timestamp, err := strconv.ParseInt(r.Header.Get(TimestampHeader), 10, 64)
	if err != nil {
		return cipherbatch.Address{}, fmt.Errorf("%w: missing or malformed timestamp", errUnauthenticated)
	}
	now := a.now()
	signedAt := time.Unix(timestamp, 0)
	if signedAt.Before(now.Add(-a.window)) || signedAt.After(now.Add(a.window)) {
		return cipherbatch.Address{}, fmt.Errorf("%w: timestamp outside of the accepted window", errUnauthenticated)
	}

	nonce := r.Header.Get(NonceHeader)
	if nonce == "" || strings.ContainsRune(nonce, '\n') {
		return cipherbatch.Address{}, fmt.Errorf("%w: missing or malformed nonce", errUnauthenticated)
	}
	sig, err := hexutil.Decode(r.Header.Get(SignatureHeader))
	if err != nil || len(sig) != crypto.SignatureLength {
		return cipherbatch.Address{}, fmt.Errorf("%w: missing or malformed signature", errUnauthenticated)
	}
	digest := RequestDigest(r.Method, r.URL.RequestURI(), timestamp, nonce, body)
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return cipherbatch.Address{}, fmt.Errorf("%w: %s", errUnauthenticated, err)
	}

	a.lock.Lock()
	defer a.lock.Unlock()
	for d, expiry := range a.seen {
		if now.After(expiry) {
			delete(a.seen, d)
		}
	}
	key := common.BytesToHash(digest)
	if _, ok := a.seen[key]; ok {
		return cipherbatch.Address{}, fmt.Errorf("%w: request already used", errUnauthenticated)
	}
	a.seen[key] = signedAt.Add(a.window)

	return crypto.PubkeyToAddress(*pub), nil
}

// middleware puts the recovered caller into the request context and hands
// the body on unchanged.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			encodeError(r.Context(), ErrIllegalArgument{err.Error()}, w)
			return
		}
		caller, err := a.authenticate(r, body)
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFrom(ctx context.Context) (cipherbatch.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(cipherbatch.Address)
	return caller, ok
}
