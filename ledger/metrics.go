package ledger

import (
	"errors"

	"github.com/DE-labtory/cipherbatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	currentBatchID       prometheus.Gauge
	artistsSubmitted     prometheus.Counter
	decryptionRequests   prometheus.Counter
	decryptionsCompleted prometheus.Counter
	pendingDecryptions   prometheus.Gauge
	rejections           *prometheus.CounterVec
	integrityFailures    *prometheus.CounterVec
}

// newLedgerMetrics registers nothing when promRegistry is nil.
func newLedgerMetrics(promRegistry prometheus.Registerer) *ledgerMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &ledgerMetrics{
		currentBatchID: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "cipherbatch_ledger_current_batch_id",
			Help: "highest assigned batch id",
		}),
		artistsSubmitted: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "cipherbatch_ledger_artists_submitted_total",
			Help: "total number of accepted artist submissions",
		}),
		decryptionRequests: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "cipherbatch_ledger_decryption_requests_total",
			Help: "total number of dispatched batch decryption requests",
		}),
		decryptionsCompleted: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "cipherbatch_ledger_decryptions_completed_total",
			Help: "total number of verified and published decryptions",
		}),
		pendingDecryptions: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "cipherbatch_ledger_pending_decryptions",
			Help: "decryption requests waiting for a valid callback",
		}),
		rejections: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "cipherbatch_ledger_rejections_total",
			Help: "rejected ledger operations by operation and error",
		}, []string{"operation", "error"}),
		integrityFailures: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "cipherbatch_integrity_failures_total",
			Help: "rejected decryption callbacks by reason",
		}, []string{"reason"}),
	}
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, cipherbatch.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, cipherbatch.ErrNotProvider):
		return "not_provider"
	case errors.Is(err, cipherbatch.ErrPaused):
		return "paused"
	case errors.Is(err, cipherbatch.ErrInvalidBatch):
		return "invalid_batch"
	case errors.Is(err, cipherbatch.ErrCooldownActive):
		return "cooldown_active"
	case errors.Is(err, cipherbatch.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "other"
	}
}
