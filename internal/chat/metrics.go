package chat

import (
	"errors"
	"time"

	"history-mind-companion/internal/logger"
	"history-mind-companion/internal/metrics"
)

const (
	turnModeJSON     = "json"
	turnModeStream   = "stream"
	turnModeIdentity = "identity"
	turnModeNone     = "none" // no response body was received

	turnOutcomeOK       = "ok"
	turnOutcomeError    = "error"
	turnOutcomeCleared  = "cleared"
	turnOutcomeRejected = "rejected"
)

// recordTurn exports a finished backend turn to the metrics collectors
func recordTurn(turnLog *logger.TurnLog, err error, elapsed time.Duration) {
	mode := turnModeNone
	switch {
	case turnLog.IsStreaming:
		mode = turnModeStream
	case turnLog.StatusCode >= 200 && turnLog.StatusCode <= 299:
		mode = turnModeJSON
	}

	outcome := turnOutcomeOK
	switch {
	case errors.Is(err, ErrConversationCleared):
		outcome = turnOutcomeCleared
	case err != nil:
		outcome = turnOutcomeError
	}

	metrics.TurnsTotal.WithLabelValues(mode, outcome).Inc()
	metrics.TurnDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if turnLog.DeltaCount > 0 {
		metrics.StreamDeltas.Add(float64(turnLog.DeltaCount))
	}
	if turnLog.PayloadKind != "" {
		metrics.PayloadKinds.WithLabelValues(turnLog.PayloadKind).Inc()
	}
}
