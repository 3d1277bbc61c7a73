package logger

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// ErrStorageUnavailable is returned by queries when turn persistence is off
var ErrStorageUnavailable = errors.New("storage not available")

// TurnLog records one conversation turn against the chat backend
type TurnLog struct {
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
	ChatURL          string    `json:"chat_url"`
	Question         string    `json:"question"`
	StatusCode       int       `json:"status_code"`
	DurationMs       int64     `json:"duration_ms"`
	IsStreaming      bool      `json:"is_streaming"`
	ContentType      string    `json:"content_type,omitempty"`
	DeltaCount       int       `json:"delta_count"`  // number of non-empty stream deltas
	SawDone          bool      `json:"saw_done"`     // [DONE] sentinel observed
	PayloadKind      string    `json:"payload_kind"` // shape detected by the formatter
	RawResponse      string    `json:"raw_response"` // accumulated stream text or JSON body
	FormattedContent string    `json:"formatted_content"`
	RawResponseSize  int       `json:"raw_response_size"`
	Error            string    `json:"error,omitempty"`
	ErrorKind        string    `json:"error_kind,omitempty"`
}

// Failed reports whether the turn ended in an error
func (t *TurnLog) Failed() bool {
	return t.Error != "" || t.StatusCode >= 400
}

// StorageInterface defines the interface for turn log storage backends
type StorageInterface interface {
	SaveLog(log *TurnLog)
	GetLogs(limit, offset int, failedOnly bool) ([]*TurnLog, int, error)
	GetLogsByRequestID(requestID string) ([]*TurnLog, error)
	GetStats() (*TurnStats, error)
	CleanupLogsByDays(days int) (int64, error)
	Close() error
}

type Logger struct {
	logger  *logrus.Logger
	storage StorageInterface
	config  LogConfig
}

type LogConfig struct {
	Level           string
	LogTurnTypes    string
	LogResponseBody string
	LogDirectory    string // "" or "none" keeps turn logs out of the database
}

func NewLogger(config LogConfig) (*Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	l := &Logger{
		logger: logger,
		config: config,
	}

	if config.LogDirectory == "" || config.LogDirectory == "none" {
		return l, nil
	}

	storage, err := NewGORMStorage(config.LogDirectory, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GORM log storage: %v", err)
	}
	l.storage = storage

	return l, nil
}

// LogTurn stores the turn and echoes a summary to the console per log_turn_types
func (l *Logger) LogTurn(log *TurnLog) {
	l.applyBodyPolicy(log)

	if l.storage != nil {
		l.storage.SaveLog(log)
	}

	if !l.shouldLogTurn(log.Failed()) {
		return
	}

	fields := logrus.Fields{
		"request_id":   log.RequestID,
		"status_code":  log.StatusCode,
		"duration_ms":  log.DurationMs,
		"is_streaming": log.IsStreaming,
		"payload_kind": log.PayloadKind,
	}
	if log.IsStreaming {
		fields["delta_count"] = log.DeltaCount
		fields["saw_done"] = log.SawDone
	}
	if log.Error != "" {
		fields["error"] = log.Error
		fields["error_kind"] = log.ErrorKind
	}

	if log.Failed() {
		l.logger.WithFields(fields).Error("Chat turn failed")
	} else {
		l.logger.WithFields(fields).Info("Chat turn completed")
	}
}

func (l *Logger) applyBodyPolicy(log *TurnLog) {
	log.RawResponseSize = len(log.RawResponse)
	switch l.config.LogResponseBody {
	case "none":
		log.RawResponse = ""
		log.FormattedContent = ""
	case "truncated":
		log.RawResponse = truncateBody(log.RawResponse, 1024)
		log.FormattedContent = truncateBody(log.FormattedContent, 1024)
	}
}

func (l *Logger) shouldLogTurn(failed bool) bool {
	switch l.config.LogTurnTypes {
	case "failed":
		return failed
	case "success":
		return !failed
	default:
		return true
	}
}

func (l *Logger) Info(msg string, fields ...logrus.Fields) {
	if len(fields) > 0 {
		l.logger.WithFields(fields[0]).Info(msg)
	} else {
		l.logger.Info(msg)
	}
}

func (l *Logger) Error(msg string, err error, fields ...logrus.Fields) {
	baseFields := logrus.Fields{}
	if err != nil {
		baseFields["error"] = err.Error()
	}

	if len(fields) > 0 {
		for k, v := range fields[0] {
			baseFields[k] = v
		}
	}

	l.logger.WithFields(baseFields).Error(msg)
}

func (l *Logger) Debug(msg string, fields ...logrus.Fields) {
	if len(fields) > 0 {
		l.logger.WithFields(fields[0]).Debug(msg)
	} else {
		l.logger.Debug(msg)
	}
}

func (l *Logger) GetLogs(limit, offset int, failedOnly bool) ([]*TurnLog, int, error) {
	if l.storage == nil {
		return []*TurnLog{}, 0, nil
	}
	return l.storage.GetLogs(limit, offset, failedOnly)
}

func (l *Logger) GetLogsByRequestID(requestID string) ([]*TurnLog, error) {
	if l.storage == nil {
		return []*TurnLog{}, nil
	}
	return l.storage.GetLogsByRequestID(requestID)
}

func (l *Logger) CleanupLogsByDays(days int) (int64, error) {
	if l.storage == nil {
		return 0, ErrStorageUnavailable
	}
	return l.storage.CleanupLogsByDays(days)
}

func (l *Logger) GetStats() (*TurnStats, error) {
	if l.storage == nil {
		return nil, ErrStorageUnavailable
	}
	return l.storage.GetStats()
}

// NewTurnLog starts a turn record stamped with the current time
func (l *Logger) NewTurnLog(requestID, chatURL, question string) *TurnLog {
	return &TurnLog{
		Timestamp: time.Now(),
		RequestID: requestID,
		ChatURL:   chatURL,
		Question:  question,
	}
}

// Close closes the logger and its storage backend
func (l *Logger) Close() error {
	if l.storage != nil {
		return l.storage.Close()
	}
	return nil
}

func truncateBody(body string, maxLen int) string {
	if len(body) <= maxLen {
		return body
	}
	// keep the cut on a rune boundary
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "... [truncated]"
}
