// Package chat runs conversation turns against the History Mind backend and
// keeps the ordered message log the presentation layer renders.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"history-mind-companion/internal/format"
	"history-mind-companion/internal/i18n"
	"history-mind-companion/internal/logger"
	"history-mind-companion/internal/metrics"
	"history-mind-companion/internal/stream"
)

// maxErrorBodySize caps how much of a failed response is read for its message.
const maxErrorBodySize = 1 << 20

// HTTPDoer sends the outbound request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Controller.
type Options struct {
	ChatURL        string
	Client         HTTPDoer
	Logger         *logger.Logger
	Translator     *i18n.Manager
	Language       i18n.Language
	ReadBufferSize int
}

// Controller owns one conversation. At most one turn runs at a time.
type Controller struct {
	chatURL        string
	client         HTTPDoer
	logger         *logger.Logger
	translator     *i18n.Manager
	language       i18n.Language
	readBufferSize int

	mu         sync.Mutex
	messages   []Message
	isLoading  bool
	errMsg     string
	phase      Phase
	inFlight   bool
	generation uint64
	cancelTurn context.CancelFunc

	notifyMu     sync.Mutex
	observers    map[int]Observer
	nextObserver int
}

// NewController validates opts and returns an idle controller.
func NewController(opts Options) (*Controller, error) {
	if opts.ChatURL == "" {
		return nil, fmt.Errorf("chat URL is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	readBufferSize := opts.ReadBufferSize
	if readBufferSize <= 0 {
		readBufferSize = stream.DefaultReadBufferSize
	}
	language := opts.Language
	if language == "" && opts.Translator != nil {
		language = opts.Translator.DefaultLanguage()
	}

	return &Controller{
		chatURL:        opts.ChatURL,
		client:         client,
		logger:         opts.Logger,
		translator:     opts.Translator,
		language:       language,
		readBufferSize: readBufferSize,
		phase:          PhaseIdle,
		observers:      make(map[int]Observer),
	}, nil
}

// Language returns the locale used for user-visible strings.
func (c *Controller) Language() i18n.Language {
	return c.language
}

// SendMessage runs one turn for text and blocks until it finishes. Failures
// are published as the state's error; the returned error carries the same
// failure for callers that want it.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if IsIdentityQuestion(text) {
		return c.answerIdentity(text)
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	user := newMessage(RoleUser, text)
	var (
		history  []Message
		gen      uint64
		rejected bool
	)
	c.update(func() bool {
		if c.inFlight {
			rejected = true
			return false
		}
		history = make([]Message, len(c.messages))
		copy(history, c.messages)

		c.messages = append(c.messages, user)
		c.inFlight = true
		c.isLoading = true
		c.errMsg = ""
		c.phase = PhaseSending
		c.cancelTurn = cancel
		gen = c.generation
		return true
	})
	if rejected {
		metrics.TurnsTotal.WithLabelValues(turnModeNone, turnOutcomeRejected).Inc()
		return ErrTurnInFlight
	}

	var err error
	turnLog := c.logger.NewTurnLog(uuid.NewString(), c.chatURL, text)
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		turnLog.DurationMs = elapsed.Milliseconds()
		c.logger.LogTurn(turnLog)
		recordTurn(turnLog, err, elapsed)
	}()

	err = c.runTurn(turnCtx, gen, BuildRequest(history, text), turnLog)

	c.update(func() bool {
		if c.generation != gen {
			return false
		}
		c.inFlight = false
		c.isLoading = false
		c.cancelTurn = nil
		c.phase = PhaseIdle
		return true
	})

	if err != nil {
		turnLog.Error = err.Error()
		var turnErr *TurnError
		if errors.As(err, &turnErr) {
			turnLog.ErrorKind = string(turnErr.Kind)
		}
	}
	return err
}

// ClearMessages empties the log and error and abandons any running turn.
// Nothing the abandoned turn produces reaches the cleared log.
func (c *Controller) ClearMessages() {
	c.update(func() bool {
		if c.cancelTurn != nil {
			c.cancelTurn()
			c.cancelTurn = nil
		}
		c.generation++
		c.messages = nil
		c.errMsg = ""
		c.isLoading = false
		c.inFlight = false
		c.phase = PhaseIdle
		return true
	})
}

func (c *Controller) answerIdentity(text string) error {
	var rejected bool
	c.update(func() bool {
		if c.inFlight {
			rejected = true
			return false
		}
		c.messages = append(c.messages,
			newMessage(RoleUser, text),
			newMessage(RoleAssistant, c.translate(IdentityReply)),
		)
		return true
	})
	if rejected {
		metrics.TurnsTotal.WithLabelValues(turnModeIdentity, turnOutcomeRejected).Inc()
		return ErrTurnInFlight
	}
	metrics.TurnsTotal.WithLabelValues(turnModeIdentity, turnOutcomeOK).Inc()

	c.logger.Debug("Answered identity question locally", map[string]interface{}{
		"question": text,
	})
	return nil
}

func (c *Controller) runTurn(ctx context.Context, gen uint64, payload ChatRequest, turnLog *logger.TurnLog) error {
	var body bytes.Buffer
	encoder := json.NewEncoder(&body)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		return c.fail(gen, "", &TurnError{Kind: ErrorKindTransport, Message: c.translate(genericErrorMessage), Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, &body)
	if err != nil {
		return c.fail(gen, "", &TurnError{Kind: ErrorKindTransport, Message: c.translate(genericErrorMessage), Err: err})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if c.stale(gen) {
			return ErrConversationCleared
		}
		return c.fail(gen, "", &TurnError{Kind: ErrorKindTransport, Message: c.translate(genericErrorMessage), Err: err})
	}
	defer resp.Body.Close()

	turnLog.StatusCode = resp.StatusCode
	turnLog.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		turnLog.RawResponse = string(errBody)
		return c.fail(gen, "", &TurnError{
			Kind:    ErrorKindProtocol,
			Status:  resp.StatusCode,
			Message: errorMessage(errBody, resp.StatusCode),
		})
	}

	if strings.Contains(turnLog.ContentType, "application/json") {
		return c.receiveJSON(gen, resp.Body, turnLog)
	}
	return c.receiveStream(gen, resp.Body, turnLog)
}

func (c *Controller) receiveJSON(gen uint64, body io.Reader, turnLog *logger.TurnLog) error {
	c.setPhase(gen, PhaseReceivingJSON)

	data, err := io.ReadAll(body)
	if err != nil {
		if c.stale(gen) {
			return ErrConversationCleared
		}
		return c.fail(gen, "", &TurnError{Kind: ErrorKindBody, Message: c.translate(genericErrorMessage), Err: err})
	}

	turnLog.RawResponse = string(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return c.fail(gen, "", &TurnError{Kind: ErrorKindBody, Message: c.translate(genericErrorMessage), Err: errEmptyBody})
	}

	content, kind := format.FormatKind(data)
	content = c.translate(content)
	turnLog.PayloadKind = kind.String()
	turnLog.FormattedContent = content
	if content == "" {
		return c.fail(gen, "", &TurnError{Kind: ErrorKindBody, Message: c.translate(genericErrorMessage), Err: errEmptyAnswer})
	}

	answer := newMessage(RoleAssistant, content)
	c.update(func() bool {
		if c.generation != gen {
			return false
		}
		c.messages = append(c.messages, answer)
		c.phase = PhaseDone
		return true
	})
	return nil
}

func (c *Controller) receiveStream(gen uint64, body io.Reader, turnLog *logger.TurnLog) error {
	turnLog.IsStreaming = true

	placeholder := newMessage(RoleAssistant, "")
	c.update(func() bool {
		if c.generation != gen {
			return false
		}
		c.messages = append(c.messages, placeholder)
		c.phase = PhaseStreaming
		return true
	})

	decoder := stream.NewDecoder(func(_, answer string) {
		c.setContent(gen, placeholder.ID, answer)
	})
	decoder.ReadBufferSize = c.readBufferSize

	_, err := decoder.ReadFrom(body)
	turnLog.DeltaCount = decoder.Deltas()
	turnLog.SawDone = decoder.Done()
	turnLog.RawResponse = decoder.Text()
	if err != nil {
		if c.stale(gen) {
			return ErrConversationCleared
		}
		return c.fail(gen, placeholder.ID, &TurnError{Kind: ErrorKindBody, Message: c.translate(genericErrorMessage), Err: err})
	}

	c.setPhase(gen, PhaseFinalizing)
	content, kind := format.FormatKind(decoder.Text())
	content = c.translate(content)
	turnLog.PayloadKind = kind.String()
	turnLog.FormattedContent = content
	if content == "" {
		c.setContent(gen, placeholder.ID, "")
		return c.fail(gen, placeholder.ID, &TurnError{Kind: ErrorKindBody, Message: c.translate(genericErrorMessage), Err: errEmptyAnswer})
	}

	c.update(func() bool {
		if c.generation != gen {
			return false
		}
		c.replaceContentLocked(placeholder.ID, content)
		c.phase = PhaseDone
		return true
	})
	if c.stale(gen) {
		return ErrConversationCleared
	}
	return nil
}

// fail publishes turnErr and drops the turn's placeholder if it never got
// any content.
func (c *Controller) fail(gen uint64, placeholderID string, turnErr *TurnError) error {
	c.update(func() bool {
		if c.generation != gen {
			return false
		}
		c.errMsg = turnErr.Message
		c.phase = PhaseErrored
		if placeholderID != "" {
			c.removeEmptyLocked(placeholderID)
		}
		return true
	})

	c.logger.Error("Chat turn failed", turnErr, map[string]interface{}{
		"kind":   string(turnErr.Kind),
		"status": turnErr.Status,
	})
	return turnErr
}

func (c *Controller) setPhase(gen uint64, phase Phase) {
	c.update(func() bool {
		if c.generation != gen {
			return false
		}
		c.phase = phase
		return true
	})
}

func (c *Controller) setContent(gen uint64, id, content string) {
	c.update(func() bool {
		if c.generation != gen {
			return false
		}
		return c.replaceContentLocked(id, content)
	})
}

func (c *Controller) replaceContentLocked(id, content string) bool {
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Content = content
			return true
		}
	}
	return false
}

func (c *Controller) removeEmptyLocked(id string) {
	kept := c.messages[:0]
	for _, m := range c.messages {
		if m.ID == id && m.Content == "" {
			continue
		}
		kept = append(kept, m)
	}
	c.messages = kept
}

func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != gen
}

func (c *Controller) translate(text string) string {
	if c.translator == nil {
		return text
	}
	return c.translator.Translate(text, c.language)
}
