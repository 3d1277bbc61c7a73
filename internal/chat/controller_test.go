package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"history-mind-companion/internal/format"
	"history-mind-companion/internal/i18n"
	"history-mind-companion/internal/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.NewLogger(logger.LogConfig{Level: "error", LogDirectory: "none"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return l
}

func newTestController(t *testing.T, url string, lang i18n.Language) *Controller {
	t.Helper()
	translator, err := i18n.NewManager(i18n.LanguageVi)
	if err != nil {
		t.Fatalf("failed to create translator: %v", err)
	}
	c, err := NewController(Options{
		ChatURL:    url,
		Client:     &http.Client{Timeout: 10 * time.Second},
		Logger:     newTestLogger(t),
		Translator: translator,
		Language:   lang,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c
}

// waitForState blocks until cond holds for the controller state
func waitForState(t *testing.T, c *Controller, cond func(State) bool) State {
	t.Helper()
	ch := make(chan State, 64)
	cancel := c.Subscribe(func(s State) {
		select {
		case ch <- s:
		default:
		}
	})
	defer cancel()

	if s := c.State(); cond(s) {
		return s
	}
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s := <-ch:
			if cond(s) {
				return s
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state, last: %+v", c.State())
			return State{}
		}
	}
}

func sseFrame(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": content}}},
	})
	return "data: " + string(payload) + "\n\n"
}

func TestSendMessageJSON(t *testing.T) {
	type capture struct {
		contentType string
		body        ChatRequest
	}
	captured := make(chan capture, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got capture
		got.contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got.body)
		captured <- got
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		io.WriteString(w, `{"938": {"summary": "Thắng lợi Bạch Đằng", "events": []}}`)
	}))
	defer server.Close()

	c := newTestController(t, server.URL, i18n.LanguageVi)
	if err := c.SendMessage(context.Background(), "Trận Bạch Đằng năm 938"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	got := <-captured
	if got.contentType != "application/json" {
		t.Errorf("request Content-Type = %q", got.contentType)
	}
	if received := got.body; received.Question != "Trận Bạch Đằng năm 938" || len(received.Messages) != 1 {
		t.Errorf("unexpected request body: %+v", received)
	}

	state := c.State()
	if state.IsLoading || state.Error != "" || state.Phase != PhaseIdle {
		t.Errorf("unexpected state: %+v", state)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(state.Messages))
	}
	if state.Messages[0].Role != RoleUser || state.Messages[0].Content != "Trận Bạch Đằng năm 938" {
		t.Errorf("Messages[0] = %+v", state.Messages[0])
	}
	answer := state.Messages[1]
	if answer.Role != RoleAssistant || answer.ID == "" {
		t.Errorf("Messages[1] = %+v", answer)
	}
	if !strings.Contains(answer.Content, "### Năm 938") || !strings.Contains(answer.Content, "**Tóm tắt:** Thắng lợi Bạch Đằng") {
		t.Errorf("answer content = %q", answer.Content)
	}
}

func TestSendMessageSendsHistory(t *testing.T) {
	var requests []ChatRequest
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"answer": "Nhà Lý"}`)
	}))
	defer server.Close()

	c := newTestController(t, server.URL, i18n.LanguageVi)
	c.SendMessage(context.Background(), "Câu 1")
	c.SendMessage(context.Background(), "Câu 2")

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(requests))
	}
	second := requests[1].Messages
	if len(second) != 3 {
		t.Fatalf("second request has %d messages, want 3", len(second))
	}
	if second[0].Content != "Câu 1" || second[1].Content != "Nhà Lý" {
		t.Errorf("history sent without instruction: %+v", second[:2])
	}
	if !strings.HasPrefix(second[2].Content, "Câu 2\n\n[SYSTEM INSTRUCTION") {
		t.Errorf("last message = %q", second[2].Content)
	}
}

func TestSendMessageStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		io.WriteString(w, ": connected\n\n")
		for _, part := range []string{`{"no_data":`, ` true}`} {
			io.WriteString(w, sseFrame(part))
			flusher.Flush()
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := newTestController(t, server.URL, i18n.LanguageVi)

	var mu sync.Mutex
	var contents []string
	c.Subscribe(func(s State) {
		if len(s.Messages) == 2 {
			mu.Lock()
			contents = append(contents, s.Messages[1].Content)
			mu.Unlock()
		}
	})

	if err := c.SendMessage(context.Background(), "Năm 3000 có gì?"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	state := c.State()
	if len(state.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(state.Messages))
	}
	if got := state.Messages[1].Content; got != format.NoDataMessage {
		t.Errorf("final content = %q, want %q", got, format.NoDataMessage)
	}
	if state.IsLoading {
		t.Error("expected loading to stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(contents) < 3 || contents[0] != "" {
		t.Fatalf("expected an empty placeholder followed by deltas, got %q", contents)
	}
	seen := strings.Join(contents, "|")
	if !strings.Contains(seen, `{"no_data":|{"no_data": true}`) {
		t.Errorf("expected running answer updates, got %q", contents)
	}
}

func TestSendMessageProtocolErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"error field", http.StatusInternalServerError, `{"error": "Server Error"}`, "Server Error"},
		{"envelope", http.StatusBadRequest, `{"code": 400, "message": "Câu hỏi trống"}`, "Câu hỏi trống"},
		{"no body", http.StatusServiceUnavailable, ``, "Error: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c := newTestController(t, server.URL, i18n.LanguageVi)
			err := c.SendMessage(context.Background(), "Câu hỏi")

			var turnErr *TurnError
			if !errors.As(err, &turnErr) {
				t.Fatalf("expected *TurnError, got %v", err)
			}
			if turnErr.Kind != ErrorKindProtocol || turnErr.Status != tt.status {
				t.Errorf("turnErr = %+v", turnErr)
			}

			state := c.State()
			if state.Error != tt.expected {
				t.Errorf("state.Error = %q, want %q", state.Error, tt.expected)
			}
			if len(state.Messages) != 1 || state.Messages[0].Role != RoleUser {
				t.Errorf("expected only the user message, got %+v", state.Messages)
			}
			if state.IsLoading {
				t.Error("expected loading to stop")
			}
		})
	}
}

func TestSendMessageTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	tests := []struct {
		lang     i18n.Language
		expected string
	}{
		{i18n.LanguageVi, "Có lỗi xảy ra"},
		{i18n.LanguageEn, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			c := newTestController(t, url, tt.lang)
			err := c.SendMessage(context.Background(), "Câu hỏi")

			var turnErr *TurnError
			if !errors.As(err, &turnErr) || turnErr.Kind != ErrorKindTransport {
				t.Fatalf("expected transport error, got %v", err)
			}
			if state := c.State(); state.Error != tt.expected || state.IsLoading {
				t.Errorf("unexpected state: %+v", state)
			}
		})
	}
}

func TestSendMessageBrokenStreamRemovesEmptyPlaceholder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		defer conn.Close()
		fmt.Fprint(buf, "HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nContent-Length: 500\r\n\r\n: ping\n")
		buf.Flush()
	}))
	defer server.Close()

	c := newTestController(t, server.URL, i18n.LanguageVi)
	err := c.SendMessage(context.Background(), "Câu hỏi")

	var turnErr *TurnError
	if !errors.As(err, &turnErr) || turnErr.Kind != ErrorKindBody {
		t.Fatalf("expected body error, got %v", err)
	}

	state := c.State()
	if len(state.Messages) != 1 {
		t.Errorf("expected the empty placeholder to be removed, got %+v", state.Messages)
	}
	if state.Error != "Có lỗi xảy ra" {
		t.Errorf("state.Error = %q", state.Error)
	}
}

func TestSendMessageIdentityShortCircuit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	tests := []struct {
		lang     i18n.Language
		expected string
	}{
		{i18n.LanguageVi, IdentityReply},
		{i18n.LanguageEn, "Hello, I am History Mind AI. I am here to help you explore the history of Vietnam and the world. Do you have a question?"},
	}

	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			c := newTestController(t, server.URL, tt.lang)

			var loadingSeen bool
			c.Subscribe(func(s State) {
				if s.IsLoading {
					loadingSeen = true
				}
			})

			if err := c.SendMessage(context.Background(), "Bạn là ai?"); err != nil {
				t.Fatalf("SendMessage() error = %v", err)
			}

			state := c.State()
			if len(state.Messages) != 2 || state.Messages[1].Content != tt.expected {
				t.Errorf("unexpected messages: %+v", state.Messages)
			}
			if loadingSeen {
				t.Error("identity answers must not show loading")
			}
		})
	}

	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("backend was called %d times", hits)
	}
}

func TestSendMessageRejectsOverlappingTurn(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"answer": "Nhà Trần"}`)
	}))
	defer server.Close()

	c := newTestController(t, server.URL, i18n.LanguageVi)

	done := make(chan error, 1)
	go func() {
		done <- c.SendMessage(context.Background(), "Câu 1")
	}()
	waitForState(t, c, func(s State) bool { return s.IsLoading })

	if err := c.SendMessage(context.Background(), "Câu 2"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("second SendMessage() error = %v, want ErrTurnInFlight", err)
	}
	if err := c.SendMessage(context.Background(), "Bạn là ai?"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("identity SendMessage() error = %v, want ErrTurnInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first SendMessage() error = %v", err)
	}

	state := c.State()
	if len(state.Messages) != 2 || state.Messages[0].Content != "Câu 1" || state.Messages[1].Content != "Nhà Trần" {
		t.Errorf("unexpected messages: %+v", state.Messages)
	}
}

func TestClearMessagesAbandonsTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseFrame("Nhà Trần"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	c := newTestController(t, server.URL, i18n.LanguageVi)

	done := make(chan error, 1)
	go func() {
		done <- c.SendMessage(context.Background(), "Câu hỏi")
	}()
	waitForState(t, c, func(s State) bool {
		return len(s.Messages) == 2 && s.Messages[1].Content == "Nhà Trần"
	})

	c.ClearMessages()

	select {
	case err := <-done:
		if !errors.Is(err, ErrConversationCleared) {
			t.Errorf("SendMessage() error = %v, want ErrConversationCleared", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("turn did not stop after ClearMessages")
	}

	state := c.State()
	if len(state.Messages) != 0 || state.IsLoading || state.Error != "" || state.Phase != PhaseIdle {
		t.Errorf("expected a cleared idle state, got %+v", state)
	}
}

func TestClearMessagesResetsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestController(t, server.URL, i18n.LanguageVi)
	c.SendMessage(context.Background(), "Câu hỏi")
	if c.State().Error == "" {
		t.Fatal("expected an error before clearing")
	}

	c.ClearMessages()
	if state := c.State(); state.Error != "" || len(state.Messages) != 0 {
		t.Errorf("unexpected state after clear: %+v", state)
	}
}

func TestSubscribeCancel(t *testing.T) {
	c := newTestController(t, "http://127.0.0.1:0", i18n.LanguageVi)

	var calls int
	cancel := c.Subscribe(func(State) { calls++ })
	c.ClearMessages()
	cancel()
	c.ClearMessages()

	if calls != 1 {
		t.Errorf("observer called %d times, want 1", calls)
	}
}

func TestNewControllerValidation(t *testing.T) {
	if _, err := NewController(Options{Logger: newTestLogger(t)}); err == nil {
		t.Error("expected an error without a chat URL")
	}
	if _, err := NewController(Options{ChatURL: "http://localhost"}); err == nil {
		t.Error("expected an error without a logger")
	}
}

func TestSendMessageEmptyAnswerFails(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     error
	}{
		{"empty json body", "application/json", "", errEmptyBody},
		{"blank json body", "application/json", " \n", errEmptyBody},
		{"json null", "application/json", "null", errEmptyAnswer},
		{"json false", "application/json", "false", errEmptyAnswer},
		{"stream without deltas", "text/event-stream", "data: [DONE]\n\n", errEmptyAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c := newTestController(t, server.URL, i18n.LanguageVi)
			err := c.SendMessage(context.Background(), "Câu hỏi")

			var turnErr *TurnError
			if !errors.As(err, &turnErr) || turnErr.Kind != ErrorKindBody {
				t.Fatalf("expected body error, got %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}

			state := c.State()
			if state.Error != "Có lỗi xảy ra" || state.IsLoading {
				t.Errorf("unexpected state: %+v", state)
			}
			if len(state.Messages) != 1 || state.Messages[0].Role != RoleUser {
				t.Errorf("expected only the user message, got %+v", state.Messages)
			}
		})
	}
}

func TestNewControllerDefaultsToTranslatorLanguage(t *testing.T) {
	translator, err := i18n.NewManager(i18n.LanguageEn)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	c, err := NewController(Options{
		ChatURL:    "http://127.0.0.1:0",
		Logger:     newTestLogger(t),
		Translator: translator,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	if got := c.Language(); got != i18n.LanguageEn {
		t.Errorf("Language() = %q, want %q", got, i18n.LanguageEn)
	}
	if got := c.translate(genericErrorMessage); got != "Something went wrong" {
		t.Errorf("translate() = %q", got)
	}
}
