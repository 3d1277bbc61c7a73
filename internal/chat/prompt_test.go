package chat

import (
	"strings"
	"testing"
)

func TestBuildRequest(t *testing.T) {
	history := []Message{
		{ID: "1", Role: RoleUser, Content: "Nhà Trần thành lập năm nào?"},
		{ID: "2", Role: RoleAssistant, Content: "### Năm 1225"},
	}

	req := BuildRequest(history, "Còn nhà Lê?")

	if req.Question != "Còn nhà Lê?" {
		t.Errorf("Question = %q", req.Question)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(req.Messages))
	}
	if req.Messages[0].Content != history[0].Content || req.Messages[1].Content != history[1].Content {
		t.Errorf("earlier messages must be sent unchanged: %+v", req.Messages[:2])
	}
	if req.Messages[1].Role != RoleAssistant {
		t.Errorf("Messages[1].Role = %q", req.Messages[1].Role)
	}

	last := req.Messages[2]
	if last.Role != RoleUser {
		t.Errorf("last role = %q, want user", last.Role)
	}
	if !strings.HasPrefix(last.Content, "Còn nhà Lê?\n\n[SYSTEM INSTRUCTION: You are History Mind AI.") {
		t.Errorf("last content = %q", last.Content)
	}
	if !strings.HasSuffix(last.Content, "]") {
		t.Errorf("instruction block must be closed: %q", last.Content)
	}
	if strings.Contains(last.Content, rangeInstruction) {
		t.Errorf("range sentence added to a non-range question")
	}

	// the caller's history is not modified
	if history[1].Content != "### Năm 1225" {
		t.Errorf("history mutated: %+v", history)
	}
}

func TestBuildRequestEmptyHistory(t *testing.T) {
	req := BuildRequest(nil, "Liệt kê sự kiện từ 1945 đến 1975")

	if len(req.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(req.Messages))
	}
	content := req.Messages[0].Content
	if !strings.HasSuffix(content, rangeInstruction+"]") {
		t.Errorf("expected range sentence before the closing bracket: %q", content)
	}
	for _, directive := range []string{
		"introduce yourself as History Mind AI",
		"list events for EVERY year in that range",
		`return {"no_data": true}`,
		"Do NOT repeat the previous answer",
	} {
		if !strings.Contains(content, directive) {
			t.Errorf("missing directive %q", directive)
		}
	}
}

func TestIsRangeQuery(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Các sự kiện từ 1945 đến 1975", true},
		{"năm 1945 - năm 1975 có gì", true},
		{"Từ 938 tới 1009", true},
		{"events from 1945 to 2000", true},
		{"FROM 1945 - 2000", true},
		{"năm 1945", false},
		{"1945-2000", false},
		{"từ 12 đến 15", false},
		{"from 1945 until 2000", false},
	}

	for _, tt := range tests {
		if got := IsRangeQuery(tt.input); got != tt.expected {
			t.Errorf("IsRangeQuery(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestIsIdentityQuestion(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Bạn là ai?", true},
		{"WHO ARE YOU", true},
		{"What is your name?", true},
		{"Tên bạn là gì", true},
		{"Giới thiệu về nhà Trần", true},
		{"Năm 1945 có sự kiện gì?", false},
	}

	for _, tt := range tests {
		if got := IsIdentityQuestion(tt.input); got != tt.expected {
			t.Errorf("IsIdentityQuestion(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		expected string
	}{
		{"error field", `{"error": "Server Error"}`, 500, "Server Error"},
		{"spring envelope", `{"code": 400, "message": "Câu hỏi không hợp lệ"}`, 400, "Câu hỏi không hợp lệ"},
		{"error wins over message", `{"error": "A", "message": "B"}`, 500, "A"},
		{"empty error", `{"error": ""}`, 500, "Error: 500"},
		{"non string error", `{"error": {"detail": "x"}}`, 500, "Error: 500"},
		{"html body", `<html>Bad Gateway</html>`, 502, "Error: 502"},
		{"empty body", ``, 503, "Error: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage([]byte(tt.body), tt.status); got != tt.expected {
				t.Errorf("errorMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}
