package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// IdentityReply answers self-introduction questions without the backend.
	IdentityReply = "Xin chào, tôi là History Mind AI. Tôi ở đây để giúp bạn tìm hiểu về lịch sử Việt Nam và thế giới. Bạn có câu hỏi nào không?"

	genericErrorMessage = "Có lỗi xảy ra"

	systemInstruction = "\n\n[SYSTEM INSTRUCTION: You are History Mind AI.\n" +
		"If the user asks who you are, introduce yourself as History Mind AI.\n" +
		"If the user asks for events between two years (e.g., 1945-2000), you MUST list events for EVERY year in that range, not just the start year.\n" +
		"If you cannot find information for the specific question asked, return {\"no_data\": true}.\n" +
		"Do NOT repeat the previous answer if it is not relevant to the new question."
	rangeInstruction = " The user is asking for a range. Retrieve and list events for ALL years in this range."
)

var (
	identityPattern = regexp.MustCompile(`(?i)(who are you|bạn là ai|giới thiệu|what is your name|tên bạn là gì)`)

	rangePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:từ|năm)\s+(\d{3,4})\s+(?:đến|tới|-)\s+(?:năm\s+)?(\d{3,4})`),
		regexp.MustCompile(`(?i)(?:from)\s+(\d{3,4})\s+(?:to|-)\s+(\d{3,4})`),
	}
)

// ChatRequest is the body posted to the chat endpoint.
type ChatRequest struct {
	Question string        `json:"question"`
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is a log entry reduced to what the backend reads.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IsIdentityQuestion reports whether input asks who the assistant is.
func IsIdentityQuestion(input string) bool {
	return identityPattern.MatchString(input)
}

// IsRangeQuery reports whether input asks about a span of years.
func IsRangeQuery(input string) bool {
	for _, p := range rangePatterns {
		if p.MatchString(input) {
			return true
		}
	}
	return false
}

// SystemInstruction returns the block appended to the newest message.
func SystemInstruction(input string) string {
	instruction := systemInstruction
	if IsRangeQuery(input) {
		instruction += rangeInstruction
	}
	return instruction + "]"
}

// BuildRequest assembles the outbound body from the log and the new input.
// Only the last message carries the system instruction.
func BuildRequest(history []Message, input string) ChatRequest {
	messages := make([]ChatMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: input})
	messages[len(messages)-1].Content += SystemInstruction(input)

	return ChatRequest{
		Question: input,
		Messages: messages,
	}
}

// errorMessage picks the user-visible message for a failed response. The
// backend may answer {"error": "..."} or its {"code", "message"} envelope.
func errorMessage(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"error", "message"} {
			if v := gjson.GetBytes(body, field); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
				return v.Str
			}
		}
	}
	return fmt.Sprintf("Error: %d", status)
}
