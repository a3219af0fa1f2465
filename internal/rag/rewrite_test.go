package rag

import (
	"strings"
	"testing"

	"lawchat/internal/llm"
)

func TestRewriteQueryVagueFollowUp(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "Mức phạt vượt đèn đỏ với xe máy là bao nhiêu?"},
		{Role: "assistant", Content: "Theo Nghị định 168/2024, mức phạt là..."},
	}

	got := rewriteQuery("Nói rõ hơn đi", history)
	if got != "Mức phạt vượt đèn đỏ với xe máy là bao nhiêu?" {
		t.Fatalf("expected previous user question, got %q", got)
	}
}

func TestRewriteQueryPicksMostRecentUserMessage(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "Câu hỏi cũ về bằng lái"},
		{Role: "assistant", Content: "..."},
		{Role: "user", Content: "Nồng độ cồn bị phạt thế nào?"},
		{Role: "assistant", Content: "..."},
	}

	got := rewriteQuery("giải thích chi tiết hơn", history)
	if got != "Nồng độ cồn bị phạt thế nào?" {
		t.Fatalf("expected most recent user question, got %q", got)
	}
}

func TestRewriteQueryNewQuestionUntouched(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "Câu hỏi trước đó"},
		{Role: "assistant", Content: "..."},
	}

	msg := "Xe ô tô chở quá tải bị phạt bao nhiêu?"
	if got := rewriteQuery(msg, history); got != msg {
		t.Fatalf("new question must pass through unchanged, got %q", got)
	}
}

func TestRewriteQueryNoHistory(t *testing.T) {
	msg := "nói rõ hơn"
	if got := rewriteQuery(msg, nil); got != msg {
		t.Fatalf("with no history the message must pass through, got %q", got)
	}
}

func TestRewriteQueryLongMessageNeverRewritten(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "Câu hỏi trước"},
	}

	// Contains a marker but is far past the follow-up length ceiling.
	msg := "Giải thích chi tiết hơn về toàn bộ quy trình cấp đổi giấy phép lái xe hạng B2 " +
		strings.Repeat("và các giấy tờ cần thiết ", 4)
	if got := rewriteQuery(msg, history); got != msg {
		t.Fatalf("long message must pass through, got %q", got)
	}
}

func TestRewriteQueryMarkerMatchIsCaseFolded(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "Câu hỏi gốc"},
	}

	if got := rewriteQuery("NHẮC LẠI giúp tôi", history); got != "Câu hỏi gốc" {
		t.Fatalf("marker matching must ignore case, got %q", got)
	}
}
