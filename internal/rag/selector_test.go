package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"lawchat/internal/llm"
	"lawchat/internal/rag/mocks"
)

func selectionCandidates(n int) []Candidate {
	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Candidate{
			Document: Document{
				URL:   "https://luat.vn/doc-" + string(rune('a'+i)),
				Title: "Tài liệu " + string(rune('A'+i)),
				Year:  2020 + i,
			},
			Score: float32(n - i),
		})
	}
	return out
}

func TestParseSelection(t *testing.T) {
	candidates := selectionCandidates(5)

	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"comma separated", "1, 3, 5", []string{"doc-a", "doc-c", "doc-e"}},
		{"prose wrapped", "Các tài liệu liên quan là 2 và 4.", []string{"doc-b", "doc-d"}},
		{"numbered list", "1.\n2.\n3.", []string{"doc-a", "doc-b", "doc-c"}},
		{"out of range discarded", "1, 99, 2", []string{"doc-a", "doc-b"}},
		{"zero discarded", "0, 3", []string{"doc-c"}},
		{"repeats discarded", "2, 2, 2, 1", []string{"doc-b", "doc-a"}},
		{"no digits", "không có tài liệu nào phù hợp", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSelection(tt.reply, candidates)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d candidates, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if !strings.HasSuffix(got[i].URL, want) {
					t.Fatalf("position %d: got %q, want suffix %q", i, got[i].URL, want)
				}
			}
		})
	}
}

func TestParseSelectionCapsAtMaxSelected(t *testing.T) {
	candidates := selectionCandidates(15)
	got := parseSelection("1,2,3,4,5,6,7,8,9,10,11,12", candidates)
	if len(got) != maxSelected {
		t.Fatalf("got %d candidates, want cap of %d", len(got), maxSelected)
	}
}

func TestBuildSelectionPrompt(t *testing.T) {
	candidates := selectionCandidates(2)
	prompt := buildSelectionPrompt("Mức phạt vượt đèn đỏ?", candidates)

	if !strings.Contains(prompt, "Mức phạt vượt đèn đỏ?") {
		t.Error("prompt must contain the query")
	}
	if !strings.Contains(prompt, "1. [Năm 2020]") || !strings.Contains(prompt, "2. [Năm 2021]") {
		t.Errorf("prompt must number candidates with years:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Chỉ trả về các số thứ tự") {
		t.Error("prompt must instruct bare number output")
	}
}

func TestSelectDocumentsUsesModelReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Chat(gomock.Any(), gomock.Any(), llm.ChatParams{Temperature: selectionTemperature}).
		Return("3, 1", nil)

	e := NewEngine(nil, nil, "laws", generator, Options{})
	candidates := selectionCandidates(4)

	selected := e.selectDocuments(context.Background(), "câu hỏi", candidates)
	if len(selected) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(selected))
	}
	if selected[0].URL != candidates[2].URL || selected[1].URL != candidates[0].URL {
		t.Fatalf("selection must follow the model's order, got %v", selected)
	}
}

func TestSelectDocumentsFallbackOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Chat(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("upstream 500"))

	e := NewEngine(nil, nil, "laws", generator, Options{})
	candidates := selectionCandidates(12)

	selected := e.selectDocuments(context.Background(), "câu hỏi", candidates)
	if len(selected) != maxSelected {
		t.Fatalf("fallback must truncate to %d, got %d", maxSelected, len(selected))
	}
	// Deterministic fallback: boosted order preserved.
	for i := range selected {
		if selected[i].URL != candidates[i].URL {
			t.Fatalf("fallback must preserve boosted order at %d", i)
		}
	}
}

func TestSelectDocumentsFallbackOnUnparseableReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Chat(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("Tôi không thể chọn tài liệu nào.", nil)

	e := NewEngine(nil, nil, "laws", generator, Options{})
	candidates := selectionCandidates(3)

	selected := e.selectDocuments(context.Background(), "câu hỏi", candidates)
	if len(selected) != 3 {
		t.Fatalf("unparseable reply must fall back to all candidates, got %d", len(selected))
	}
}

func TestSelectDocumentsEmptyCandidates(t *testing.T) {
	e := NewEngine(nil, nil, "laws", nil, Options{})
	if got := e.selectDocuments(context.Background(), "câu hỏi", nil); got != nil {
		t.Fatalf("expected nil for empty candidates, got %v", got)
	}
}
