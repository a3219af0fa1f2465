package rag

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"lawchat/internal/contextutil"
	"lawchat/internal/llm"
)

const (
	// maxSelected caps how many documents the selection stage may return.
	maxSelected = 10

	// selectionTemperature keeps the down-select deterministic-ish.
	selectionTemperature = 0.1

	// Per-line truncation for the candidate summary shown to the model.
	summaryTitleRunes = 100
	summaryURLRunes   = 80
)

// digitRunPattern extracts every run of digits from the selection reply,
// regardless of how the model chose to punctuate its list.
var digitRunPattern = regexp.MustCompile(`\d+`)

// selectDocuments asks the generative model to pick the candidates most
// relevant to the query. The model's reply is untrusted control data: it is
// parsed permissively, and any failure (call error or zero valid indices)
// falls back to the heuristic boosted order. The fallback is deterministic
// and the selection call is never retried.
func (e *Engine) selectDocuments(ctx context.Context, query string, candidates []Candidate) []Candidate {
	logger := contextutil.LoggerFromContext(ctx)

	if len(candidates) == 0 {
		return nil
	}

	prompt := buildSelectionPrompt(query, candidates)
	reply, err := e.generator.Chat(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.ChatParams{Temperature: selectionTemperature})
	if err != nil {
		logger.WarnContext(ctx, "selection call failed, falling back to boosted order", "error", err)
		e.metrics.IncSelectionFallback()
		return truncateCandidates(candidates, maxSelected)
	}

	selected := parseSelection(reply, candidates)
	if len(selected) == 0 {
		logger.WarnContext(ctx, "selection reply yielded no valid indices, falling back to boosted order", "reply_length", len(reply))
		e.metrics.IncSelectionFallback()
		return truncateCandidates(candidates, maxSelected)
	}

	logger.InfoContext(ctx, "documents selected", "candidates", len(candidates), "selected", len(selected))
	return selected
}

// buildSelectionPrompt formats a numbered one-line summary per candidate and
// asks for a bare list of item numbers.
func buildSelectionPrompt(query string, candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("Câu hỏi: ")
	b.WriteString(query)
	b.WriteString("\n\nDanh sách tài liệu luật giao thông:\n")

	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [Năm %d] %s (%s)\n",
			i+1,
			c.Year,
			truncateRunes(c.Title, summaryTitleRunes),
			truncateRunes(c.URL, summaryURLRunes),
		)
	}

	fmt.Fprintf(&b,
		"\nChọn tối đa %d tài liệu liên quan nhất đến câu hỏi. "+
			"Chỉ trả về các số thứ tự, cách nhau bằng dấu phẩy. "+
			"Không giải thích.",
		maxSelected,
	)
	return b.String()
}

// parseSelection maps 1-based indices found in the reply back into the
// candidate list. Out-of-range indices and repeats are silently discarded;
// at most maxSelected candidates are returned, in the order the model
// listed them.
func parseSelection(reply string, candidates []Candidate) []Candidate {
	selected := make([]Candidate, 0, maxSelected)
	used := make(map[int]struct{}, maxSelected)

	for _, run := range digitRunPattern.FindAllString(reply, -1) {
		n, err := strconv.Atoi(run)
		if err != nil || n < 1 || n > len(candidates) {
			continue
		}
		if _, ok := used[n]; ok {
			continue
		}
		used[n] = struct{}{}
		selected = append(selected, candidates[n-1])
		if len(selected) >= maxSelected {
			break
		}
	}
	return selected
}

func truncateCandidates(candidates []Candidate, limit int) []Candidate {
	if len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
