package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// contextHeader opens the assembled document context.
const contextHeader = "Tài liệu tham khảo từ cơ sở dữ liệu luật giao thông:\n"

// assembleContext packs the selected documents into a character-bounded
// prompt context. Documents are appended in order; a block that would push
// the total past the budget is dropped whole and assembly stops there.
//
// Returns the blob and the prefix of documents actually included, so later
// stages only cite documents the model can see.
func assembleContext(selected []Candidate, budget, perDocLimit int) (string, []Candidate) {
	if len(selected) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	total := len(contextHeader)

	included := make([]Candidate, 0, len(selected))
	for i, c := range selected {
		content := c.Content
		if utf8.RuneCountInString(content) > perDocLimit {
			// Rune-safe cut: Vietnamese text must not be split mid-rune.
			content = truncateRunes(content, perDocLimit) + "..."
		}

		block := fmt.Sprintf("\n[Tài liệu %d - NĂM %d] %s\nNguồn: %s\nNội dung: %s\n",
			i+1, c.Year, c.Title, c.URL, content)

		if total+len(block) > budget {
			break
		}

		b.WriteString(block)
		total += len(block)
		included = append(included, c)
	}

	if len(included) == 0 {
		// Not even the first block fit; no usable context.
		return "", nil
	}
	return b.String(), included
}
