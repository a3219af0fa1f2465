package rag

import (
	"strings"
	"unicode/utf8"

	"lawchat/internal/llm"
)

// followUpMaxRunes is the length below which a message is considered a
// possible vague follow-up. Full questions about a statute are almost always
// longer than this.
const followUpMaxRunes = 60

// followUpMarkers are phrases that signal the user is asking about the
// previous answer rather than posing a new question. Matching is
// case-folded substring containment.
var followUpMarkers = []string{
	"nói rõ hơn",
	"nói lại",
	"nhắc lại",
	"lặp lại",
	"giải thích",
	"chi tiết hơn",
	"cụ thể hơn",
	"là sao",
	"nghĩa là gì",
	"ý là gì",
	"sao nữa",
	"còn gì nữa",
}

// rewriteQuery returns the effective search query for a message.
//
// A short message that reads like a vague follow-up ("giải thích rõ hơn đi")
// embeds none of the terms needed for retrieval, so the most recent prior
// user question is searched instead. The rewritten query feeds retrieval
// only; the generator still sees the literal message.
func rewriteQuery(message string, history []llm.Message) string {
	if utf8.RuneCountInString(message) >= followUpMaxRunes {
		return message
	}
	if len(history) == 0 {
		return message
	}

	folded := strings.ToLower(message)
	matched := false
	for _, marker := range followUpMarkers {
		if strings.Contains(folded, marker) {
			matched = true
			break
		}
	}
	if !matched {
		return message
	}

	// Most recent prior user message wins.
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" && history[i].Content != "" {
			return history[i].Content
		}
	}
	return message
}
