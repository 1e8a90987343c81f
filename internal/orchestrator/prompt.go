package orchestrator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"examqa/internal/domain"
)

// maxContextChars bounds the formatted context block so retrieved questions
// cannot crowd the model's window.
const maxContextChars = 2000

// maxSnippetChars truncates a single retrieved question inside the block.
const maxSnippetChars = 500

// instructions maps every answer mode to its template. The set is closed;
// ParseMode rejects anything else before this map is consulted.
var instructions = map[domain.Mode]string{
	domain.ModeExam: "You are an academic tutor preparing students for university exams. " +
		"Answer in exam style: define terms precisely, structure the answer in numbered points, " +
		"and keep it close to what a marking scheme would reward.",
	domain.ModeLocal: "Answer strictly from the course material given in the context below. " +
		"If the context does not cover the question, say that the course material does not cover it " +
		"instead of guessing.",
	domain.ModeGlobal: "Answer from general knowledge. Give a broad, well-structured explanation; " +
		"do not assume any particular course or syllabus.",
	domain.ModeMixed: "Combine the course material in the context below with general knowledge. " +
		"Prefer the context where it is relevant and fill the gaps from general knowledge, " +
		"making clear which is which.",
}

// composePrompt interleaves the numbered context snippets between the mode
// instruction and the question. With no context the bare-query template is
// used.
func composePrompt(mode domain.Mode, query string, results []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString(instructions[mode])
	b.WriteString("\n\n")

	if block := formatContext(results); block != "" {
		b.WriteString(block)
		b.WriteString("\n\n")
	}

	b.WriteString("QUESTION:\n")
	b.WriteString(query)
	b.WriteString("\n\nANSWER:")
	return b.String()
}

// formatContext renders retrieved questions as numbered snippets with their
// provenance, bounded by maxContextChars with an elision note.
func formatContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("RELEVANT PAST PAPER QUESTIONS:\n")
	b.WriteString(strings.Repeat("-", 50))

	total := b.Len()
	for i, r := range results {
		year := "unknown"
		if r.Entry.Year != 0 {
			year = fmt.Sprintf("%d", r.Entry.Year)
		}
		text := truncateRunes(r.Entry.Text, maxSnippetChars)
		entry := fmt.Sprintf("\n[Q%d] Unit: %s, Year: %s (relevance %.2f)\n%s", i+1, r.Entry.Unit, year, r.Score, text)
		if total+len(entry) > maxContextChars {
			b.WriteString(fmt.Sprintf("\n... and %d more questions", len(results)-i))
			break
		}
		b.WriteString(entry)
		total += len(entry)
	}
	return b.String()
}

// truncateRunes cuts s to at most n bytes without splitting a multi-byte
// rune, so the prompt stays valid UTF-8.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
