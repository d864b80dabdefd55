package diary

import (
	"strings"
	"unicode/utf8"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
)

type DigestOptions struct {
	// MinMessageLength drops messages whose text is not longer than this many characters.
	MinMessageLength int
	// MaxMessageChars truncates each kept message, appending "...".
	MaxMessageChars int
}

// Digest renders one day's conversations as compact text. Only user and assistant messages
// longer than MinMessageLength are kept; conversations left with no messages are omitted.
// The result is empty when nothing survives the filter.
func Digest(convs []Conversation, opts DigestOptions) string {
	if opts.MaxMessageChars <= 0 {
		opts.MaxMessageChars = 500
	}

	var parts []string
	for _, conv := range convs {
		var b strings.Builder
		for _, m := range conv.Messages {
			if m.Author != "user" && m.Author != "assistant" {
				continue
			}
			if utf8.RuneCountInString(m.Text) <= opts.MinMessageLength {
				continue
			}
			if b.Len() == 0 {
				title := strings.TrimSpace(conv.Title)
				if title == "" {
					title = "Untitled"
				}
				b.WriteString("Topic: " + title + "\n")
			}
			speaker := "AI assistant"
			if m.Author == "user" {
				speaker = "Me"
			}
			text := m.Text
			if utf8.RuneCountInString(text) > opts.MaxMessageChars {
				text = fileutils.PrefixRunes(text, opts.MaxMessageChars) + "..."
			}
			b.WriteString(speaker + ": " + text + "\n")
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	return strings.Join(parts, "\n---\n")
}
