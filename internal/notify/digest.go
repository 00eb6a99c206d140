package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/tnagatomi/octonotify/internal/constants"
	"github.com/tnagatomi/octonotify/internal/model"
)

// Digest renders events as Telegram-HTML message chunks, grouped by
// repository in batch order, each chunk kept under the message length cap.
func Digest(events []model.Event) []string {
	if len(events) == 0 {
		return nil
	}

	var chunks []string
	var b strings.Builder
	lastRepo := ""

	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(b.String(), "\n"))
			b.Reset()
			lastRepo = ""
		}
	}

	for _, ev := range events {
		line := eventLine(ev)
		header := ""
		if ev.Repo != lastRepo {
			header = fmt.Sprintf("<b>%s</b>\n", esc(ev.Repo))
		}
		if b.Len() > 0 && b.Len()+len(header)+len(line)+1 > constants.DigestChunkLen {
			flush()
			header = fmt.Sprintf("<b>%s</b>\n", esc(ev.Repo))
		}
		b.WriteString(header)
		b.WriteString(line)
		b.WriteString("\n")
		lastRepo = ev.Repo
	}
	flush()

	return chunks
}

// eventLine renders a single event as one HTML line.
func eventLine(ev model.Event) string {
	var sb strings.Builder
	sb.WriteString(kindIcon(ev.Kind))
	sb.WriteString(" ")
	sb.WriteString(link(ev.Title, ev.URL))

	if tag := ev.Extras["tag"]; tag != "" {
		sb.WriteString(" <code>")
		sb.WriteString(esc(tag))
		sb.WriteString("</code>")
	}

	author := ev.Author
	if mergedBy := ev.Extras["merged_by"]; mergedBy != "" {
		author = mergedBy
	}
	if author != "" {
		sb.WriteString(" <i>by ")
		sb.WriteString(esc(author))
		sb.WriteString("</i>")
	}
	return sb.String()
}

// kindIcon returns the emoji used to mark an event kind in the digest.
func kindIcon(kind model.EventKind) string {
	switch kind {
	case model.KindRelease:
		return "\U0001F680" // rocket
	case model.KindPullRequest:
		return "\U0001F500" // twisted arrows
	default:
		return "\U0001F4DD" // memo
	}
}

// esc escapes text for Telegram HTML parse mode.
func esc(s string) string {
	return html.EscapeString(s)
}

// link builds an HTML link; html.EscapeString also escapes quotes, so the
// URL is safe as an attribute value.
func link(text, url string) string {
	if url == "" {
		return esc(text)
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, esc(url), esc(text))
}
