package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgnsrekt/netpanel/internal/types"
)

const noResponseBody = "No response body"

// Markdown renders one numbered report section per request.
func Markdown(reqs []types.CapturedRequest) string {
	sections := make([]string, len(reqs))
	for i, r := range reqs {
		sections[i] = markdownSection(i+1, r)
	}
	return strings.Join(sections, "\n\n")
}

func markdownSection(n int, r types.CapturedRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %d. %s %s\n\n", n, r.Method, URLPath(r.URL))
	fmt.Fprintf(&b, "**URL:** %s\n\n", r.URL)
	fmt.Fprintf(&b, "**Status:** %s\n\n", statusLine(r))
	b.WriteString("**cURL:**\n\n")
	b.WriteString(fenced("bash", Curl(r)))
	b.WriteString("\n\n**Response:**\n\n")

	body := noResponseBody
	if raw, ok := r.ResponseBody.Get(); ok {
		body, _ = prettyJSON(raw)
	}
	b.WriteString(fenced("json", body))
	return b.String()
}

func statusLine(r types.CapturedRequest) string {
	if r.StatusText == "" {
		return strconv.Itoa(r.Status)
	}
	return strconv.Itoa(r.Status) + " " + r.StatusText
}

// fenced wraps body in a code fence longer than any backtick run inside it.
func fenced(lang, body string) string {
	longest, run := 0, 0
	for _, c := range body {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", max(3, longest+1))
	return fence + lang + "\n" + body + "\n" + fence
}

// MarkdownTable renders a one-row-per-request summary table.
func MarkdownTable(reqs []types.CapturedRequest) string {
	lines := []string{
		"| Method | URL | Status | Response |",
		"|--------|-----|--------|----------|",
	}
	for _, r := range reqs {
		response := "-"
		if body, ok := r.ResponseBody.Get(); ok {
			response = tableCell(body, 100)
		}
		lines = append(lines, fmt.Sprintf("| %s | %s | %d | %s |", r.Method, truncate(r.URL, 60), r.Status, response))
	}
	return strings.Join(lines, "\n")
}

func tableCell(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return truncate(s, maxLen)
}

// truncate shortens s to maxLen runes, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
