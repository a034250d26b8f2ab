// Package mrkdwn renders Slack's mrkdwn dialect to HTML.
//
// Slack already entity-escapes &, < and > in user-entered text, so a
// literal '<' in a message payload always opens a Slack token (link,
// mention or channel reference). The renderer therefore rewrites tokens
// directly instead of escaping the input again.
package mrkdwn

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedRe  = regexp.MustCompile("(?s)```\\n?(.*?)```")
	codeRe    = regexp.MustCompile("`([^`\n]+)`")
	boldRe    = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicRe  = regexp.MustCompile(`_([^_\n]+)_`)
	strikeRe  = regexp.MustCompile(`~([^~\n]+)~`)
	labelRe   = regexp.MustCompile(`<(https?://[^>|]+)\|([^>]+)>`)
	bareRe    = regexp.MustCompile(`<(https?://[^>|]+)>`)
	mentionRe = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|([^>]*))?>`)
	channelRe = regexp.MustCompile(`<#([A-Z0-9]+)\|([^>]*)>`)
)

// ToHTML converts a mrkdwn message body to HTML.
func ToHTML(text string) string {
	var blocks []string

	// Pull code spans out first so styling markers inside them survive.
	text = fencedRe.ReplaceAllStringFunc(text, func(m string) string {
		body := strings.TrimSuffix(fencedRe.FindStringSubmatch(m)[1], "\n")
		blocks = append(blocks, "<pre><code>"+body+"</code></pre>")
		return placeholder(len(blocks) - 1)
	})
	text = codeRe.ReplaceAllStringFunc(text, func(m string) string {
		blocks = append(blocks, "<code>"+codeRe.FindStringSubmatch(m)[1]+"</code>")
		return placeholder(len(blocks) - 1)
	})

	text = labelRe.ReplaceAllString(text, `<a href="$1">$2</a>`)
	text = bareRe.ReplaceAllString(text, `<a href="$1">$1</a>`)
	text = channelRe.ReplaceAllString(text, `<span class="channel">#$2</span>`)
	text = mentionRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := mentionRe.FindStringSubmatch(m)
		name := sub[2]
		if name == "" {
			name = sub[1]
		}
		return `<span class="mention">@` + name + `</span>`
	})

	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = strikeRe.ReplaceAllString(text, "<del>$1</del>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")

	text = strings.ReplaceAll(text, "\n", "<br>")

	for i, block := range blocks {
		text = strings.Replace(text, placeholder(i), block, 1)
	}
	return text
}

func placeholder(i int) string {
	return fmt.Sprintf("\x00mrkdwn:%d\x00", i)
}
