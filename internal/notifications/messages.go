package notifications

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// message is one ntfy post: the body plus Title, Tags, and Priority headers.
type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

// template renders an event payload into a message.
type template struct {
	label    string
	tags     []string
	priority string
	body     func(p Payload) string
}

var templates = map[Event]template{
	EventRenderCompleted: {
		label: "render complete",
		tags:  []string{"render", "completed"},
		body: func(p Payload) string {
			body := "🎬 Video ready for " + p.field("username")
			if url := p.field("url"); url != "" {
				body += "\n" + url
			}
			return body
		},
	},
	EventRenderFailed: {
		label:    "render failed",
		tags:     []string{"render", "error"},
		priority: "high",
		body: func(p Payload) string {
			reason := p.field("error")
			if reason == "" {
				reason = "unknown error"
			}
			return fmt.Sprintf("❌ Render failed for %s: %s", p.field("username"), reason)
		},
	},
	EventTest: {
		label:    "test",
		tags:     []string{"test"},
		priority: "low",
		body:     func(Payload) string { return "🧪 Notification system test" },
	},
}

var titleCaser = cases.Title(language.English)

func compose(event Event, p Payload) (message, bool) {
	tpl, ok := templates[event]
	if !ok {
		return message{}, false
	}
	return message{
		title:    "Unwrapped - " + titleCaser.String(tpl.label),
		body:     tpl.body(p),
		tags:     append([]string{"unwrapped"}, tpl.tags...),
		priority: tpl.priority,
	}, true
}

func (p Payload) field(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
