package ops

import (
	"bytes"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/feedq/internal/activity"
)

// RenderMessage sets message_html to the goldmark rendering of the
// activity's message field. Activities without a string message are
// returned unchanged.
func RenderMessage(a *activity.Activity) *activity.Activity {
	msg, ok := a.Get("message")
	if !ok {
		return a
	}
	md, ok := msg.(string)
	if !ok {
		return a
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return a
	}

	out := a.Clone()
	out.Set("message_html", buf.String())
	return out
}
