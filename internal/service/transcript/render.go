package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	model "github.com/zhouzirui/support-desk/backend/internal/model/transcript"
	"github.com/zhouzirui/support-desk/backend/internal/service/summary"
)

// Subject is used for every transcript notification.
const Subject = "Stream Chat: Your client started a Support Chat Session"

const startedLayout = "Mon, 02 Jan 2006 15:04:05 MST"

const htmlBody = `<p>Hello,</p>
<p>Your client, {{.FirstName}} {{.LastName}} started a chat with the support team chat widget on {{.Started}}.</p>
<p>Here is the transcript of the chat:</p>
<ul>
{{- range .Entries}}
<li>FROM: {{.Sender}}</li>
<li>MESSAGE: {{.Text}}</li>
{{- end}}
</ul>
<p>END OF TRANSCRIPT</p>
{{- if .Summary.HTML}}
<h3>Summary</h3>
{{.SummaryHTML}}
{{- end}}
{{- if .Summary.Stats.Total}}
<p>{{.Summary.Stats.Total}} messages: {{.Summary.Stats.Customer}} from the client, {{.Summary.Stats.Support}} from support.{{if .Summary.Stats.Mood}} Client mood: {{.Summary.Stats.Mood}}.{{end}}</p>
{{- end}}
<p>You can reach your client at {{.Email}}.</p>
<p>This message was sent to you from Stream Chat</p>
`

var htmlTemplate = template.Must(template.New("transcript").Parse(htmlBody))

type view struct {
	FirstName   string
	LastName    string
	Email       string
	Started     string
	Entries     []model.Entry
	Summary     summary.Summary
	SummaryHTML template.HTML
}

// entries keeps one entry per message, in the order received.
func entries(messages []model.Message) []model.Entry {
	out := make([]model.Entry, 0, len(messages))
	for _, m := range messages {
		out = append(out, model.Entry{Sender: m.User.ID, Text: m.Text})
	}
	return out
}

// formatStarted reformats an RFC 3339 timestamp; anything else is shown as sent.
func formatStarted(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(startedLayout)
		}
	}
	return raw
}

func render(req model.Request, sum summary.Summary) (html, text string, items []model.Entry, err error) {
	items = entries(req.Messages)
	v := view{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Started:   formatStarted(req.CreatedAt),
		Entries:   items,
		Summary:   sum,
		// goldmark output with raw HTML already omitted
		SummaryHTML: template.HTML(sum.HTML),
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, v); err != nil {
		return "", "", nil, fmt.Errorf("render transcript html: %w", err)
	}
	return buf.String(), renderText(v), items, nil
}

func renderText(v view) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nYour client, %s %s started a chat with the support team chat widget on %s.\n\n", v.FirstName, v.LastName, v.Started)
	b.WriteString("Here is the transcript of the chat:\n\n")
	for _, e := range v.Entries {
		fmt.Fprintf(&b, "FROM: %s\nMESSAGE: %s\n", e.Sender, e.Text)
	}
	b.WriteString("\nEND OF TRANSCRIPT\n\n")
	if v.Summary.Markdown != "" {
		b.WriteString("Summary:\n")
		b.WriteString(v.Summary.Markdown)
		b.WriteString("\n\n")
	}
	if st := v.Summary.Stats; st.Total > 0 {
		fmt.Fprintf(&b, "%d messages: %d from the client, %d from support.", st.Total, st.Customer, st.Support)
		if st.Mood != "" {
			fmt.Fprintf(&b, " Client mood: %s.", st.Mood)
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "You can reach your client at %s.\n\nThis message was sent to you from Stream Chat\n", v.Email)
	return b.String()
}
