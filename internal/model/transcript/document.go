package transcript

// Entry is the rendered form of a single message.
type Entry struct {
	Sender string
	Text   string
}

// Document is the notification built from a Request. It only lives for the
// duration of an export call.
type Document struct {
	To      string
	From    string
	Subject string
	HTML    string
	Text    string
	Entries []Entry
}
