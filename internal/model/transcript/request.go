package transcript

// Sender identifies who wrote a message.
type Sender struct {
	ID string `json:"id" validate:"required"`
}

// Message is one entry of the channel history as seen by the client. Any
// additional fields the messaging backend attaches are ignored on decode.
type Message struct {
	User Sender `json:"user"`
	Text string `json:"text"`
}

// Request is captured once, at session end, from the client's local view of
// the channel.
type Request struct {
	Messages  []Message `json:"messages" validate:"dive"`
	FirstName string    `json:"firstName" validate:"required"`
	LastName  string    `json:"lastName" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	CreatedAt string    `json:"createdAt" validate:"required"`
}
