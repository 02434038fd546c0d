package dto

// SendMessageInput posts a new chat message.
type SendMessageInput struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// MarkReadResult reports whether any rows changed; the second identical call
// returns Updated=false.
type MarkReadResult struct {
	Updated bool `json:"updated"`
	Count   int  `json:"count"`
}

// MessageQuery pages through conversation history.
type MessageQuery struct {
	Page     int
	PageSize int
}
