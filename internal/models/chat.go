package models

import "time"

// Conversation is a thread between one investor and (optionally) one admin.
// A conversation with a nil AdminID is open and may be claimed by any admin.
type Conversation struct {
	ID            string     `db:"id" json:"id"`
	InvestorID    string     `db:"investor_id" json:"investor_id"`
	AdminID       *string    `db:"admin_id" json:"admin_id,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Message is one chat message inside a conversation.
type Message struct {
	ID             string     `db:"id" json:"id"`
	ConversationID string     `db:"conversation_id" json:"conversation_id"`
	SenderID       string     `db:"sender_id" json:"sender_id"`
	Body           string     `db:"body" json:"body"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// ConversationSummary pairs a conversation with its unread count for a viewer.
type ConversationSummary struct {
	Conversation
	UnreadCount int `db:"unread_count" json:"unread_count"`
}
