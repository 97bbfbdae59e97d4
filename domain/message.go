// Package domain contains core concepts of the chat client.
// This file defines Message payloads exchanged with the remote service.
// Messages are opaque: the client never re-orders or rewrites them.
package domain

import "time"

// Message is a chat message as returned by the remote service,
// either from history, from a send, or pushed on the live channel.
type Message struct {
	ID          string    `json:"_id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Text        string    `json:"text,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MessagePayload is the body posted to the send endpoint.
// Image, when set, is a data URL.
type MessagePayload struct {
	Text  string `json:"text,omitempty" validate:"required_without=Image"`
	Image string `json:"image,omitempty" validate:"required_without=Text"`
}

func (p MessagePayload) IsEmpty() bool {
	return p.Text == "" && p.Image == ""
}
