// Package domain contains core concepts of the chat client.
// This file defines User entities and the requests of the auth flow.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// User is the profile returned by the remote service.
// The client treats it as an opaque payload keyed by ID.
type User struct {
	ID         string    `json:"_id"`
	FullName   string    `json:"fullName,omitempty"`
	Email      string    `json:"email,omitempty"`
	ProfilePic string    `json:"profilePic,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SignUpRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate carries the new avatar as a data URL.
type ProfileUpdate struct {
	ProfilePic string `json:"profilePic" validate:"required"`
}
