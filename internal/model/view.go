package model

import "time"

// Variant is the severity of a notification.
type Variant string

const (
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
)

// Notification is a transient user-facing message.
type Notification struct {
	ID        string    `json:"id"`
	Variant   Variant   `json:"variant"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ViewState is what a renderer needs to draw the catalog.
type ViewState struct {
	Query         Query          `json:"query"`
	Loading       bool           `json:"loading"`
	Placeholders  int            `json:"placeholders"`
	Products      []Product      `json:"products"`
	TotalPages    int            `json:"total_pages"`
	Categories    []string       `json:"categories"`
	Notifications []Notification `json:"notifications"`
}
