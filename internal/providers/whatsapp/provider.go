// Package whatsapp sends outbound WhatsApp messages through the Cloud API.
package whatsapp

import "context"

type Provider interface {
	// SendText delivers a plain text message to the given phone number in
	// E.164 format.
	SendText(ctx context.Context, to, body string) error
}

// NoOpProvider satisfies Provider without sending anything. Used when
// WhatsApp delivery is disabled.
type NoOpProvider struct{}

func (NoOpProvider) SendText(ctx context.Context, to, body string) error { return nil }
