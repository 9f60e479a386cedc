// Package gateway delivers task notifications to chat platforms.
package gateway

// Messenger defines the interface for communication gateways (Telegram, Discord, etc.)
type Messenger interface {
	// Name identifies the platform in logs.
	Name() string
	// Send sends a message to a specific chat or channel
	Send(chatID string, text string) error
	// Stop releases the gateway's connections
	Stop() error
}
