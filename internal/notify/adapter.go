// Package notify delivers advisory digests to chat platforms (Slack,
// Discord). Delivery is one-way: the client posts digests, it does not
// take commands.
package notify

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management and message
// delivery for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect() error

	// Send delivers a digest message to the platform.
	Send(msg Message) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// Message is a digest formatted for delivery.
type Message struct {
	Title    string  // headline (e.g. "Crop Sathi digest: wheat")
	Body     string  // detail text
	Severity string  // "info", "warning", "error"
	Color    string  // sidebar color hint (e.g. "#2a9d8f")
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed alongside a digest.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// severityColor maps a severity to the platform sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "warning":
		return "#e9c46a"
	case "error":
		return "#e76f51"
	default:
		return "#2a9d8f"
	}
}
