package transport

import "context"

// OverrideTarget identifies who a channel permission override applies to.
type OverrideTarget string

const (
	TargetEveryone OverrideTarget = "everyone"
	TargetUser     OverrideTarget = "user"
	TargetRole     OverrideTarget = "role"
)

// PermissionOverride controls visibility of a channel for one target.
type PermissionOverride struct {
	Target OverrideTarget
	ID     string
	View   bool
}

// ButtonStyle hints how a selection control should be rendered.
type ButtonStyle string

const (
	StyleSuccess ButtonStyle = "success"
	StylePrimary ButtonStyle = "primary"
	StyleDanger  ButtonStyle = "danger"
)

// Button is a durable selection control. CustomID is the restart-safe
// identifier the gateway echoes back in selection events.
type Button struct {
	Label    string
	CustomID string
	Style    ButtonStyle
}

// Message is the information content of an outbound post. Exact visual
// rendering is the gateway's concern.
type Message struct {
	Content  string
	Title    string
	Body     string
	Footer   string
	Mentions []string
	Buttons  []Button
}

// Gateway abstracts the chat platform: channel lifecycle, message delivery,
// and role grants. Implementations are expected to be safe for concurrent
// use.
type Gateway interface {
	CreateChannel(ctx context.Context, location, name, topic string, overrides []PermissionOverride) (string, error)
	SendMessage(ctx context.Context, channelID string, msg Message) error
	GrantRole(ctx context.Context, userID, roleID string) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
}
