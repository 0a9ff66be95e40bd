package messaging

import "context"

// Button is one interactive control. Value carries the serialized
// continuation the next event replays back to us.
type Button struct {
	ActionID string `json:"action_id"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Danger   bool   `json:"danger,omitempty"`
}

// Message is the rendered state of one workflow. Plain text plus buttons;
// visual styling is deliberately out of scope.
type Message struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// ModalField is one input in a modal dialog.
type ModalField struct {
	BlockID     string `json:"block_id"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Initial     string `json:"initial,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Multiline   bool   `json:"multiline,omitempty"`
}

// ModalView is a dialog opened off a button click. PrivateMetadata carries
// the continuation through the open/submit round trip.
type ModalView struct {
	CallbackID      string       `json:"callback_id"`
	Title           string       `json:"title"`
	SubmitLabel     string       `json:"submit_label"`
	PrivateMetadata string       `json:"private_metadata"`
	Fields          []ModalField `json:"fields"`
}

// Gateway is the chat control surface. Every call names the channel and
// authenticates with the token injected at construction; nothing is
// inferred from hidden defaults.
type Gateway interface {
	PostMessage(ctx context.Context, channelID string, msg Message) (string, error)
	UpdateMessage(ctx context.Context, channelID, messageTS string, msg Message) error
	OpenModal(ctx context.Context, triggerID string, view ModalView) error
}
