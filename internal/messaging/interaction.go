package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedInteraction = errors.New("malformed interaction payload")

// InteractionEvent is one inbound click or modal submit, flattened from the
// gateway's envelope into the fields the workflow consumes.
type InteractionEvent struct {
	Kind       string // "block_actions" | "view_submission"
	ActionID   string // button action id, or modal callback id
	Value      string // continuation payload carried by the control
	ChannelID  string
	MessageTS  string
	TriggerID  string
	UserID     string
	ActionTS   string            // wall-clock of the click, per the gateway
	FormValues map[string]string // modal inputs keyed by block id
}

// EventKey identifies one delivery for dedupe purposes. Block actions have
// no globally unique event id, so the key is built from the click itself.
func (e InteractionEvent) EventKey() string {
	if e.Kind == "view_submission" {
		return fmt.Sprintf("view:%s:%s", e.ActionID, e.ActionTS)
	}
	return fmt.Sprintf("action:%s:%s:%s:%s", e.ChannelID, e.MessageTS, e.ActionID, e.ActionTS)
}

// slack wire shapes, trimmed to what we read
type slackInteraction struct {
	Type    string `json:"type"`
	User    struct{ ID string } `json:"user"`
	Channel struct{ ID string } `json:"channel"`
	Container struct {
		MessageTS string `json:"message_ts"`
	} `json:"container"`
	TriggerID string `json:"trigger_id"`
	Actions   []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
		ActionTS string `json:"action_ts"`
	} `json:"actions"`
	View struct {
		CallbackID      string `json:"callback_id"`
		PrivateMetadata string `json:"private_metadata"`
		State           struct {
			Values map[string]map[string]struct {
				Value string `json:"value"`
			} `json:"values"`
		} `json:"state"`
	} `json:"view"`
}

// ParseInteraction decodes the JSON payload of a block action or a modal
// submission into the flattened event.
func ParseInteraction(payload []byte) (InteractionEvent, error) {
	var in slackInteraction
	if err := json.Unmarshal(payload, &in); err != nil {
		return InteractionEvent{}, fmt.Errorf("%w: %v", ErrMalformedInteraction, err)
	}

	switch in.Type {
	case "block_actions":
		if len(in.Actions) == 0 {
			return InteractionEvent{}, fmt.Errorf("%w: no actions", ErrMalformedInteraction)
		}
		a := in.Actions[0]
		return InteractionEvent{
			Kind:      "block_actions",
			ActionID:  a.ActionID,
			Value:     a.Value,
			ChannelID: in.Channel.ID,
			MessageTS: in.Container.MessageTS,
			TriggerID: in.TriggerID,
			UserID:    in.User.ID,
			ActionTS:  a.ActionTS,
		}, nil

	case "view_submission":
		values := map[string]string{}
		for blockID, actions := range in.View.State.Values {
			for _, v := range actions {
				values[blockID] = v.Value
			}
		}
		return InteractionEvent{
			Kind:       "view_submission",
			ActionID:   in.View.CallbackID,
			Value:      in.View.PrivateMetadata,
			UserID:     in.User.ID,
			ActionTS:   in.TriggerID, // trigger id is unique per submit
			FormValues: values,
		}, nil

	default:
		return InteractionEvent{}, fmt.Errorf("%w: unsupported type %q", ErrMalformedInteraction, in.Type)
	}
}
