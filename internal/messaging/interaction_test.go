package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlockAction(t *testing.T) {
	payload := []byte(`{
		"type": "block_actions",
		"user": {"id": "U123"},
		"channel": {"id": "C456"},
		"container": {"message_ts": "1700000000.000100"},
		"trigger_id": "trig-1",
		"actions": [
			{"action_id": "process_refund", "value": "{\"v\":1}", "action_ts": "1700000001.5"}
		]
	}`)

	ev, err := ParseInteraction(payload)
	require.NoError(t, err)
	assert.Equal(t, "block_actions", ev.Kind)
	assert.Equal(t, "process_refund", ev.ActionID)
	assert.Equal(t, `{"v":1}`, ev.Value)
	assert.Equal(t, "C456", ev.ChannelID)
	assert.Equal(t, "1700000000.000100", ev.MessageTS)
	assert.Equal(t, "trig-1", ev.TriggerID)
	assert.Equal(t, "U123", ev.UserID)
	assert.Equal(t, "action:C456:1700000000.000100:process_refund:1700000001.5", ev.EventKey())
}

func TestParseViewSubmission(t *testing.T) {
	payload := []byte(`{
		"type": "view_submission",
		"user": {"id": "U123"},
		"trigger_id": "trig-2",
		"view": {
			"callback_id": "modal_custom_amount",
			"private_metadata": "{\"v\":1}",
			"state": {
				"values": {
					"custom_amount": {"input": {"value": "25.00"}}
				}
			}
		}
	}`)

	ev, err := ParseInteraction(payload)
	require.NoError(t, err)
	assert.Equal(t, "view_submission", ev.Kind)
	assert.Equal(t, "modal_custom_amount", ev.ActionID)
	assert.Equal(t, `{"v":1}`, ev.Value)
	assert.Equal(t, "25.00", ev.FormValues["custom_amount"])
	assert.Equal(t, "view:modal_custom_amount:trig-2", ev.EventKey())
}

func TestParseInteractionRejects(t *testing.T) {
	_, err := ParseInteraction([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedInteraction)

	_, err = ParseInteraction([]byte(`{"type":"block_actions","actions":[]}`))
	assert.ErrorIs(t, err, ErrMalformedInteraction)

	_, err = ParseInteraction([]byte(`{"type":"shortcut"}`))
	assert.ErrorIs(t, err, ErrMalformedInteraction)
}
