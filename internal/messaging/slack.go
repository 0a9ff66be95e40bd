package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/config"
)

// SlackGateway implements Gateway over the Slack Web API. Token and base
// URL are fixed at construction; channel is an argument on every call so a
// token can never silently pair with the wrong channel.
type SlackGateway struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewSlackGateway(cfg config.SlackConfig) *SlackGateway {
	return &SlackGateway{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		token:   cfg.BotToken,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type slackAPIResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

func (g *SlackGateway) PostMessage(ctx context.Context, channelID string, msg Message) (string, error) {
	payload := map[string]any{
		"channel": channelID,
		"text":    msg.Text,
		"blocks":  blocksFor(msg),
	}
	resp, err := g.call(ctx, "chat.postMessage", payload)
	if err != nil {
		return "", err
	}
	return resp.TS, nil
}

func (g *SlackGateway) UpdateMessage(ctx context.Context, channelID, messageTS string, msg Message) error {
	payload := map[string]any{
		"channel": channelID,
		"ts":      messageTS,
		"text":    msg.Text,
		"blocks":  blocksFor(msg),
	}
	_, err := g.call(ctx, "chat.update", payload)
	return err
}

func (g *SlackGateway) OpenModal(ctx context.Context, triggerID string, view ModalView) error {
	_, err := g.call(ctx, "views.open", map[string]any{
		"trigger_id": triggerID,
		"view":       viewFor(view),
	})
	return err
}

func (g *SlackGateway) call(ctx context.Context, method string, payload map[string]any) (slackAPIResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return slackAPIResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/"+method, bytes.NewReader(raw))
	if err != nil {
		return slackAPIResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := g.http.Do(req)
	if err != nil {
		return slackAPIResponse{}, fmt.Errorf("slack %s: %w", method, err)
	}
	defer resp.Body.Close()

	var out slackAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return slackAPIResponse{}, fmt.Errorf("slack %s: decode: %w", method, err)
	}
	if !out.OK {
		return slackAPIResponse{}, fmt.Errorf("slack %s: %s", method, out.Error)
	}
	return out, nil
}

// blocksFor renders the neutral Message into Slack block kit. One section
// with the text, one actions block when buttons exist.
func blocksFor(msg Message) []map[string]any {
	blocks := []map[string]any{
		{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": msg.Text},
		},
	}

	if len(msg.Buttons) == 0 {
		return blocks
	}

	elements := make([]map[string]any, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		el := map[string]any{
			"type":      "button",
			"action_id": b.ActionID,
			"text":      map[string]any{"type": "plain_text", "text": b.Label},
			"value":     b.Value,
		}
		if b.Danger {
			el["style"] = "danger"
		}
		elements = append(elements, el)
	}
	blocks = append(blocks, map[string]any{"type": "actions", "elements": elements})
	return blocks
}

func viewFor(v ModalView) map[string]any {
	blocks := make([]map[string]any, 0, len(v.Fields))
	for _, f := range v.Fields {
		element := map[string]any{
			"type":      "plain_text_input",
			"action_id": f.BlockID + "_input",
			"multiline": f.Multiline,
		}
		if f.Placeholder != "" {
			element["placeholder"] = map[string]any{"type": "plain_text", "text": f.Placeholder}
		}
		if f.Initial != "" {
			element["initial_value"] = f.Initial
		}
		blocks = append(blocks, map[string]any{
			"type":     "input",
			"block_id": f.BlockID,
			"optional": f.Optional,
			"label":    map[string]any{"type": "plain_text", "text": f.Label},
			"element":  element,
		})
	}

	return map[string]any{
		"type":             "modal",
		"callback_id":      v.CallbackID,
		"private_metadata": v.PrivateMetadata,
		"title":            map[string]any{"type": "plain_text", "text": v.Title},
		"submit":           map[string]any{"type": "plain_text", "text": v.SubmitLabel},
		"close":            map[string]any{"type": "plain_text", "text": "Close"},
		"blocks":           blocks,
	}
}
