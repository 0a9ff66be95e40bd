package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/messaging"
)

// Sends a signed interaction payload (or an intake submission) against a
// locally running server, for poking at the workflow without Slack.

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Server base URL")
	secret := flag.String("secret", os.Getenv("SLACK_SIGNING_SECRET"), "Signing secret")
	mode := flag.String("mode", "interaction", "What to send: interaction | intake")

	actionID := flag.String("action", "proceed_without_cancel", "Action id for the button click")
	value := flag.String("value", "", "Continuation JSON carried by the button")
	channelID := flag.String("channel", "C0REFUNDS", "Channel id")
	messageTS := flag.String("ts", "1700000000.000100", "Message ts")

	orderNumber := flag.String("order", "12345", "Order number (intake mode)")
	email := flag.String("email", "player@example.com", "Requestor email (intake mode)")
	refundType := flag.String("type", "refund", "refund | credit (intake mode)")
	intakeToken := flag.String("token", os.Getenv("INTAKE_TOKEN"), "Intake token (intake mode)")

	stale := flag.Bool("stale", false, "Sign with a timestamp outside the replay window")
	dryRun := flag.Bool("dry-run", false, "Only print the request, don't send")

	flag.Parse()

	switch *mode {
	case "interaction":
		if *secret == "" {
			fmt.Fprintln(os.Stderr, "Error: secret not provided and SLACK_SIGNING_SECRET not set")
			os.Exit(1)
		}
		sendInteraction(*baseURL, *secret, *actionID, *value, *channelID, *messageTS, *stale, *dryRun)
	case "intake":
		sendIntake(*baseURL, *orderNumber, *email, *refundType, *intakeToken, *dryRun)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", *mode)
		os.Exit(1)
	}
}

func sendInteraction(baseURL, secret, actionID, value, channelID, messageTS string, stale, dryRun bool) {
	payload := map[string]any{
		"type":       "block_actions",
		"user":       map[string]any{"id": "U0OPERATOR"},
		"channel":    map[string]any{"id": channelID},
		"container":  map[string]any{"message_ts": messageTS},
		"trigger_id": "trig_mock",
		"actions": []map[string]any{
			{
				"action_id": actionID,
				"value":     value,
				"action_ts": fmt.Sprintf("%d.000001", time.Now().Unix()),
			},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	body := []byte(url.Values{"payload": {string(raw)}}.Encode())

	signedAt := time.Now()
	if stale {
		signedAt = signedAt.Add(-10 * time.Minute)
	}
	ts, sig := messaging.SignBody(secret, signedAt, body)

	fmt.Printf("X-Slack-Request-Timestamp: %s\n", ts)
	fmt.Printf("X-Slack-Signature: %s\n", sig)
	fmt.Printf("Body: %s\n", string(body))

	if dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/refunds/interactions", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", sig)

	send(req)
}

func sendIntake(baseURL, orderNumber, email, refundType, token string, dryRun bool) {
	payload := map[string]any{
		"order_number":    orderNumber,
		"requestor_name":  map[string]any{"first": "Pat", "last": "Tester"},
		"requestor_email": email,
		"refund_type":     refundType,
		"notes":           "sent by mockwebhook",
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Body: %s\n", string(raw))
	if dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/refunds/send-to-slack", bytes.NewReader(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Intake-Token", token)
	}

	send(req)
}

func send(req *http.Request) {
	fmt.Printf("\nSending to %s...\n", req.URL)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}
