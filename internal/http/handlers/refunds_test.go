package handlers_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/config"
	apphttp "github.com/barswebadmin/BigAppleRecSports-sub003/internal/http"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/mailer"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/messaging"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/notifier"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/orderstore"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/refund"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/workflow"
)

const (
	testSigningSecret = "test-signing-secret"
	testIntakeToken   = "form-shared-token"
)

type testApp struct {
	router  *gin.Engine
	store   *orderstore.Mock
	gateway *messaging.MockGateway
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := orderstore.NewMock()
	gateway := &messaging.MockGateway{}
	notify := notifier.New(&mailer.Mock{}, "BARS Refunds", "no-reply@example.com", "", logger)
	engine := workflow.NewEngine(store, refund.NewCalculator(refund.DefaultSchedule()), gateway, notify, "C-approvals", logger)

	hash, err := bcrypt.GenerateFromPassword([]byte(testIntakeToken), bcrypt.MinCost)
	require.NoError(t, err)

	router := apphttp.NewRouter(apphttp.RouterDeps{
		Logger: logger,
		Config: config.Config{
			Env:             "dev",
			Slack:           config.SlackConfig{SigningSecret: testSigningSecret},
			IntakeTokenHash: string(hash),
		},
		Engine: engine,
		Notify: notify,
	})

	return &testApp{router: router, store: store, gateway: gateway}
}

func (a *testApp) seedOrder() {
	start := time.Date(2099, 6, 1, 0, 0, 0, 0, time.UTC)
	a.store.Orders["1001"] = orderstore.OrderSnapshot{
		ID:            "gid/1001",
		Number:        "1001",
		CustomerEmail: "pat@example.com",
		TotalPaid:     decimal.NewFromInt(100),
		Season:        orderstore.SeasonInfo{StartDate: &start},
	}
}

const sampleIntakeBody = `{
	"order_number": "#1001",
	"requestor_name": {"first": "Pat", "last": "Tester"},
	"requestor_email": "pat@example.com",
	"refund_type": "refund",
	"notes": "schedule conflict"
}`

func (a *testApp) postIntake(body string, withToken bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/refunds/send-to-slack", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withToken {
		req.Header.Set("X-Intake-Token", testIntakeToken)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestIntakeAccepted(t *testing.T) {
	app := newTestApp(t)
	app.seedOrder()

	w := app.postIntake(sampleIntakeBody, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accepted"`)
	assert.Len(t, app.gateway.Posted, 1)
}

func TestIntakeOrderNotFound(t *testing.T) {
	app := newTestApp(t)

	w := app.postIntake(sampleIntakeBody, true)
	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	assert.Contains(t, w.Body.String(), `"order_not_found"`)
}

func TestIntakeEmailMismatch(t *testing.T) {
	app := newTestApp(t)
	app.seedOrder()

	body := strings.Replace(sampleIntakeBody, "pat@example.com", "other@example.com", 1)
	w := app.postIntake(body, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"email_mismatch"`)
}

func TestIntakeDuplicate(t *testing.T) {
	app := newTestApp(t)
	app.seedOrder()
	app.store.RefundsByID["gid/1001"] = []orderstore.ExistingRefund{
		{Status: orderstore.RefundCompleted, Amount: decimal.NewFromInt(90)},
	}

	w := app.postIntake(sampleIntakeBody, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate"`)
}

func TestIntakeRejectsMissingToken(t *testing.T) {
	app := newTestApp(t)
	app.seedOrder()

	w := app.postIntake(sampleIntakeBody, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, app.gateway.Posted)
}

func TestIntakeRejectsBadRefundType(t *testing.T) {
	app := newTestApp(t)
	app.seedOrder()

	body := strings.Replace(sampleIntakeBody, `"refund"`, `"exchange"`, 1)
	w := app.postIntake(body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, app.gateway.Posted)
}

// signedInteraction form-encodes a block_actions payload and signs it the
// way the gateway does.
func signedInteraction(payload string, secret string, at time.Time) (*http.Request, error) {
	body := url.Values{"payload": {payload}}.Encode()
	ts, sig := messaging.SignBody(secret, at, []byte(body))

	req := httptest.NewRequest(http.MethodPost, "/refunds/interactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", sig)
	return req, nil
}

func blockActionPayload(t *testing.T, actionID, value, messageTS string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"type":       "block_actions",
		"user":       map[string]string{"id": "U1"},
		"channel":    map[string]string{"id": "C-approvals"},
		"container":  map[string]string{"message_ts": messageTS},
		"trigger_id": "trig-1",
		"actions": []map[string]string{
			{"action_id": actionID, "value": value, "action_ts": "1700000001.5"},
		},
	})
	require.NoError(t, err)
	return string(raw)
}

func TestInteractionsRejectsBadSignature(t *testing.T) {
	app := newTestApp(t)

	req, err := signedInteraction(`{"type":"block_actions"}`, "wrong-secret", time.Now())
	require.NoError(t, err)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInteractionsRejectsStaleTimestamp(t *testing.T) {
	app := newTestApp(t)

	req, err := signedInteraction(`{"type":"block_actions"}`, testSigningSecret, time.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInteractionsAppliesAction(t *testing.T) {
	app := newTestApp(t)
	app.seedOrder()

	// start the flow so a real button value exists
	w := app.postIntake(sampleIntakeBody, true)
	require.Equal(t, http.StatusOK, w.Code)
	posted := app.gateway.Posted[0]

	var value string
	for _, b := range posted.Msg.Buttons {
		if b.ActionID == "proceed_without_cancel" {
			value = b.Value
		}
	}
	require.NotEmpty(t, value)

	req, err := signedInteraction(blockActionPayload(t, "proceed_without_cancel", value, posted.TS), testSigningSecret, time.Now())
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	upd, ok := app.gateway.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, posted.TS, upd.TS)
}

func TestInteractionsRejectsMalformedPayload(t *testing.T) {
	app := newTestApp(t)

	req, err := signedInteraction(`{"type":"shortcut"}`, testSigningSecret, time.Now())
	require.NoError(t, err)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
