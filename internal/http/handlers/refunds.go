package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/audit"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/http/middleware"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/http/validation"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/intake"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/messaging"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/notifier"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/shared/apperr"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/storage"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/workflow"
)

type RefundsHandler struct {
	Logger        *slog.Logger
	Engine        *workflow.Engine
	Audit         *audit.Store
	Archive       storage.Storage
	Notify        *notifier.Notifier
	SigningSecret string
}

func NewRefundsHandler(
	logger *slog.Logger,
	engine *workflow.Engine,
	auditStore *audit.Store,
	archive storage.Storage,
	notify *notifier.Notifier,
	signingSecret string,
) *RefundsHandler {
	return &RefundsHandler{
		Logger:        logger,
		Engine:        engine,
		Audit:         auditStore,
		Archive:       archive,
		Notify:        notify,
		SigningSecret: signingSecret,
	}
}

type intakeRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
	RequestorName struct {
		First string `json:"first" binding:"required"`
		Last  string `json:"last" binding:"required"`
	} `json:"requestor_name"`
	RequestorEmail string `json:"requestor_email" binding:"required,email"`
	RefundType     string `json:"refund_type" binding:"required,oneof=refund credit"`
	Notes          string `json:"notes"`
	SheetLink      string `json:"sheet_link"`
}

// POST /refunds/send-to-slack
// 200 accepted, 406 order not found, 409 email mismatch or duplicate.
func (h *RefundsHandler) Intake(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Could not read request body.", nil))
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var in intakeRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request failed validation.", validation.FromBindError(err, &in)))
		return
	}

	req := intake.RefundRequest{
		OrderNumber: in.OrderNumber,
		FirstName:   in.RequestorName.First,
		LastName:    in.RequestorName.Last,
		Email:       in.RequestorEmail,
		RefundType:  intake.RefundType(in.RefundType),
		Notes:       in.Notes,
		SheetLink:   in.SheetLink,
		SubmittedAt: time.Now(),
	}

	h.archiveSubmission(c, raw)

	res, err := h.Engine.StartRequest(c.Request.Context(), req)
	if err != nil {
		h.Notify.OperatorAlert(c.Request.Context(), "refund intake failed unexpectedly", err)
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	h.Audit.RecordRequest(c.Request.Context(),
		intake.NormalizeOrderNumber(in.OrderNumber), req.Email, in.RefundType,
		string(res.Status), res.MessageTS, raw)

	switch res.Status {
	case workflow.StartOrderNotFound:
		c.JSON(http.StatusNotAcceptable, gin.H{"status": res.Status, "message_ts": res.MessageTS})
	case workflow.StartEmailMismatch, workflow.StartDuplicate:
		c.JSON(http.StatusConflict, gin.H{"status": res.Status, "message_ts": res.MessageTS})
	default:
		c.JSON(http.StatusOK, gin.H{"status": res.Status, "message_ts": res.MessageTS})
	}
}

// POST /refunds/interactions
// 401 on signature failure; domain errors are rendered into the message,
// never the HTTP response.
func (h *RefundsHandler) Interactions(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Could not read request body.", nil))
		return
	}

	ts := c.GetHeader("X-Slack-Request-Timestamp")
	sig := c.GetHeader("X-Slack-Signature")
	if err := messaging.VerifySignature(h.SigningSecret, ts, sig, body, time.Now()); err != nil {
		middleware.Fail(c, apperr.UnauthorizedErr("Request signature could not be verified."))
		return
	}

	// interactions arrive form-encoded with the event JSON in `payload`
	form, err := url.ParseQuery(string(body))
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Malformed interaction body.", nil))
		return
	}
	payload := form.Get("payload")

	ev, err := messaging.ParseInteraction([]byte(payload))
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Malformed interaction payload.", nil))
		return
	}

	// double delivery of the same click short-circuits before dispatch
	if h.Audit.RecordEvent(c.Request.Context(), "slack", ev.EventKey(), ev.Kind, []byte(payload)) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "deduplicated": true})
		return
	}

	if err := h.Engine.ApplyAction(c.Request.Context(), ev); err != nil {
		// infrastructure failure: the message could not be re-rendered
		h.Notify.OperatorAlert(c.Request.Context(), "refund interaction failed unexpectedly", err)
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *RefundsHandler) archiveSubmission(c *gin.Context, raw []byte) {
	if h.Archive == nil {
		return
	}
	_, err := h.Archive.Put(c.Request.Context(), bytes.NewReader(raw), storage.PutInput{
		Filename:    "submission-" + uuid.NewString() + ".json",
		ContentType: "application/json",
		Size:        int64(len(raw)),
	})
	if err != nil {
		h.Logger.WarnContext(c.Request.Context(), "submission archive failed", "err", err)
	}
}
