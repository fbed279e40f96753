package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anuragrao04/classroom-attendance/fingerprint"
	"github.com/anuragrao04/classroom-attendance/models"
	"github.com/anuragrao04/classroom-attendance/sessions"
)

const msgMissingFingerprint = "Could not identify this device. Please reload the page and try again."

// SubmitQR handles POST /attendance/qr.
func (h *Handler) SubmitQR(c *gin.Context) {
	var req models.QRSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "payload and roll_no are required")
		return
	}
	st, ok := student(c, req.RollNo, req.DeviceFingerprint, req.Device)
	if !ok {
		return
	}
	// a submission that reached the store must finish even if the client goes away
	ctx := context.WithoutCancel(c.Request.Context())
	respond(c, h.validator.ValidateQR(ctx, req.Payload, st))
}

// SubmitManualCode handles POST /attendance/manual.
func (h *Handler) SubmitManualCode(c *gin.Context) {
	var req models.ManualCodeSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "code and roll_no are required")
		return
	}
	st, ok := student(c, req.RollNo, req.DeviceFingerprint, req.Device)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	respond(c, h.validator.ValidateManualCode(ctx, req.Code, st))
}

func student(c *gin.Context, rollNo int, precomputed string, attrs *models.DeviceAttributes) (sessions.Student, bool) {
	fp := fingerprint.Resolve(precomputed, attrs)
	if fp == "" {
		errorJSON(c, http.StatusBadRequest, msgMissingFingerprint)
		return sessions.Student{}, false
	}
	return sessions.Student{RollNo: rollNo, DeviceFingerprint: fp}, true
}

func respond(c *gin.Context, res sessions.Result) {
	body := gin.H{
		"status":  res.Outcome.String(),
		"message": res.Message,
		"method":  res.Method,
	}
	if res.SessionID != 0 {
		body["session_id"] = res.SessionID
	}
	c.JSON(statusFor(res), body)
}

func statusFor(res sessions.Result) int {
	switch res.Outcome {
	case sessions.OutcomeSuccess:
		return http.StatusCreated
	case sessions.OutcomeAlreadyMarked:
		return http.StatusOK
	case sessions.OutcomeDeviceConflict:
		return http.StatusConflict
	}
	switch res.Reason {
	case sessions.ReasonFormat:
		return http.StatusBadRequest
	case sessions.ReasonExpired:
		return http.StatusGone
	case sessions.ReasonNoActiveSession:
		return http.StatusNotFound
	case sessions.ReasonIneligible:
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}
