package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"github.com/anuragrao04/classroom-attendance/auth"
	"github.com/anuragrao04/classroom-attendance/database"
	"github.com/anuragrao04/classroom-attendance/models"
	"github.com/anuragrao04/classroom-attendance/sessions"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	qrImageSize    = 256
)

// storeError writes the response for an error returned by the store.
func (h *Handler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		errorJSON(c, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrSessionExists),
		errors.Is(err, database.ErrAlreadyMarked),
		errors.Is(err, database.ErrSessionNotActive):
		errorJSON(c, http.StatusConflict, errors.Cause(err).Error())
	case errors.Is(err, database.ErrRollOutOfRange):
		errorJSON(c, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error("store request failed")
		errorJSON(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.store.ListClasses(c.Request.Context(), auth.FacultyID(c))
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "classes": classes})
}

func (h *Handler) CreateClass(c *gin.Context) {
	var req models.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "subject_name and a valid roll range are required")
		return
	}
	class := &models.Class{
		FacultyID:        auth.FacultyID(c),
		SubjectName:      req.SubjectName,
		Division:         req.Division,
		Batch:            req.Batch,
		ClassType:        req.ClassType,
		StartRollNo:      req.StartRollNo,
		EndRollNo:        req.EndRollNo,
		DefaultStartTime: req.DefaultStartTime,
		DefaultEndTime:   req.DefaultEndTime,
	}
	if err := h.store.CreateClass(c.Request.Context(), class); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "class": class})
}

func (h *Handler) DeleteClass(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteClass(c.Request.Context(), id, auth.FacultyID(c)); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// StartSession opens today's session for a class. The refresh interval is
// echoed back for the live view to use.
func (h *Handler) StartSession(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req models.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.store.StartSession(c.Request.Context(), id, auth.FacultyID(c), req.StartTime, req.EndTime)
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{"session_id": sess.ID, "class_id": id}).Info("session started")
	c.JSON(http.StatusCreated, gin.H{
		"status":          "success",
		"session":         sess,
		"refresh_seconds": sessions.ParseRefreshInterval(req.QRSpeed, h.refreshSeconds),
	})
}

func (h *Handler) MarkOff(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req models.MarkOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "date and reason are required")
		return
	}
	if _, err := time.Parse(models.DateLayout, req.Date); err != nil {
		errorJSON(c, http.StatusBadRequest, "date must look like 2006-01-02")
		return
	}
	if req.Reason == models.StatusActive {
		errorJSON(c, http.StatusBadRequest, "reason cannot be "+models.StatusActive)
		return
	}
	sess, err := h.store.MarkSessionOff(c.Request.Context(), id, auth.FacultyID(c), req.Date, req.Reason)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "session": sess})
}

// History pages the class's sessions, newest first.
func (h *Handler) History(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	from, to := c.Query("from"), c.Query("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			errorJSON(c, http.StatusBadRequest, "from and to must look like 2006-01-02")
			return
		}
	}
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", defaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	reports, err := h.store.ClassHistory(c.Request.Context(), id, auth.FacultyID(c), from, to)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"sessions": paginate(reports, page, perPage),
		"page":     page,
		"per_page": perPage,
		"total":    len(reports),
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func paginate(reports []models.SessionReport, page, perPage int) []models.SessionReport {
	start := (page - 1) * perPage
	if start >= len(reports) {
		return []models.SessionReport{}
	}
	end := start + perPage
	if end > len(reports) {
		end = len(reports)
	}
	return reports[start:end]
}

// Override marks students present on the teacher's word.
func (h *Handler) Override(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req models.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "roll_nos is required")
		return
	}
	records, err := h.store.OverrideAttendance(c.Request.Context(), id, auth.FacultyID(c), req.RollNos)
	if err != nil {
		h.storeError(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{"session_id": id, "roll_nos": req.RollNos}).Info("attendance overridden")
	c.JSON(http.StatusCreated, gin.H{"status": "success", "records": records})
}

// QRImage renders the QR credential currently shown on the session's live view.
func (h *Handler) QRImage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := h.store.GetSession(c.Request.Context(), id, auth.FacultyID(c)); err != nil {
		h.storeError(c, err)
		return
	}
	cur, ok := h.live.current(id)
	if !ok || cur.QRPayload == "" {
		errorJSON(c, http.StatusNotFound, "session is not live")
		return
	}
	png, err := qrcode.Encode(cur.QRPayload, qrcode.High, qrImageSize)
	if err != nil {
		h.log.WithError(err).Error("failed to render QR code")
		errorJSON(c, http.StatusInternalServerError, "failed to render QR code")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
