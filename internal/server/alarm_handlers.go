package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vesaa/patchbay/internal/alarms"
	"github.com/vesaa/patchbay/internal/models"
)

func (s *Server) handleListAlarms(c *gin.Context) {
	var q struct {
		Status         models.AlarmStatus `form:"status" binding:"omitempty,oneof=ACTIVE ACKNOWLEDGED RESOLVED"`
		DeviceID       uint               `form:"device_id"`
		NeedsAttention bool               `form:"needs_attention"`
		Limit          int                `form:"limit" binding:"min=0,max=500"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := s.Alarms.List(c.Request.Context(), alarms.ListFilter{
		Status:         q.Status,
		DeviceID:       q.DeviceID,
		NeedsAttention: q.NeedsAttention,
		Limit:          q.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "ok", rows)
}

func (s *Server) handleGetAlarm(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	ctx := c.Request.Context()
	a, err := s.Alarms.Get(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	hist, err := s.Alarms.History(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "ok", gin.H{"alarm": a, "history": hist})
}

// handleDescriptionChange is called by the port editor after it saves a new
// description.
//
//	POST /api/alarms/description-change
//	Body: { "switchId": 3, "portNo": 12, "oldDescription": "...", "newDescription": "..." }
func (s *Server) handleDescriptionChange(c *gin.Context) {
	var body struct {
		SwitchID       uint   `json:"switchId" binding:"required"`
		PortNo         int    `json:"portNo" binding:"required,min=1"`
		OldDescription string `json:"oldDescription"`
		NewDescription string `json:"newDescription"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.Alarms.CreateDescriptionChangeAlarm(c.Request.Context(), body.SwitchID, body.PortNo, body.OldDescription, body.NewDescription)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "alarm " + res.Action,
		"alarm_id": res.Alarm.ID,
		"action":   res.Action,
		"data":     res.Alarm,
	})
}

type ackBody struct {
	AckType alarms.AckType `json:"ack_type" form:"ack_type" binding:"required,ack_type"`
	Note    string         `json:"note" form:"note"`
}

// handleAcknowledge accepts JSON or form bodies.
//
//	POST /api/alarms/:id/acknowledge
//	Body: ack_type=known_change&note=desk+move
func (s *Server) handleAcknowledge(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	var body ackBody
	if err := c.ShouldBind(&body); err != nil {
		badRequest(c, err)
		return
	}
	a, err := s.Alarms.Acknowledge(c.Request.Context(), id, body.AckType, body.Note, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("alarm %d %s", a.ID, a.Status), a)
}

// handleSilence hides an alarm for duration hours.
func (s *Server) handleSilence(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	var body struct {
		Duration int `json:"duration" form:"duration" binding:"required,min=1"`
	}
	if err := c.ShouldBind(&body); err != nil {
		badRequest(c, err)
		return
	}
	a, err := s.Alarms.Silence(c.Request.Context(), id, body.Duration, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("alarm %d silenced for %d hours", a.ID, body.Duration), a)
}

func (s *Server) handleUnsilence(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	a, err := s.Alarms.Unsilence(c.Request.Context(), id, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("alarm %d unsilenced", a.ID), a)
}

// handleBulkAcknowledge reports per-alarm failures; success is true only when
// every alarm moved.
func (s *Server) handleBulkAcknowledge(c *gin.Context) {
	var body struct {
		AlarmIDs []uint `json:"alarm_ids" form:"alarm_ids" binding:"required,min=1,dive,min=1"`
		ackBody
	}
	if err := c.ShouldBind(&body); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.Alarms.BulkAcknowledge(c.Request.Context(), body.AlarmIDs, body.AckType, body.Note, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{
		Success: res.Failed == 0,
		Message: fmt.Sprintf("%d acknowledged, %d failed", len(res.Succeeded), res.Failed),
		Data:    res,
	})
}

func (s *Server) handleAddToWhitelist(c *gin.Context) {
	var body struct {
		DeviceName string `json:"device_name" binding:"required"`
		PortNumber int    `json:"port_number" binding:"required,min=1"`
		MACAddress string `json:"mac_address" binding:"required"`
		Note       string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	row, err := s.Alarms.AddToWhitelist(c.Request.Context(), alarms.WhitelistEntry{
		DeviceName: body.DeviceName,
		PortNumber: body.PortNumber,
		MAC:        body.MACAddress,
		AckedBy:    actor(c),
		Note:       body.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "whitelisted", row)
}

// handleDetection ingests one detection from the SNMP worker (data plane).
func (s *Server) handleDetection(c *gin.Context) {
	var body struct {
		DeviceID   uint             `json:"device_id" binding:"required"`
		PortNumber int              `json:"port_number" binding:"min=0"`
		Type       models.AlarmType `json:"alarm_type" binding:"required,alarm_type"`
		OldValue   string           `json:"old_value"`
		NewValue   string           `json:"new_value"`
		MAC        string           `json:"mac_address"`
		Message    string           `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.Alarms.Raise(c.Request.Context(), alarms.Detection{
		DeviceID:   body.DeviceID,
		PortNumber: body.PortNumber,
		Type:       body.Type,
		OldValue:   body.OldValue,
		NewValue:   body.NewValue,
		MAC:        body.MAC,
		Message:    body.Message,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "alarm "+res.Action, res)
}
