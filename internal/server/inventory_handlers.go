package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/inventory"
	"github.com/vesaa/patchbay/internal/models"
)

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, apperr.Validationf("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return uint(id), true
}

func paramInt(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		fail(c, apperr.Validationf("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return n, true
}

func (s *Server) handleCreateRack(c *gin.Context) {
	var body struct {
		Name     string `json:"name" binding:"required"`
		Location string `json:"location"`
		Slots    int    `json:"slots" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	rack, err := s.Inventory.CreateRack(c.Request.Context(), body.Name, body.Location, body.Slots)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "rack created", rack)
}

func (s *Server) handleAddSwitch(c *gin.Context) {
	var body struct {
		Name      string `json:"name" binding:"required"`
		Brand     string `json:"brand"`
		Model     string `json:"model"`
		IPAddress string `json:"ip_address" binding:"omitempty,ip"`
		RackID    *uint  `json:"rack_id"`
		Position  *int   `json:"position"`
		Ports     int    `json:"ports" binding:"required,min=5"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	sw, err := s.Inventory.AddSwitch(c.Request.Context(), inventory.NewSwitch{
		Name:      body.Name,
		Brand:     body.Brand,
		Model:     body.Model,
		IPAddress: body.IPAddress,
		RackID:    body.RackID,
		Position:  body.Position,
		Ports:     body.Ports,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "switch added", sw)
}

type panelBody struct {
	RackID      uint   `json:"rack_id" binding:"required"`
	Position    int    `json:"position" binding:"required,min=1"`
	Letter      string `json:"panel_letter" binding:"required,max=8"`
	Ports       int    `json:"ports" binding:"required,min=1"`
	Description string `json:"description"`
}

func (b panelBody) input() inventory.NewPanel {
	return inventory.NewPanel{
		RackID:      b.RackID,
		Position:    b.Position,
		Letter:      b.Letter,
		Ports:       b.Ports,
		Description: b.Description,
	}
}

func (s *Server) handleAddPatchPanel(c *gin.Context) {
	var body panelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.Inventory.AddPatchPanel(c.Request.Context(), body.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "patch panel added", p)
}

func (s *Server) handleAddFiberPanel(c *gin.Context) {
	var body panelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.Inventory.AddFiberPanel(c.Request.Context(), body.input())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "fiber panel added", p)
}

// handleUpdatePort edits a switch port. Changing a non-empty description
// raises a description_changed alarm.
//
//	PATCH /api/switches/:id/ports/:port
func (s *Server) handleUpdatePort(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	port, good := paramInt(c, "port")
	if !good {
		return
	}
	var body struct {
		Type        *models.PortType   `json:"type"`
		Device      *string            `json:"device"`
		IP          *string            `json:"ip" binding:"omitempty,ip"`
		MAC         *string            `json:"mac"`
		Description *string            `json:"description"`
		HubDevices  *models.HubDevices `json:"hub_devices"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	res, err := s.Inventory.UpdatePort(ctx, id, port, inventory.PortEdit{
		Type:        body.Type,
		Device:      body.Device,
		IP:          body.IP,
		MAC:         body.MAC,
		Description: body.Description,
		HubDevices:  body.HubDevices,
	})
	if err != nil {
		fail(c, err)
		return
	}

	data := gin.H{"port": res.Port, "previous_description": res.PreviousDescription}
	if res.DescriptionChanged && res.PreviousDescription != "" {
		raised, err := s.Alarms.CreateDescriptionChangeAlarm(ctx, id, port, res.PreviousDescription, res.Port.Description)
		if err != nil {
			// The edit is committed; report the alarm failure alongside it.
			s.Log.Errorw("description change alarm failed", "switch_id", id, "port", port, "error", err)
			data["alarm_error"] = err.Error()
		} else {
			data["alarm"] = raised
		}
	}
	ok(c, http.StatusOK, "port updated", data)
}

// handleDeleteSwitch tears down every link on the switch, then deletes it.
func (s *Server) handleDeleteSwitch(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	res, err := s.Links.Decommission(c.Request.Context(), models.KindSwitch, id, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "switch deleted", res)
}
