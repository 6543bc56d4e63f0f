package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vesaa/patchbay/internal/apperr"
	"github.com/vesaa/patchbay/internal/links"
	"github.com/vesaa/patchbay/internal/models"
)

// endpointBody accepts the parent id as id, panel_id or switch_id.
type endpointBody struct {
	Type     models.EndpointKind `json:"type" binding:"required,endpoint_kind"`
	ID       uint                `json:"id"`
	PanelID  uint                `json:"panel_id"`
	SwitchID uint                `json:"switch_id"`
	Port     int                 `json:"port" binding:"required,min=1"`
}

func (b endpointBody) endpoint() (links.Endpoint, error) {
	id := b.ID
	for _, alt := range []uint{b.PanelID, b.SwitchID} {
		if id == 0 {
			id = alt
		}
	}
	if id == 0 {
		return links.Endpoint{}, apperr.Validationf("%s endpoint needs an id", b.Type)
	}
	return links.Endpoint{Kind: b.Type, ID: id, Port: b.Port}, nil
}

// handleConnect links two endpoints.
//
//	POST /api/connections
//	Body: { "side_a": {"type":"fiber_port","panel_id":5,"port":3},
//	        "side_b": {"type":"switch","id":10,"port":49} }
func (s *Server) handleConnect(c *gin.Context) {
	var body struct {
		SideA endpointBody `json:"side_a" binding:"required"`
		SideB endpointBody `json:"side_b" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	a, err := body.SideA.endpoint()
	if err != nil {
		fail(c, err)
		return
	}
	b, err := body.SideB.endpoint()
	if err != nil {
		fail(c, err)
		return
	}

	res, err := s.Links.Connect(c.Request.Context(), a, b, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "connection saved", res)
}

// handleDisconnect removes whatever link an endpoint takes part in. An
// endpoint with no link is a success with changed=false.
//
//	POST /api/connections/disconnect
//	Body: { "type": "switch", "switch_id": 10, "port": 49 }
func (s *Server) handleDisconnect(c *gin.Context) {
	var body endpointBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	e, err := body.endpoint()
	if err != nil {
		fail(c, err)
		return
	}
	res, err := s.Links.Disconnect(c.Request.Context(), e, actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res.Message, res)
}

func (s *Server) handleLookup(c *gin.Context) {
	id, good := paramID(c, "id")
	if !good {
		return
	}
	port, good := paramInt(c, "port")
	if !good {
		return
	}
	st, err := s.Links.Lookup(c.Request.Context(), links.Endpoint{Kind: models.EndpointKind(c.Param("type")), ID: id, Port: port})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "ok", st)
}

// handleConnectionHistory lists history, optionally for one endpoint given
// as ?type=&id=&port=.
func (s *Server) handleConnectionHistory(c *gin.Context) {
	var q struct {
		Type  models.EndpointKind `form:"type" binding:"omitempty,endpoint_kind"`
		ID    uint                `form:"id"`
		Port  int                 `form:"port" binding:"min=0"`
		Limit int                 `form:"limit" binding:"min=0,max=500"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	f := links.HistoryFilter{Limit: q.Limit}
	if q.Type != "" {
		if q.ID == 0 || q.Port == 0 {
			fail(c, apperr.Validationf("type, id and port must be given together"))
			return
		}
		f.Endpoint = &links.Endpoint{Kind: q.Type, ID: q.ID, Port: q.Port}
	}
	rows, err := s.Links.History(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "ok", rows)
}
