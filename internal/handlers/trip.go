package handlers

import (
	"errors"
	"net/http"

	"Tripboard/internal/dto"
	"Tripboard/internal/service"
	"Tripboard/internal/share"

	"github.com/gin-gonic/gin"
)

// TripHandler serves the trip-wide endpoints: status, settings, assignees and sharing.
type TripHandler struct {
	svc       *service.TaskService
	publicURL string
}

func NewTripHandler(svc *service.TaskService, publicURL string) *TripHandler {
	return &TripHandler{svc: svc, publicURL: publicURL}
}

// Status godoc
// @Summary      Connection status of this session
// @Tags         trip
// @Produce      json
// @Success      200  {object}  dto.StatusResponse
// @Router       /status [get]
func (h *TripHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, statusToResponse(h.svc.Status()))
}

func statusToResponse(st service.Status) dto.StatusResponse {
	out := dto.StatusResponse{TripID: st.TripID, Mode: string(st.Mode)}
	if st.ConnErr != nil {
		out.ConnectionError = st.ConnErr.Error()
	}
	if st.LastWriteErr != nil {
		out.LastWriteError = st.LastWriteErr.Error()
	}
	return out
}

// GetSettings godoc
// @Summary      Trip settings
// @Tags         trip
// @Produce      json
// @Success      200  {object}  dto.SettingsResponse
// @Router       /settings [get]
func (h *TripHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, dto.SettingsResponse{Kickoff: h.svc.Settings().Kickoff})
}

// PutSettings godoc
// @Summary      Set or clear the trip kickoff
// @Tags         trip
// @Accept       json
// @Produce      json
// @Param        body  body      dto.SettingsRequest  true  "Settings"
// @Success      200   {object}  dto.SettingsResponse
// @Failure      400   {object}  map[string]string
// @Router       /settings [put]
func (h *TripHandler) PutSettings(c *gin.Context) {
	var req dto.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.svc.SetKickoff(c.Request.Context(), req.Kickoff.Ptr())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SettingsResponse{Kickoff: s.Kickoff})
}

// Assignees godoc
// @Summary      Known assignees
// @Tags         trip
// @Produce      json
// @Success      200  {object}  dto.AssigneesResponse
// @Router       /assignees [get]
func (h *TripHandler) Assignees(c *gin.Context) {
	c.JSON(http.StatusOK, dto.AssigneesResponse{Items: h.svc.Assignees()})
}

// AddAssignee godoc
// @Summary      Add an assignee name
// @Tags         trip
// @Accept       json
// @Produce      json
// @Param        body  body      dto.AssigneeRequest  true  "Name"
// @Success      201   {object}  dto.AssigneesResponse
// @Failure      400   {object}  map[string]string
// @Router       /assignees [post]
func (h *TripHandler) AddAssignee(c *gin.Context) {
	var req dto.AssigneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	names, err := h.svc.AddAssignee(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.AssigneesResponse{Items: names})
}

// Share godoc
// @Summary      Export the trip as a share link
// @Tags         share
// @Produce      json
// @Success      200  {object}  dto.ShareResponse
// @Failure      500  {object}  map[string]string
// @Router       /share [get]
func (h *TripHandler) Share(c *gin.Context) {
	token, err := share.Encode(h.svc.Snapshot())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	link, err := share.Link(h.publicURL, token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ShareResponse{Token: token, Link: link})
}

// Import godoc
// @Summary      Replace the whole trip with a shared snapshot
// @Tags         share
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ImportRequest  true  "Token and confirmation"
// @Success      200   {object}  dto.ImportResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /share/import [post]
func (h *TripHandler) Import(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := share.Decode(req.Token)
	if err != nil {
		if errors.Is(err, share.ErrMalformedToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !req.Confirm {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "import replaces every task of this trip; resend with confirm=true",
			"pending": len(snap.Tasks),
		})
		return
	}
	if err := h.svc.ReplaceAll(c.Request.Context(), snap); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ImportResponse{Imported: len(snap.Tasks)})
}
