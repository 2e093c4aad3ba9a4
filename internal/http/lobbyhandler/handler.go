package lobbyhandler

import (
	"errors"
	"net/http"

	"gamelobby/internal/services/lobby"

	"github.com/gin-gonic/gin"
)

// Reader is the read-only view of the lobby the REST API exposes.
type Reader interface {
	Users() []lobby.UserInfo
	Rooms() []lobby.RoomSummary
	Room(id string) (lobby.RoomSummary, error)
}

type Handler struct {
	svc Reader
}

func New(svc Reader) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/api/lobby/users", h.users)
	r.GET("/api/games", h.list)
	r.GET("/api/games/:id", h.info)
}

// @Summary		List lobby users
// @Description	Returns the presence snapshot in join order.
// @Tags			Lobby
// @Success		200	{array}	lobby.UserInfo
// @Router			/api/lobby/users [get]
func (h *Handler) users(c *gin.Context) {
	out := h.svc.Users()
	if out == nil {
		out = []lobby.UserInfo{}
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		List game rooms
// @Description	Retrieves open game rooms ordered by creation, optionally filtered by status.
// @Tags			Games
// @Param			status	query		string	false	"Status filter"			Enums(active,started)
// @Param			limit	query		int		false	"Max results (0‑100)"	minimum(0)	maximum(100)	default(50)
// @Param			offset	query		int		false	"Offset for pagination"	minimum(0)	default(0)
// @Success		200		{array}		lobby.RoomSummary
// @Failure		400		{object}	ErrorResponse
// @Router			/api/games [get]
func (h *Handler) list(c *gin.Context) {
	var q ListGamesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]lobby.RoomSummary, 0)
	for _, room := range h.svc.Rooms() {
		if q.Status != "" && string(room.Status) != q.Status {
			continue
		}
		out = append(out, room)
	}
	if q.Offset >= len(out) {
		out = out[:0]
	} else {
		out = out[q.Offset:]
	}
	if q.Limit < len(out) {
		out = out[:q.Limit]
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Get game room
// @Description	Returns one game room with its players and ready flags.
// @Tags			Games
// @Param			id	path		string	true	"Game ID"
// @Success		200	{object}	lobby.RoomSummary
// @Failure		404	{object}	ErrorResponse
// @Router			/api/games/{id} [get]
func (h *Handler) info(c *gin.Context) {
	room, err := h.svc.Room(c.Param("id"))
	if errors.Is(err, lobby.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, room)
}
