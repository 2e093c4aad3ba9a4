package lobbyhandler

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

type ListGamesQuery struct {
	Status string `form:"status"  binding:"omitempty,oneof=active started"`
	Limit  int    `form:"limit,default=50"  binding:"gte=0,lte=100"`
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
} // @name ListGamesQuery
