package handler

import (
	"errors"
	"net/http"
	"strconv"

	"opd-room-tracker/internal/converter"
	"opd-room-tracker/internal/usecase"
	"opd-room-tracker/pkg/response"

	"github.com/gorilla/mux"
)

// Error codes returned in response.ErrorBody.Code.
const (
	CodeRoomNotSelected = "ROOM_NOT_SELECTED"
	CodeConflict        = "CONFLICT"
	CodeRoomInUse       = "ROOM_IN_USE"
)

// writeError maps a usecase error to its transport status. fallback is the message used
// for unexpected failures so internals never leak to the client.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var inUse *usecase.RoomInUseError
	switch {
	case errors.As(err, &inUse):
		response.Conflict(w, inUse.Error(), CodeRoomInUse, converter.RoomInUseToResponse(inUse))
	case errors.Is(err, usecase.ErrRoomNotSelected):
		response.Conflict(w, "Please select your room for today first", CodeRoomNotSelected, nil)
	case errors.Is(err, usecase.ErrInvalidArgument):
		response.BadRequest(w, err.Error())
	case errors.Is(err, usecase.ErrNotFound):
		response.NotFound(w, capitalize(err.Error()))
	case errors.Is(err, usecase.ErrConflict):
		response.Conflict(w, err.Error(), CodeConflict, nil)
	default:
		response.InternalServerError(w, fallback)
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// pathID reads a positive integer path variable.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
