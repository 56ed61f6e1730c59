package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"opd-room-tracker/internal/converter"
	"opd-room-tracker/internal/delivery/dto"
	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/internal/usecase"
	"opd-room-tracker/pkg/response"
	"opd-room-tracker/pkg/validator"

	"github.com/gorilla/mux"
)

type RoomHandler struct {
	roomUsecase usecase.RoomUsecase
	validator   *validator.CustomValidator
}

func NewRoomHandler(roomUsecase usecase.RoomUsecase, validator *validator.CustomValidator) *RoomHandler {
	return &RoomHandler{
		roomUsecase: roomUsecase,
		validator:   validator,
	}
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	room, err := h.roomUsecase.Create(r.Context(), req.Identifier, req.Description)
	if err != nil {
		writeError(w, err, "Failed to create room")
		return
	}

	response.Success(w, http.StatusCreated, "Room created successfully", converter.RoomToResponse(room))
}

// ListRooms supports ?active=true|false and ?search=.
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	filter := &entity.RoomFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid active filter", nil)
			return
		}
		filter.Active = &active
	}

	rooms, err := h.roomUsecase.List(r.Context(), filter)
	if err != nil {
		writeError(w, err, "Failed to get rooms")
		return
	}

	response.Success(w, http.StatusOK, "Rooms retrieved successfully", dto.RoomListResponse{
		Rooms: converter.RoomsToResponses(rooms),
		Total: len(rooms),
	})
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomUsecase.FindByIdentifier(r.Context(), mux.Vars(r)["identifier"])
	if err != nil {
		writeError(w, err, "Failed to get room")
		return
	}

	response.Success(w, http.StatusOK, "Room retrieved successfully", converter.RoomToResponse(room))
}

func (h *RoomHandler) SetRoomActive(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid room ID", nil)
		return
	}

	var req dto.SetRoomActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	room, err := h.roomUsecase.SetActive(r.Context(), roomID, *req.IsActive)
	if err != nil {
		writeError(w, err, "Failed to update room")
		return
	}

	response.Success(w, http.StatusOK, "Room updated successfully", converter.RoomToResponse(room))
}

// DeleteRoom honours ?force=true to clear stale references first.
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "Invalid room ID", nil)
		return
	}

	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		var err error
		if force, err = strconv.ParseBool(raw); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid force flag", nil)
			return
		}
	}

	if err := h.roomUsecase.Delete(r.Context(), roomID, force); err != nil {
		writeError(w, err, "Failed to delete room")
		return
	}

	response.Success(w, http.StatusOK, "Room deleted successfully", nil)
}
