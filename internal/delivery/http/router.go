package http

import (
	"net/http"

	"opd-room-tracker/internal/delivery/http/handler"
	"opd-room-tracker/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router            *mux.Router
	roomHandler       *handler.RoomHandler
	doctorRoomHandler *handler.DoctorRoomHandler
	patientHandler    *handler.PatientHandler
	visitHandler      *handler.VisitHandler
	auditLogHandler   *handler.AuditLogHandler
	authMiddleware    *middleware.AuthMiddleware
	corsMiddleware    *middleware.CORSMiddleware
	requestLogger     *middleware.RequestLogger
}

func NewRouter(
	roomHandler *handler.RoomHandler,
	doctorRoomHandler *handler.DoctorRoomHandler,
	patientHandler *handler.PatientHandler,
	visitHandler *handler.VisitHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	requestLogger *middleware.RequestLogger,
) *Router {
	return &Router{
		router:            mux.NewRouter(),
		roomHandler:       roomHandler,
		doctorRoomHandler: doctorRoomHandler,
		patientHandler:    patientHandler,
		visitHandler:      visitHandler,
		auditLogHandler:   auditLogHandler,
		authMiddleware:    authMiddleware,
		corsMiddleware:    corsMiddleware,
		requestLogger:     requestLogger,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Everything else requires a token; roles are checked per route so that
	// one path can carry methods with different permissions.
	protected := api.NewRoute().Subrouter()
	protected.Use(r.authMiddleware.Authenticate)

	admin := middleware.RequireAdmin
	doctor := middleware.RequireDoctor
	staff := middleware.RequireClinicalStaff

	// Room directory
	protected.Handle("/rooms", staff(http.HandlerFunc(r.roomHandler.ListRooms))).Methods(http.MethodGet)
	protected.Handle("/rooms", admin(http.HandlerFunc(r.roomHandler.CreateRoom))).Methods(http.MethodPost)
	protected.Handle("/rooms/{id:[0-9]+}/active", admin(http.HandlerFunc(r.roomHandler.SetRoomActive))).Methods(http.MethodPatch)
	protected.Handle("/rooms/{id:[0-9]+}", admin(http.HandlerFunc(r.roomHandler.DeleteRoom))).Methods(http.MethodDelete)
	protected.Handle("/rooms/{identifier}", staff(http.HandlerFunc(r.roomHandler.GetRoom))).Methods(http.MethodGet)

	// Doctor room selection and occupancy
	protected.Handle("/rooms/{identifier}/occupant", staff(http.HandlerFunc(r.doctorRoomHandler.GetRoomOccupant))).Methods(http.MethodGet)
	protected.Handle("/occupancy/today", staff(http.HandlerFunc(r.doctorRoomHandler.ListOccupancyToday))).Methods(http.MethodGet)
	protected.Handle("/doctors/me/room", doctor(http.HandlerFunc(r.doctorRoomHandler.SelectRoom))).Methods(http.MethodPut)
	protected.Handle("/doctors/{id:[0-9]+}/room-today", staff(http.HandlerFunc(r.doctorRoomHandler.GetRoomToday))).Methods(http.MethodGet)

	// Patient assignment and visits
	protected.Handle("/patients/{id:[0-9]+}/assignment", staff(http.HandlerFunc(r.patientHandler.AssignPatient))).Methods(http.MethodPost)
	protected.Handle("/patients/{id:[0-9]+}/visits", doctor(http.HandlerFunc(r.patientHandler.CreateVisit))).Methods(http.MethodPost)
	protected.Handle("/patients/{id:[0-9]+}/room", staff(http.HandlerFunc(r.patientHandler.ChangeRoom))).Methods(http.MethodPut)
	protected.Handle("/patients/{id:[0-9]+}/visits/today/start", staff(http.HandlerFunc(r.patientHandler.StartVisit))).Methods(http.MethodPost)
	protected.Handle("/patients/{id:[0-9]+}/visits/today/complete", staff(http.HandlerFunc(r.patientHandler.CompleteVisit))).Methods(http.MethodPost)

	protected.Handle("/visits/today", staff(http.HandlerFunc(r.visitHandler.ListToday))).Methods(http.MethodGet)
	protected.Handle("/visits/auto-complete", admin(http.HandlerFunc(r.visitHandler.AutoComplete))).Methods(http.MethodPost)

	// Audit trail
	protected.Handle("/audit-logs", admin(http.HandlerFunc(r.auditLogHandler.GetAllAuditLogs))).Methods(http.MethodGet)
	protected.Handle("/audit-logs/{id:[0-9]+}", admin(http.HandlerFunc(r.auditLogHandler.GetAuditLog))).Methods(http.MethodGet)

	// Add CORS and access logging middleware
	r.router.Use(r.corsMiddleware.Handle)
	r.router.Use(r.requestLogger.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
