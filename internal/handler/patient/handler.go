package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/sigmarp/medical-api/internal/middleware"
	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/service/patient"
	"github.com/sigmarp/medical-api/pkg/httputil"
)

type Handler struct {
	service *patient.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *patient.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients", h.auth.Authenticate(), h.auth.RequireRole(string(model.RoleDoctor)))
	{
		patients.POST("/:dni/history", h.RegisterPatient)
		patients.GET("/:dni/history", h.GetHistory)
	}
}

func (h *Handler) RegisterPatient(c *gin.Context) {
	history, err := h.service.RegisterPatient(c.Request.Context(), c.Param("dni"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Patient history ready", history)
}

func (h *Handler) GetHistory(c *gin.Context) {
	history, err := h.service.GetHistory(c.Request.Context(), c.Param("dni"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, history)
}
