package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigmarp/medical-api/internal/middleware"
	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/service/doctor"
	"github.com/sigmarp/medical-api/pkg/httputil"
)

type Handler struct {
	service *doctor.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *doctor.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors", h.auth.Authenticate(), h.auth.RequireRole(string(model.RoleDoctor)))
	{
		doctors.GET("/:dni", h.GetDoctor)
		doctors.PUT("/:dni", h.UpsertDoctor)
	}
}

func (h *Handler) GetDoctor(c *gin.Context) {
	d, err := h.service.Get(c.Request.Context(), c.Param("dni"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

// UpsertDoctor lets doctors maintain their own profile. Admins may edit any.
func (h *Handler) UpsertDoctor(c *gin.Context) {
	dni := c.Param("dni")
	actor, _ := middleware.ActorFrom(c)
	if actor.Role != model.RoleAdmin && actor.DNI != dni {
		httputil.RespondWithStatus(c, http.StatusForbidden, "doctors can only edit their own profile")
		return
	}

	var req doctor.UpsertDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.service.Upsert(c.Request.Context(), dni, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}
