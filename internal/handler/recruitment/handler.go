package recruitment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sigmarp/medical-api/internal/middleware"
	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/service/recruitment"
	"github.com/sigmarp/medical-api/pkg/httputil"
)

type Handler struct {
	service *recruitment.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *recruitment.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	recruitments := r.Group("/recruitment")
	recruitments.POST("", h.CreateRecruitment)

	review := recruitments.Group("", h.auth.Authenticate(), h.auth.RequireRole(model.RoleRecruiter))
	{
		review.GET("/medical", h.listFor(model.ProfessionEMS))
		review.GET("/police", h.listFor(model.ProfessionPolice))
		review.GET("/pending", h.ListPending)
		review.GET("/:id", h.GetRecruitment)
		review.PUT("/:id/attend", h.MarkAttended)
	}
}

func (h *Handler) CreateRecruitment(c *gin.Context) {
	var req model.CreateRecruitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.service.CreateRecruitment(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Solicitud enviada correctamente", rec)
}

// listFor serves the applications of one profession, optionally filtered
// with ?attended=true|false.
func (h *Handler) listFor(p model.Profession) gin.HandlerFunc {
	return func(c *gin.Context) {
		var attended *bool
		if raw := c.Query("attended"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				httputil.RespondWithStatus(c, http.StatusBadRequest, "attended must be true or false")
				return
			}
			attended = &v
		}

		actor, _ := middleware.ActorFrom(c)
		recs, err := h.service.ListRecruitments(c.Request.Context(), actor, string(p), attended)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, recs)
	}
}

func (h *Handler) ListPending(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	recs, err := h.service.ListUnattended(c.Request.Context(), actor, c.Query("profession"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, recs)
}

func (h *Handler) GetRecruitment(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	rec, err := h.service.GetRecruitment(c.Request.Context(), actor, c.Query("profession"), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

func (h *Handler) MarkAttended(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	rec, err := h.service.MarkAttended(c.Request.Context(), actor, c.Query("profession"), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Solicitud marcada como atendida", rec)
}
