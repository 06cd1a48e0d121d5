package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sigmarp/medical-api/internal/middleware"
	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/service/user"
	"github.com/sigmarp/medical-api/pkg/httputil"
)

type Handler struct {
	service *user.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *user.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin", h.auth.Authenticate(), h.auth.RequireRole(string(model.RoleAdmin)))
	{
		admin.PUT("/users/:dni", h.RegisterUser)
		admin.POST("/assign-role", h.AssignRole)
		admin.GET("/user-roles/:dni", h.GetUserRoles)
		admin.GET("/recruiters", h.ListRecruiters)
	}
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req model.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.service.RegisterUser(c.Request.Context(), c.Param("dni"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, u)
}

// AssignRole grants or revokes an additional role such as recruiter.
func (h *Handler) AssignRole(c *gin.Context) {
	var req model.RoleAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.AssignRole(c.Request.Context(), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, resp.Message, resp)
}

func (h *Handler) GetUserRoles(c *gin.Context) {
	info, err := h.service.GetUserRoles(c.Request.Context(), c.Param("dni"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, info)
}

func (h *Handler) ListRecruiters(c *gin.Context) {
	recruiters, err := h.service.ListRecruiters(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, recruiters)
}
