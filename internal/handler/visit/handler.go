package visit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sigmarp/medical-api/internal/middleware"
	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/service/visit"
	"github.com/sigmarp/medical-api/pkg/httputil"
)

type Handler struct {
	service *visit.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *visit.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	visits := r.Group("/visits", h.auth.Authenticate(), h.auth.RequireRole(string(model.RoleDoctor)))
	{
		visits.POST("", h.CreateVisit)
		visits.GET("/:id", h.GetVisit)
		visits.GET("/:id/complete", h.GetVisitComplete)
		visits.PUT("/:id", h.UpdateVisit)
		visits.POST("/:id/discharge", h.DischargeVisit)

		visits.POST("/:id/vital-signs", h.AddVitalSigns)
		visits.POST("/:id/diagnoses", h.AddDiagnosis)
		visits.POST("/:id/procedures", h.AddProcedure)
		visits.POST("/:id/evolutions", h.AddEvolution)
		visits.POST("/:id/prescriptions", h.AddPrescription)
		visits.POST("/:id/blood-analyses", h.AddBloodAnalysis)
		visits.POST("/:id/radiology-studies", h.AddRadiologyStudy)

		visits.GET("/patient/:dni", h.ListByPatient)
		visits.GET("/doctor/:dni", h.ListByDoctor)
		visits.GET("/status/:status", h.ListByStatus)
	}

	admin := r.Group("/visits", h.auth.Authenticate(), h.auth.RequireRole(string(model.RoleAdmin)))
	{
		admin.GET("", h.ListVisits)
		admin.DELETE("/:id", h.DeleteVisit)
	}
}

func (h *Handler) CreateVisit(c *gin.Context) {
	var req model.CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.CreateVisit(c.Request.Context(), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Visit created", resp)
}

func (h *Handler) GetVisit(c *gin.Context) {
	resp, err := h.service.GetVisit(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) GetVisitComplete(c *gin.Context) {
	resp, err := h.service.GetVisitComplete(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) UpdateVisit(c *gin.Context) {
	var req model.UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.UpdateVisit(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) DischargeVisit(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.DischargeVisit(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Visit discharged", resp)
}

func (h *Handler) DeleteVisit(c *gin.Context) {
	if err := h.service.DeleteVisit(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListVisits(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.ListVisits(c.Request.Context()))
}

func (h *Handler) ListByPatient(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.ListVisitsByPatient(c.Request.Context(), c.Param("dni")))
}

func (h *Handler) ListByDoctor(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.ListVisitsByDoctor(c.Request.Context(), c.Param("dni")))
}

func (h *Handler) ListByStatus(c *gin.Context) {
	visits, err := h.service.ListVisitsByStatus(c.Request.Context(), model.VisitStatus(c.Param("status")))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, visits)
}

func (h *Handler) AddVitalSigns(c *gin.Context) {
	var req model.VitalSignsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.AddVitalSigns(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Vital signs recorded", resp)
}

func (h *Handler) AddDiagnosis(c *gin.Context) {
	var req model.Diagnosis
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.AddDiagnosis(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Diagnosis added", resp)
}

func (h *Handler) AddProcedure(c *gin.Context) {
	var req model.Procedure
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.AddProcedure(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Procedure added", resp)
}

func (h *Handler) AddEvolution(c *gin.Context) {
	var req model.Evolution
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.AddEvolution(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Evolution added", resp)
}

func (h *Handler) AddPrescription(c *gin.Context) {
	var req model.Prescription
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	resp, err := h.service.AddPrescription(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Prescription added", resp)
}

// AddBloodAnalysis also copies the analysis to the patient history when
// sync_patient=true.
func (h *Handler) AddBloodAnalysis(c *gin.Context) {
	var req model.BloodAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	add := h.service.AddBloodAnalysis
	if syncPatient(c) {
		add = h.service.AddBloodAnalysisWithPatientSync
	}
	resp, err := add(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Blood analysis added", resp)
}

func (h *Handler) AddRadiologyStudy(c *gin.Context) {
	var req model.RadiologyStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	actor, _ := middleware.ActorFrom(c)
	add := h.service.AddRadiologyStudy
	if syncPatient(c) {
		add = h.service.AddRadiologyStudyWithPatientSync
	}
	resp, err := add(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, "Radiology study added", resp)
}

func syncPatient(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("sync_patient"))
	return v
}
