package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	adminHandler "github.com/sigmarp/medical-api/internal/handler/admin"
	doctorHandler "github.com/sigmarp/medical-api/internal/handler/doctor"
	"github.com/sigmarp/medical-api/internal/handler/health"
	patientHandler "github.com/sigmarp/medical-api/internal/handler/patient"
	recruitmentHandler "github.com/sigmarp/medical-api/internal/handler/recruitment"
	visitHandler "github.com/sigmarp/medical-api/internal/handler/visit"
	"github.com/sigmarp/medical-api/internal/middleware"
	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/notify"
	"github.com/sigmarp/medical-api/internal/repository/document"
	"github.com/sigmarp/medical-api/internal/router"
	doctorService "github.com/sigmarp/medical-api/internal/service/doctor"
	patientService "github.com/sigmarp/medical-api/internal/service/patient"
	recruitmentService "github.com/sigmarp/medical-api/internal/service/recruitment"
	userService "github.com/sigmarp/medical-api/internal/service/user"
	visitService "github.com/sigmarp/medical-api/internal/service/visit"
	"github.com/sigmarp/medical-api/pkg/auth"
	"github.com/sigmarp/medical-api/pkg/docstore/memory"
	"github.com/sigmarp/medical-api/pkg/logger"
)

var (
	baseURL string

	doctorToken    string
	adminToken     string
	recruiterToken string
	policeToken    string

	jwtSvc *auth.JWTService

	webhook *webhookRecorder
)

// webhookRecorder stands in for the Discord webhook endpoint.
type webhookRecorder struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
}

func (w *webhookRecorder) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.mu.Lock()
	w.payloads = append(w.payloads, body)
	w.mu.Unlock()
	rw.WriteHeader(http.StatusNoContent)
}

func (w *webhookRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.payloads)
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()

	webhook = &webhookRecorder{}
	discord := httptest.NewServer(webhook)

	store := memory.New()
	historyRepo := document.NewPatientHistoryRepository(store)
	doctorSvc := doctorService.NewService(document.NewDoctorRepository(store), time.Minute, log)
	visitSvc := visitService.NewService(document.NewVisitRepository(store, log), doctorSvc, historyRepo, nil, log)
	recruitmentSvc := recruitmentService.NewService(
		document.NewRecruitmentRepository(store, log),
		notify.NewDiscord(notify.DiscordConfig{WebhookURL: discord.URL, Timeout: time.Second}, log),
		nil,
		log,
	)
	patientSvc := patientService.NewService(historyRepo, log)
	userSvc := userService.NewService(document.NewUserRepository(store), time.Minute, log)

	jwtSvc = auth.NewJWTService("integration-secret", "sigma", time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc).WithAccounts(userSvc)

	r := router.NewRouter(log, router.RouterConfig{
		Mode:       gin.TestMode,
		CORSConfig: middleware.DefaultCORSConfig(),
	},
		health.NewHandler(map[string]health.Pinger{"store": store}),
		visitHandler.NewHandler(visitSvc, authMiddleware),
		recruitmentHandler.NewHandler(recruitmentSvc, authMiddleware),
		doctorHandler.NewHandler(doctorSvc, authMiddleware),
		patientHandler.NewHandler(patientSvc, authMiddleware),
		adminHandler.NewHandler(userSvc, authMiddleware),
	)
	r.Setup()
	server := httptest.NewServer(r.Engine())
	baseURL = server.URL

	doctorToken = mustIssue(jwtSvc, model.Actor{DNI: "20999888", Name: "Dra. Paz", Role: model.RoleDoctor})
	adminToken = mustIssue(jwtSvc, model.Actor{DNI: "1", Name: "Admin", Role: model.RoleAdmin})
	recruiterToken = mustIssue(jwtSvc, model.Actor{DNI: "20111222", Name: "Jefe EMS", Role: model.RoleDoctor, Roles: []string{model.RoleRecruiter}})
	policeToken = mustIssue(jwtSvc, model.Actor{DNI: "30555444", Name: "Comisario", Role: model.RolePolice, Roles: []string{model.RoleRecruiter}})

	code := m.Run()

	server.Close()
	discord.Close()
	os.Exit(code)
}

func mustIssue(s *auth.JWTService, actor model.Actor) string {
	token, err := s.Issue(actor)
	if err != nil {
		panic(err)
	}
	return token
}
