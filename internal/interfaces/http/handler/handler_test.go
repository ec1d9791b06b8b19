package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	franchiseapp "github.com/foodtruck/backend/internal/application/franchise"
	procurementapp "github.com/foodtruck/backend/internal/application/procurement"
	royaltyapp "github.com/foodtruck/backend/internal/application/royalty"
	"github.com/foodtruck/backend/internal/infrastructure/cache"
	"github.com/foodtruck/backend/internal/infrastructure/persistence"
	"github.com/foodtruck/backend/internal/infrastructure/persistence/models"
	"github.com/foodtruck/backend/internal/interfaces/http/dto"
	"github.com/foodtruck/backend/internal/interfaces/http/middleware"
	"github.com/foodtruck/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.PurchaseOrderModel{},
		&models.PurchaseOrderLineModel{},
		&models.FranchiseAgreementModel{},
		&models.RoyaltyReportModel{},
	))

	log := zaptest.NewLogger(t)
	agreementRepo := persistence.NewGormAgreementRepository(db)
	orderService := procurementapp.NewPurchaseOrderService(persistence.NewGormPurchaseOrderRepository(db), log)
	agreementService := franchiseapp.NewAgreementService(agreementRepo, "Europe/Paris", log)
	royaltyService := royaltyapp.NewRoyaltyService(
		persistence.NewGormRoyaltyReportRepository(db),
		agreementRepo,
		persistence.NewGormSalesRepository(db),
		cache.NewInMemoryGenerationLock(),
		log,
	)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Actor())
	r := router.NewRouter(engine)
	r.Mount("procurement", "/procurement", NewProcurementHandler(orderService))
	r.Mount("franchise", "/franchise", NewFranchiseHandler(agreementService))
	r.Mount("royalty", "/royalty", NewRoyaltyHandler(royaltyService))
	r.Setup()

	return &testServer{engine: engine, db: db}
}

type requestOption func(*http.Request)

func asActor(id uuid.UUID, capabilities string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(middleware.ActorIDHeader, id.String())
		if capabilities != "" {
			r.Header.Set(middleware.ActorCapabilitiesHeader, capabilities)
		}
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// envelope decodes the standard response with data left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func lineBody(productID, price string, core bool) map[string]any {
	return map[string]any{
		"product_id":          productID,
		"quantity":            "1",
		"unit_price_excl_tax": price,
		"tax_rate_pct":        "5.5",
		"is_core_item":        core,
	}
}
