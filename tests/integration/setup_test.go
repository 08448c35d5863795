package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"budgetapp/internal/app"
	"budgetapp/internal/config"
	"budgetapp/internal/jobs"
	"budgetapp/internal/jobs/inmemory"
	"budgetapp/internal/logger"
	"budgetapp/internal/router"
	"budgetapp/internal/storage"
	"budgetapp/internal/testutil"
	"budgetapp/internal/validator"
)

const testPipelineKey = "integration-pipeline-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Services *app.Services
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite, a temporary artifact directory and in-process job workers.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)

	files, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create artifact storage: %v", err)
	}

	cfg := &config.Config{ImportMaxSize: 1 << 20}
	queue := inmemory.NewQueue(16, 2)
	registry := jobs.NewRegistry(jobs.NewGormStore(db), queue, files, jobs.WithTimeout(time.Minute))
	queue.OnStop(registry.Abandon)
	svc := app.NewServices(db, registry, files, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	if err := queue.Start(ctx, registry.Run); err != nil {
		t.Fatalf("failed to start job workers: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = queue.Stop(context.Background())
		testutil.TeardownTestDB(t, db)
	})

	r := router.New(svc.Handlers(), router.Options{PipelineAPIKey: testPipelineKey})

	return &testApp{DB: db, Router: r, Services: svc}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// pipelineRequest calls an API-key protected pipeline route.
func (app *testApp) pipelineRequest(path, body, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// upload posts content as the multipart "file" field.
func (app *testApp) upload(t *testing.T, path, filename, content, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	_, _ = part.Write([]byte(content))
	_ = mw.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// waitForTask polls a task until it reaches a terminal status.
func (app *testApp) waitForTask(t *testing.T, taskID, token string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := app.request("GET", "/api/v1/tasks/"+taskID, "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("task status failed: %d %s", rec.Code, rec.Body.String())
		}
		status := parseJSON(t, rec)
		switch status["status"] {
		case "succeeded", "failed":
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s did not finish in time", taskID)
	return nil
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// errorCode extracts error.code from an error response.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	return errObj["code"].(string)
}

// registerUser registers a new user and returns the access token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access token.
func (app *testApp) loginUser(t *testing.T, email, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["access_token"].(string)
}

// createCategory creates a category and returns its ID.
func (app *testApp) createCategory(t *testing.T, token, name string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/categories", fmt.Sprintf(`{"name":%q}`, name), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["category"].(map[string]interface{})["id"].(string)
}

// createTransaction records a transaction and returns its ID.
func (app *testApp) createTransaction(t *testing.T, token, categoryID, txType string, amount int64, date string) string {
	t.Helper()
	body := fmt.Sprintf(`{"category_id":%q,"type":%q,"amount":%d,"date":%q}`, categoryID, txType, amount, date)
	rec := app.request("POST", "/api/v1/transactions", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(string)
}
