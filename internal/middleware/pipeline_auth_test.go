package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const pipelineKey = "snapshot-pipeline-key"

func setupPipelineRouter(apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(PipelineAuthMiddleware(apiKey))
	r.POST("/pipeline/summaries/monthly", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": c.GetString(callerKey)})
	})
	return r
}

func sendPipeline(r *gin.Engine, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/pipeline/summaries/monthly", http.NoBody)
	if apiKey != "" {
		req.Header.Set(PipelineKeyHeader, apiKey)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestPipelineAuthMiddleware_AdmitsMatchingKey(t *testing.T) {
	rec := sendPipeline(setupPipelineRouter(pipelineKey), pipelineKey)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if caller := parseBody(t, rec)["caller"]; caller != "pipeline" {
		t.Errorf("expected request tagged as pipeline caller, got %v", caller)
	}
}

func TestPipelineAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
		wantCode   string
	}{
		{"wrong key", pipelineKey, "another-key", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"no key sent", pipelineKey, "", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"prefix of key", pipelineKey, "snapshot-pipeline", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"key with suffix", pipelineKey, pipelineKey + "x", http.StatusUnauthorized, "INVALID_API_KEY"},
		{"pipeline disabled", "", "anything", http.StatusServiceUnavailable, "PIPELINE_NOT_CONFIGURED"},
		{"pipeline disabled, no key", "", "", http.StatusServiceUnavailable, "PIPELINE_NOT_CONFIGURED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sendPipeline(setupPipelineRouter(tt.configured), tt.sent)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if code := errorCodeOf(t, rec); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}
