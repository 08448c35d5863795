package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"budgetapp/internal/models"
)

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	user := &models.User{Email: "auth@example.com"}
	user.ID = "0190f3c2-0000-7000-8000-000000000001"
	token, _, err := GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid_token", "Bearer " + token, http.StatusOK},
		{"missing_header", "", http.StatusUnauthorized},
		{"wrong_scheme", "Token " + token, http.StatusUnauthorized},
		{"garbage_token", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	router := setupAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				body := parseBody(t, rec)
				if body["user_id"] != user.ID {
					t.Errorf("user_id = %v, want %s", body["user_id"], user.ID)
				}
			}
		})
	}
}
