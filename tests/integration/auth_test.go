package integration

import (
	"net/http"
	"testing"
)

func TestAuthFlow_RegisterLoginProfile(t *testing.T) {
	app := setupApp(t)

	// Step 1: Register
	accessToken, userID := app.registerUser(t, "auth@test.com", "password123")
	if accessToken == "" {
		t.Fatal("expected non-empty token from registration")
	}
	if userID == "" {
		t.Fatal("expected non-empty user ID")
	}

	// Step 2: Login with same credentials
	loginAccess := app.loginUser(t, "auth@test.com", "password123")
	if loginAccess == "" {
		t.Fatal("expected non-empty token from login")
	}

	// Step 3: Access profile with login access token
	rec := app.request("GET", "/api/v1/profile", "", loginAccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["email"] != "auth@test.com" {
		t.Errorf("expected email auth@test.com, got %v", user["email"])
	}
	if user["id"] != userID {
		t.Errorf("expected id %s, got %v", userID, user["id"])
	}
	if user["last_login_at"] == nil {
		t.Error("expected last_login_at to be set after login")
	}
}

func TestAuthFlow_RegisterProvisionsDefaultCategories(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "defaults@test.com", "password123")

	rec := app.request("GET", "/api/v1/categories?page_size=100", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := parseJSON(t, rec)["data"].([]interface{})
	if len(data) != 29 {
		t.Fatalf("expected 29 default categories, got %d", len(data))
	}
}

func TestAuthFlow_RegisterDuplicateEmail(t *testing.T) {
	app := setupApp(t)

	app.registerUser(t, "dup@test.com", "password123")

	// Same address, different case
	rec := app.request("POST", "/api/v1/auth/register",
		`{"email":"DUP@test.com","password":"password123"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "DUPLICATE_EMAIL" {
		t.Errorf("expected DUPLICATE_EMAIL, got %v", code)
	}
}

func TestAuthFlow_LoginWrongPassword(t *testing.T) {
	app := setupApp(t)

	app.registerUser(t, "wrong@test.com", "password123")

	for _, body := range []string{
		`{"email":"wrong@test.com","password":"wrongpassword"}`,
		`{"email":"nobody@test.com","password":"password123"}`,
	} {
		rec := app.request("POST", "/api/v1/auth/login", body, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
		if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
			t.Errorf("expected INVALID_CREDENTIALS, got %v", code)
		}
	}
}

func TestAuthFlow_ProfileWithoutAuth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/v1/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthFlow_ProfileWithInvalidToken(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/v1/profile", "", "invalid-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
