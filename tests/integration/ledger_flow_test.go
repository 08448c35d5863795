package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestLedgerFlow_TransactionsAndReports(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "ledger@test.com", "password123")

	salary := app.createCategory(t, token, "Main Job")
	rent := app.createCategory(t, token, "Flat")
	food := app.createCategory(t, token, "Food Shop")

	// January 2024: income 1000.00, expenses 600.00 + 150.00 + 250.00
	app.createTransaction(t, token, salary, "income", 100000, "2024-01-01")
	app.createTransaction(t, token, rent, "expense", 60000, "2024-01-02")
	app.createTransaction(t, token, food, "expense", 15000, "2024-01-15")
	foodID := app.createTransaction(t, token, food, "expense", 25000, "2024-01-31")
	// February 2024
	app.createTransaction(t, token, salary, "income", 120000, "2024-02-01")
	app.createTransaction(t, token, food, "expense", 30000, "2024-02-10")

	// Step 1: Monthly summary
	rec := app.request("GET", "/api/v1/reports/monthly-summary/2024/1", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["income_total"].(float64) != 100000 || summary["expense_total"].(float64) != 100000 {
		t.Errorf("unexpected January totals: %v", summary)
	}
	if summary["balance"].(float64) != 0 || summary["transaction_count"].(float64) != 4 {
		t.Errorf("unexpected January balance/count: %v", summary)
	}
	if summary["month_name"] != "January" {
		t.Errorf("expected January, got %v", summary["month_name"])
	}

	// Step 2: Category breakdown, largest first, percentages of expenses
	rec = app.request("GET", "/api/v1/reports/category-breakdown/2024/1", "", token)
	items := parseJSON(t, rec)["categories"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 expense categories, got %d", len(items))
	}
	first := items[0].(map[string]interface{})
	second := items[1].(map[string]interface{})
	if first["category_name"] != "Flat" || first["percentage"].(float64) != 60 {
		t.Errorf("unexpected first item: %v", first)
	}
	if second["amount"].(float64) != 40000 || second["percentage"].(float64) != 40 {
		t.Errorf("unexpected second item: %v", second)
	}

	// Step 3: Yearly comparison always has twelve months
	rec = app.request("GET", "/api/v1/reports/yearly-comparison/2024", "", token)
	months := parseJSON(t, rec)["months"].([]interface{})
	if len(months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(months))
	}
	feb := months[1].(map[string]interface{})
	if feb["income"].(float64) != 120000 || feb["expenses"].(float64) != 30000 {
		t.Errorf("unexpected February comparison: %v", feb)
	}
	if dec := months[11].(map[string]interface{}); dec["income"].(float64) != 0 {
		t.Errorf("expected empty December, got %v", dec)
	}

	// Step 4: Filtered listing and stats
	rec = app.request("GET", "/api/v1/transactions?year=2024&month=1&type=expense", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if total := parseJSON(t, rec)["total_items"].(float64); total != 3 {
		t.Errorf("expected 3 January expenses, got %v", total)
	}

	rec = app.request("GET", fmt.Sprintf("/api/v1/transactions/stats?category_id=%s", food), "", token)
	stats := parseJSON(t, rec)["stats"].(map[string]interface{})
	if stats["expense_total"].(float64) != 70000 || stats["transaction_count"].(float64) != 3 {
		t.Errorf("unexpected food stats: %v", stats)
	}

	// Step 5: Editing a transaction moves it between months
	rec = app.request("PUT", "/api/v1/transactions/"+foodID, `{"date":"2024-02-01","amount":20000}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 updating transaction, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = app.request("GET", "/api/v1/reports/monthly-summary/2024/2", "", token)
	summary = parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["expense_total"].(float64) != 50000 {
		t.Errorf("expected 50000 February expenses after edit, got %v", summary["expense_total"])
	}

	// Step 6: Deleting removes it from every report
	rec = app.request("DELETE", "/api/v1/transactions/"+foodID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting transaction, got %d", rec.Code)
	}
	rec = app.request("GET", "/api/v1/reports/monthly-summary/2024/2", "", token)
	summary = parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["expense_total"].(float64) != 30000 {
		t.Errorf("expected 30000 after delete, got %v", summary["expense_total"])
	}
}

func TestLedgerFlow_CategoriesByType(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "types@test.com", "password123")

	job := app.createCategory(t, token, "Side Job")
	shop := app.createCategory(t, token, "Corner Shop")
	app.createCategory(t, token, "Never Used")

	app.createTransaction(t, token, job, "income", 5000, "2024-06-01")
	app.createTransaction(t, token, shop, "expense", 700, "2024-06-02")

	rec := app.request("GET", "/api/v1/categories/income", "", token)
	income := parseJSON(t, rec)["categories"].([]interface{})
	if len(income) != 1 || income[0].(map[string]interface{})["name"] != "Side Job" {
		t.Errorf("unexpected income categories: %v", income)
	}

	rec = app.request("GET", "/api/v1/categories/expense", "", token)
	expense := parseJSON(t, rec)["categories"].([]interface{})
	if len(expense) != 1 || expense[0].(map[string]interface{})["name"] != "Corner Shop" {
		t.Errorf("unexpected expense categories: %v", expense)
	}
}

func TestLedgerFlow_Validation(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "valid@test.com", "password123")
	cat := app.createCategory(t, token, "Checks")

	cases := []struct {
		name string
		body string
		code int
	}{
		{"zero amount", fmt.Sprintf(`{"category_id":%q,"type":"expense","amount":0}`, cat), http.StatusBadRequest},
		{"negative amount", fmt.Sprintf(`{"category_id":%q,"type":"expense","amount":-5}`, cat), http.StatusBadRequest},
		{"bad type", fmt.Sprintf(`{"category_id":%q,"type":"transfer","amount":5}`, cat), http.StatusBadRequest},
		{"bad date", fmt.Sprintf(`{"category_id":%q,"type":"expense","amount":5,"date":"yesterday"}`, cat), http.StatusBadRequest},
		{"unknown category", `{"category_id":"0190a1b2-c3d4-7e5f-8a9b-000000000000","type":"expense","amount":5}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.request("POST", "/api/v1/transactions", tc.body, token)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLedgerFlow_UserIsolation(t *testing.T) {
	app := setupApp(t)
	aliceToken, _ := app.registerUser(t, "alice@test.com", "password123")
	bobToken, _ := app.registerUser(t, "bob@test.com", "password123")

	cat := app.createCategory(t, aliceToken, "Alice Only")
	txID := app.createTransaction(t, aliceToken, cat, "expense", 1234, "2024-03-03")

	// Bob cannot see or change Alice's data, and learns nothing about it
	for _, tc := range []struct{ method, path, body string }{
		{"GET", "/api/v1/transactions/" + txID, ""},
		{"PUT", "/api/v1/transactions/" + txID, `{"amount":1}`},
		{"DELETE", "/api/v1/transactions/" + txID, ""},
		{"GET", "/api/v1/categories/" + cat, ""},
		{"DELETE", "/api/v1/categories/" + cat, ""},
	} {
		rec := app.request(tc.method, tc.path, tc.body, bobToken)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}

	// Bob's reports do not include Alice's spending
	rec := app.request("GET", "/api/v1/reports/monthly-summary/2024/3", "", bobToken)
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["expense_total"].(float64) != 0 {
		t.Errorf("expected Bob's March to be empty, got %v", summary)
	}

	// Alice's transaction is untouched
	rec = app.request("GET", "/api/v1/transactions/"+txID, "", aliceToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", rec.Code)
	}
	if amount := parseJSON(t, rec)["transaction"].(map[string]interface{})["amount"].(float64); amount != 1234 {
		t.Errorf("expected amount 1234, got %v", amount)
	}
}
