package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/config"
	"tally/internal/ingest"
	"tally/internal/services"
	"tally/internal/store"
)

const statementCSV = "Transaction Date,Transaction Type,Sort Code,Account Number,Transaction Description,Debit Amount,Credit Amount,Balance\n" +
	"15/03/2024,DEB,'11-22-33,87654321,TESCO STORES 1234,12.50,,987.50\n" +
	"14/03/2024,FPI,'11-22-33,87654321,ACME PAYROLL,,\"£2,000.00\",1000.00\n" +
	"16/03/2024,DEB,'11-22-33,87654321,tesco petrol,30.00,,957.50\n"

const badDateCSV = "Transaction Date,Transaction Type,Sort Code,Account Number,Transaction Description,Debit Amount,Credit Amount,Balance\n" +
	"2024-03-15,DEB,'11-22-33,87654321,COFFEE,3.20,,996.80\n"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		Port:               "8080",
		MaxUploadSizeBytes: 10 << 20,
		UploadsPerMinute:   1000,
	}
	importer := services.NewImportService(ingest.New(nil), nil, nil, nil)
	srv := NewServer(cfg, store.NewRegistry(nil), importer)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func uploadFiles(t *testing.T, c *http.Client, baseURL string, files map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	mw.Close()

	resp, err := c.Post(baseURL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestUploadAndQuery(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	resp := uploadFiles(t, c, ts.URL, map[string]string{
		"march.csv": statementCSV,
		"bad.csv":   badDateCSV,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var uploaded struct {
		Results []struct {
			File    string `json:"file"`
			Rows    int    `json:"rows"`
			Skipped bool   `json:"skipped"`
			Error   string `json:"error"`
		} `json:"results"`
	}
	decodeBody(t, resp, &uploaded)
	if len(uploaded.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(uploaded.Results))
	}
	byFile := map[string]int{}
	for i, res := range uploaded.Results {
		byFile[res.File] = i
	}
	good := uploaded.Results[byFile["march.csv"]]
	bad := uploaded.Results[byFile["bad.csv"]]
	if good.Error != "" || good.Rows != 3 {
		t.Errorf("march.csv: rows=%d error=%q", good.Rows, good.Error)
	}
	if bad.Error == "" || !strings.Contains(bad.Error, "DD/MM/YYYY") {
		t.Errorf("bad.csv error should name the date policy, got %q", bad.Error)
	}

	resp, err := c.Get(ts.URL + "/api/transactions")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var listed struct {
		Count        int `json:"count"`
		Transactions []struct {
			Index       int     `json:"index"`
			Date        string  `json:"date"`
			Description string  `json:"description"`
			Debit       float64 `json:"debit"`
			Credit      float64 `json:"credit"`
			Category    string  `json:"category"`
		} `json:"transactions"`
	}
	decodeBody(t, resp, &listed)
	if listed.Count != 3 {
		t.Fatalf("expected 3 transactions from the good file only, got %d", listed.Count)
	}
	first := listed.Transactions[0]
	if first.Date != "2024-03-14" || first.Credit != 2000.00 {
		t.Errorf("first transaction should be the earliest: %+v", first)
	}
	if first.Category != "Uncategorized" {
		t.Errorf("imported rows default to Uncategorized, got %q", first.Category)
	}

	resp, err = c.Get(ts.URL + "/api/summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	var summary struct {
		Debit  float64 `json:"debit"`
		Credit float64 `json:"credit"`
		Net    float64 `json:"net"`
	}
	decodeBody(t, resp, &summary)
	if summary.Debit != 42.50 || summary.Credit != 2000.00 || summary.Net != 1957.50 {
		t.Errorf("summary totals: %+v", summary)
	}
}

func TestUploadIdempotent(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	uploadFiles(t, c, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()
	resp := uploadFiles(t, c, ts.URL, map[string]string{"march-copy.csv": statementCSV})

	var uploaded struct {
		Results []struct {
			Skipped bool `json:"skipped"`
		} `json:"results"`
	}
	decodeBody(t, resp, &uploaded)
	if len(uploaded.Results) != 1 || !uploaded.Results[0].Skipped {
		t.Fatalf("re-upload of identical bytes should be skipped: %+v", uploaded.Results)
	}

	resp, err := c.Get(ts.URL + "/api/transactions")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var listed struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &listed)
	if listed.Count != 3 {
		t.Errorf("store must not grow on duplicate upload, got %d", listed.Count)
	}
}

func TestUploadRequiresFiles(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.Close()
	resp, err := c.Post(ts.URL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty upload status = %d, want 400", resp.StatusCode)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := newTestServer(t)
	alice := newClient(t)
	bob := newClient(t)

	uploadFiles(t, alice, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()

	resp, err := bob.Get(ts.URL + "/api/transactions")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var listed struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &listed)
	if listed.Count != 0 {
		t.Errorf("second session must not see the first session's data, got %d", listed.Count)
	}
}

func TestCategoriesEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	resp, err := c.Post(ts.URL+"/api/categories", "application/json",
		strings.NewReader(`{"name":"Groceries"}`))
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add category status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = c.Get(ts.URL + "/api/categories")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	var listed struct {
		Categories []string `json:"categories"`
	}
	decodeBody(t, resp, &listed)
	want := []string{"Uncategorized", "Groceries"}
	if len(listed.Categories) != 2 || listed.Categories[0] != want[0] || listed.Categories[1] != want[1] {
		t.Errorf("categories = %v, want %v", listed.Categories, want)
	}
}

func TestCategorizeDryRunThenApply(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	uploadFiles(t, c, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()

	categorize := func(body string) (int, bool) {
		resp, err := c.Post(ts.URL+"/api/categorize", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("categorize: %v", err)
		}
		var result struct {
			Matched int  `json:"matched"`
			Applied bool `json:"applied"`
		}
		decodeBody(t, resp, &result)
		return result.Matched, result.Applied
	}

	matched, applied := categorize(`{"category":"Groceries","description_contains":"tesco","dry_run":true}`)
	if matched != 2 || applied {
		t.Fatalf("dry run: matched=%d applied=%v", matched, applied)
	}

	matched, applied = categorize(`{"category":"Groceries","description_contains":"tesco"}`)
	if matched != 2 || !applied {
		t.Fatalf("apply: matched=%d applied=%v", matched, applied)
	}

	resp, err := c.Get(ts.URL + "/api/transactions?categories=Groceries")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var listed struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &listed)
	if listed.Count != 2 {
		t.Errorf("expected 2 Groceries transactions, got %d", listed.Count)
	}
}

func TestSetCategory(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	uploadFiles(t, c, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()

	put := func(path, body string) int {
		req, err := http.NewRequest(http.MethodPut, ts.URL+path, strings.NewReader(body))
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.Do(req)
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := put("/api/transactions/0/category", `{"category":"Income"}`); status != http.StatusNoContent {
		t.Errorf("set category status = %d, want 204", status)
	}
	if status := put("/api/transactions/99/category", `{"category":"Income"}`); status != http.StatusNotFound {
		t.Errorf("out-of-range index status = %d, want 404", status)
	}
	if status := put("/api/transactions/abc/category", `{"category":"Income"}`); status != http.StatusBadRequest {
		t.Errorf("non-numeric index status = %d, want 400", status)
	}

	resp, err := c.Get(ts.URL + "/api/transactions?categories=Income")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var listed struct {
		Transactions []struct {
			Index       int    `json:"index"`
			Description string `json:"description"`
		} `json:"transactions"`
	}
	decodeBody(t, resp, &listed)
	if len(listed.Transactions) != 1 || listed.Transactions[0].Index != 0 {
		t.Fatalf("expected the edit on index 0, got %+v", listed.Transactions)
	}
	if listed.Transactions[0].Description != "ACME PAYROLL" {
		t.Errorf("index 0 should be the earliest transaction, got %q", listed.Transactions[0].Description)
	}
}

func TestRemoveSource(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	uploadFiles(t, c, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/sources?name=march.csv", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("delete source: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, err = c.Get(ts.URL + "/api/transactions")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var listed struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &listed)
	if listed.Count != 0 {
		t.Errorf("expected empty store after source removal, got %d", listed.Count)
	}

	// removal is idempotent
	resp, err = c.Do(req)
	if err != nil {
		t.Fatalf("delete source again: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("repeat delete status = %d, want 204", resp.StatusCode)
	}
}

func TestFilterValidation(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	for _, path := range []string{
		"/api/transactions?from=15-03-2024",
		"/api/summary?payday=yesterday",
		"/api/timeseries?payday=2024-03-01&cycle_days=abc",
	} {
		resp, err := c.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestPayPeriodFilter(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	uploadFiles(t, c, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()

	resp, err := c.Get(ts.URL + "/api/transactions?payday=2024-03-14&cycle_days=7")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	var listed struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &listed)
	if listed.Count != 3 {
		t.Errorf("all three transactions fall in the week from payday, got %d", listed.Count)
	}

	resp, err = c.Get(ts.URL + "/api/transactions?payday=2024-04-01&cycle_days=7")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	decodeBody(t, resp, &listed)
	if listed.Count != 0 {
		t.Errorf("april pay period should be empty, got %d", listed.Count)
	}
}

func TestDropSession(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	uploadFiles(t, c, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/session", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("drop session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("drop status = %d, want 204", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("missing hardening headers, X-Content-Type-Options = %q", got)
	}
}

func TestSummaryUsesCacheAcrossMutations(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	uploadFiles(t, c, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()

	get := func() float64 {
		resp, err := c.Get(ts.URL + "/api/summary")
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		var s struct {
			Debit float64 `json:"debit"`
		}
		decodeBody(t, resp, &s)
		return s.Debit
	}

	if got := get(); got != 42.50 {
		t.Fatalf("summary debit = %v", got)
	}
	// cached second read
	if got := get(); got != 42.50 {
		t.Fatalf("cached summary debit = %v", got)
	}

	// a mutation bumps the store version, so the next read must not be stale
	resp, err := c.Post(ts.URL+"/api/categorize", "application/json",
		strings.NewReader(`{"category":"Groceries","description_contains":"tesco"}`))
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	resp.Body.Close()
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/sources?name=march.csv", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if resp, err = c.Do(req); err != nil {
		t.Fatalf("delete source: %v", err)
	}
	resp.Body.Close()

	if got := get(); got != 0 {
		t.Fatalf("summary after source removal = %v, want 0", got)
	}
}

func TestTimeSeries(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	uploadFiles(t, c, ts.URL, map[string]string{"march.csv": statementCSV}).Body.Close()

	resp, err := c.Get(ts.URL + "/api/timeseries")
	if err != nil {
		t.Fatalf("timeseries: %v", err)
	}
	var got struct {
		Series []struct {
			Date   string  `json:"date"`
			Debit  float64 `json:"debit"`
			Credit float64 `json:"credit"`
		} `json:"series"`
	}
	decodeBody(t, resp, &got)
	if len(got.Series) != 3 {
		t.Fatalf("expected 3 daily points, got %d", len(got.Series))
	}
	for i := 1; i < len(got.Series); i++ {
		if got.Series[i].Date <= got.Series[i-1].Date {
			t.Fatalf("series not ascending: %v", got.Series)
		}
	}
	if got.Series[0].Date != "2024-03-14" || got.Series[0].Credit != 2000.00 {
		t.Errorf("first point: %+v", got.Series[0])
	}
}

func TestUploadRateLimit(t *testing.T) {
	cfg := config.Config{
		Port:               "8080",
		MaxUploadSizeBytes: 10 << 20,
		UploadsPerMinute:   2,
	}
	importer := services.NewImportService(ingest.New(nil), nil, nil, nil)
	srv := NewServer(cfg, store.NewRegistry(nil), importer)
	ts := httptest.NewServer(srv.Server.Handler)
	defer ts.Close()
	c := newClient(t)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := uploadFiles(t, c, ts.URL, map[string]string{
			fmt.Sprintf("file-%d.csv", i): statementCSV,
		})
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("first uploads should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third upload should be rate limited, got %v", statuses)
	}
}
