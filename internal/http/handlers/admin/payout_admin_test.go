package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/http/response"
	"github.com/dujiao-next/payout-receipts/internal/models"
	"github.com/dujiao-next/payout-receipts/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type apiResponse struct {
	StatusCode int                 `json:"status_code"`
	Msg        string              `json:"msg"`
	Data       json.RawMessage     `json:"data"`
	Pagination response.Pagination `json:"pagination"`
}

func money(value string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(value))
}

func setupPayoutHandlerTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_payout_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.BaseURL = "https://shop.example.com"
	cfg.JWT.SecretKey = "handler-test-secret"
	cfg.Upload.Dir = t.TempDir()
	cfg.Payout.PageSize = 10
	cfg.Payout.CalcBase = constants.CalcBaseSubtotal
	cfg.Payout.DefaultCurrency = "USD"
	cfg.Payout.StagingDriver = constants.StagingDriverFile

	seedPayoutHandlerData(t, db)
	container := provider.NewContainer(cfg, db)
	t.Cleanup(container.Close)
	return New(container), db
}

func seedPayoutHandlerData(t *testing.T, db *gorm.DB) {
	t.Helper()
	create := func(value interface{}) {
		if err := db.Create(value).Error; err != nil {
			t.Fatalf("seed %T failed: %v", value, err)
		}
	}
	create(&models.Admin{ID: 1, Username: "root", PasswordHash: "x", IsSuper: true})
	create(&models.Admin{ID: 2, Username: "viewer", PasswordHash: "x"})
	create(&models.User{ID: 1, Email: "alice@example.com", Username: "alice", PayoutEmail: "alice.pay@example.com", Status: constants.UserStatusActive})
	create(&models.User{ID: 2, Email: "bob@example.com", Username: "bob", Status: constants.UserStatusActive})
	create(&models.Product{ID: 1, Slug: "ebook", Title: "Ebook", PriceAmount: money("20")})

	completed := time.Date(2024, 3, 3, 12, 0, 0, 0, time.Local)
	create(&models.Payment{
		ID: 10, Email: "buyer@example.com", ReceiptID: "rcpt-10", Currency: "USD", Total: money("20"), Status: "complete",
		CompletedAt: &completed,
		CartItems: []models.PaymentCartItem{
			{CartIndex: 0, DownloadID: 1, Quantity: 1, ItemPrice: money("20"), Subtotal: money("20"), Price: money("20")},
		},
	})
	create(&models.Commission{ID: 1, UserID: 1, DownloadID: 1, PaymentID: 10, Amount: money("6"), Rate: money("30"),
		Type: constants.CommissionTypePercentage, Currency: "USD", Status: constants.CommissionStatusUnpaid, CreatedAt: completed})
	create(&models.Commission{ID: 2, UserID: 2, DownloadID: 1, PaymentID: 10, Amount: money("2"), Rate: money("10"),
		Type: constants.CommissionTypePercentage, Currency: "USD", Status: constants.CommissionStatusRevoked, CreatedAt: completed})
}

func newPayoutTestRouter(h *Handler, adminID uint) *gin.Engine {
	r := gin.New()
	authed := r.Group("/api/v1/admin")
	authed.Use(func(c *gin.Context) {
		if adminID > 0 {
			c.Set("admin_id", adminID)
		}
		c.Next()
	})
	authed.POST("/payouts/jobs", h.CreatePayoutJob)
	authed.POST("/payouts/jobs/:id/step", h.RunPayoutJobStep)
	authed.GET("/payouts/jobs/:id", h.GetPayoutJob)
	authed.GET("/payouts/settings", h.GetPayoutSettings)
	authed.PUT("/payouts/settings", h.UpdatePayoutSettings)
	authed.GET("/payouts/template-tags", h.GetPayoutTemplateTags)
	authed.GET("/commissions", h.GetAdminCommissions)
	authed.GET("/commissions/statuses", h.GetCommissionStatuses)
	authed.PUT("/users/:id/payout-profile", h.UpdateUserPayoutProfile)
	authed.POST("/payments/:id/commission-alerts", h.TriggerCommissionAlerts)
	r.GET("/api/v1/admin/payouts/jobs/:id/download", h.DownloadPayoutFile)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
		}
	}
	return w, resp
}

func TestPayoutJobLifecycleAndDownload(t *testing.T) {
	h, _ := setupPayoutHandlerTest(t)
	r := newPayoutTestRouter(h, 1)

	_, resp := doJSON(t, r, http.MethodPost, "/api/v1/admin/payouts/jobs", gin.H{
		"type":  constants.ExportTypePayoutReceipts,
		"start": "03/01/2024",
		"end":   "03/31/2024",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create job failed: %+v", resp)
	}
	var created struct {
		Job    models.BatchJob `json:"job"`
		Result struct {
			Step        int    `json:"step"`
			Done        bool   `json:"done"`
			DownloadURL string `json:"download_url"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode job failed: %v", err)
	}
	if created.Job.ID == "" || created.Result.Step != 1 {
		t.Fatalf("unexpected create payload %s", string(resp.Data))
	}

	downloadURL := created.Result.DownloadURL
	for step := 2; !created.Result.Done; step++ {
		if step > 10 {
			t.Fatalf("job did not finish")
		}
		_, stepResp := doJSON(t, r, http.MethodPost, "/api/v1/admin/payouts/jobs/"+created.Job.ID+"/step", gin.H{"step": step})
		if stepResp.StatusCode != 0 {
			t.Fatalf("step %d failed: %+v", step, stepResp)
		}
		if err := json.Unmarshal(stepResp.Data, &created.Result); err != nil {
			t.Fatalf("decode step failed: %v", err)
		}
		downloadURL = created.Result.DownloadURL
	}
	if !strings.HasPrefix(downloadURL, "https://shop.example.com/api/v1/admin/payouts/jobs/"+created.Job.ID+"/download?token=") {
		t.Fatalf("unexpected download url %q", downloadURL)
	}

	_, jobResp := doJSON(t, r, http.MethodGet, "/api/v1/admin/payouts/jobs/"+created.Job.ID, nil)
	if jobResp.StatusCode != 0 || !strings.Contains(string(jobResp.Data), `"status":"done"`) || !strings.Contains(string(jobResp.Data), "download_url") {
		t.Fatalf("unexpected job detail %s", string(jobResp.Data))
	}

	parsed, err := url.Parse(downloadURL)
	if err != nil {
		t.Fatalf("parse download url failed: %v", err)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, parsed.RequestURI(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "edd-commission-payout-") {
		t.Fatalf("unexpected content disposition %q", w.Header().Get("Content-Disposition"))
	}
	if got := w.Body.String(); got != "\"alice.pay@example.com\",\"6.00\",\"1\"\r\n" {
		t.Fatalf("unexpected payout file %q", got)
	}

	_, badToken := doJSON(t, r, http.MethodGet, "/api/v1/admin/payouts/jobs/"+created.Job.ID+"/download?token=bad", nil)
	if badToken.StatusCode != response.CodeUnauthorized {
		t.Fatalf("bad token want 401 got %d", badToken.StatusCode)
	}
}

func TestPayoutJobErrors(t *testing.T) {
	h, _ := setupPayoutHandlerTest(t)
	root := newPayoutTestRouter(h, 1)
	viewer := newPayoutTestRouter(h, 2)

	cases := []struct {
		name   string
		router *gin.Engine
		body   gin.H
		want   int
	}{
		{name: "unknown type", router: root, body: gin.H{"type": "orders"}, want: response.CodeBadRequest},
		{name: "bad date", router: root, body: gin.H{"type": constants.ExportTypePayoutReceipts, "start": "31-31-2024", "end": "03/31/2024"}, want: response.CodeBadRequest},
		{name: "bad minimum", router: root, body: gin.H{"type": constants.ExportTypePayoutReceipts, "minimum": "abc"}, want: response.CodeBadRequest},
		{name: "forbidden", router: viewer, body: gin.H{"type": constants.ExportTypePayoutReceipts}, want: response.CodeForbidden},
		{name: "missing type", router: root, body: gin.H{}, want: response.CodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp := doJSON(t, tc.router, http.MethodPost, "/api/v1/admin/payouts/jobs", tc.body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status_code want %d got %d (%s)", tc.want, resp.StatusCode, resp.Msg)
			}
		})
	}

	_, missing := doJSON(t, root, http.MethodGet, "/api/v1/admin/payouts/jobs/nope", nil)
	if missing.StatusCode != response.CodeNotFound {
		t.Fatalf("missing job want 404 got %d", missing.StatusCode)
	}
	_, badStep := doJSON(t, root, http.MethodPost, "/api/v1/admin/payouts/jobs/nope/step", gin.H{"step": 0})
	if badStep.StatusCode != response.CodeBadRequest {
		t.Fatalf("zero step want 400 got %d", badStep.StatusCode)
	}

	anonymous := newPayoutTestRouter(h, 0)
	_, unauth := doJSON(t, anonymous, http.MethodPost, "/api/v1/admin/payouts/jobs", gin.H{"type": constants.ExportTypePayoutReceipts})
	if unauth.StatusCode != response.CodeUnauthorized {
		t.Fatalf("anonymous want 401 got %d", unauth.StatusCode)
	}
}

func TestPayoutSettingsHandlers(t *testing.T) {
	h, _ := setupPayoutHandlerTest(t)
	r := newPayoutTestRouter(h, 1)

	_, updated := doJSON(t, r, http.MethodPut, "/api/v1/admin/payouts/settings", gin.H{
		"subject":     "Your payout",
		"admin_email": "owner@example.com",
	})
	if updated.StatusCode != 0 {
		t.Fatalf("update settings failed: %+v", updated)
	}

	_, fetched := doJSON(t, r, http.MethodGet, "/api/v1/admin/payouts/settings", nil)
	if fetched.StatusCode != 0 {
		t.Fatalf("get settings failed: %+v", fetched)
	}
	if !strings.Contains(string(fetched.Data), "Your payout") || !strings.Contains(string(fetched.Data), "owner@example.com") {
		t.Fatalf("settings were not persisted: %s", string(fetched.Data))
	}

	_, tags := doJSON(t, r, http.MethodGet, "/api/v1/admin/payouts/template-tags", nil)
	var vocab map[string]string
	if err := json.Unmarshal(tags.Data, &vocab); err != nil {
		t.Fatalf("decode tags failed: %v", err)
	}
	if !strings.Contains(vocab["payout_receipt"], "{commissions}") || !strings.Contains(vocab["sale_alert"], "{commissions}") || vocab["payout_report"] == "" {
		t.Fatalf("unexpected tag help %v", vocab)
	}
}

func TestCommissionHandlers(t *testing.T) {
	h, db := setupPayoutHandlerTest(t)
	r := newPayoutTestRouter(h, 1)

	_, list := doJSON(t, r, http.MethodGet, "/api/v1/admin/commissions?status=unpaid&page=1&page_size=10", nil)
	if list.StatusCode != 0 || list.Pagination.Total != 1 {
		t.Fatalf("unexpected commission list %+v", list)
	}
	_, byUser := doJSON(t, r, http.MethodGet, "/api/v1/admin/commissions?user_id=x", nil)
	if byUser.StatusCode != response.CodeBadRequest {
		t.Fatalf("invalid user id want 400 got %d", byUser.StatusCode)
	}

	_, statuses := doJSON(t, r, http.MethodGet, "/api/v1/admin/commissions/statuses", nil)
	if statuses.StatusCode != 0 || !strings.Contains(string(statuses.Data), constants.CommissionStatusRevoked) {
		t.Fatalf("unexpected statuses %s", string(statuses.Data))
	}

	_, profile := doJSON(t, r, http.MethodPut, "/api/v1/admin/users/2/payout-profile", gin.H{
		"payout_email":        " bob.pay@example.com ",
		"disable_sale_alerts": true,
	})
	if profile.StatusCode != 0 {
		t.Fatalf("update profile failed: %+v", profile)
	}
	var user models.User
	if err := db.First(&user, 2).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if user.PayoutEmail != "bob.pay@example.com" || !user.DisableSaleAlerts {
		t.Fatalf("profile not saved: %+v", user)
	}

	_, invalid := doJSON(t, r, http.MethodPut, "/api/v1/admin/users/2/payout-profile", gin.H{"payout_email": "nope"})
	if invalid.StatusCode != response.CodeBadRequest {
		t.Fatalf("invalid email want 400 got %d", invalid.StatusCode)
	}
	_, missingUser := doJSON(t, r, http.MethodPut, "/api/v1/admin/users/99/payout-profile", gin.H{})
	if missingUser.StatusCode != response.CodeNotFound {
		t.Fatalf("missing user want 404 got %d", missingUser.StatusCode)
	}

	_, missingPayment := doJSON(t, r, http.MethodPost, "/api/v1/admin/payments/999/commission-alerts", nil)
	if missingPayment.StatusCode != response.CodeNotFound {
		t.Fatalf("missing payment want 404 got %d", missingPayment.StatusCode)
	}
	_, badPayment := doJSON(t, r, http.MethodPost, "/api/v1/admin/payments/abc/commission-alerts", nil)
	if badPayment.StatusCode != response.CodeBadRequest {
		t.Fatalf("invalid payment id want 400 got %d", badPayment.StatusCode)
	}
}
