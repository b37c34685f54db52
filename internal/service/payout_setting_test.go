package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/dujiao-next/payout-receipts/internal/config"
	"github.com/dujiao-next/payout-receipts/internal/constants"
	"github.com/dujiao-next/payout-receipts/internal/models"
)

func testPayoutConfig() config.PayoutConfig {
	return config.PayoutConfig{
		PageSize:   2,
		CalcBase:   constants.CalcBaseSubtotal,
		SiteName:   "Demo Shop",
		DateFormat: "2006-01-02",
		AdminEmail: "owner@example.com",
	}
}

func TestGetPayoutReceiptSettingDefaults(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())
	setting, err := svc.GetPayoutReceiptSetting(testPayoutConfig())
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if setting.Subject != "Payout Receipt" || setting.AdminSubject != "Payout Report" || setting.SaleAlertSubject != "New Sale!" {
		t.Fatalf("unexpected default subjects: %+v", setting)
	}
	if !setting.ShowAmounts || !setting.ShowCurrency || !setting.ShowSales {
		t.Fatalf("expected list flags enabled by default: %+v", setting)
	}
	if setting.AdminEmail != "owner@example.com" {
		t.Fatalf("expected admin email from config, got %q", setting.AdminEmail)
	}
	if !strings.Contains(setting.Message, "from Demo Shop!") {
		t.Fatalf("default message should embed site name: %q", setting.Message)
	}
	if setting.GroupedNotifications {
		t.Fatalf("grouped notifications should be off by default")
	}
}

func TestPatchPayoutReceiptSettingRestoresEmptySubject(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)
	cfg := testPayoutConfig()

	updated, err := svc.PatchPayoutReceiptSetting(cfg, PayoutReceiptSettingPatch{
		Subject:      ptrString("   "),
		Message:      ptrString("Hi {name}\n\n{commissions}"),
		ShowCurrency: ptrBool(false),
	})
	if err != nil {
		t.Fatalf("patch setting failed: %v", err)
	}
	if updated.Subject != "Payout Receipt" {
		t.Fatalf("expected empty subject to fall back, got %q", updated.Subject)
	}
	if updated.Message != "Hi {name}\n\n{commissions}" {
		t.Fatalf("message newlines should be kept, got %q", updated.Message)
	}

	reloaded, err := svc.GetPayoutReceiptSetting(cfg)
	if err != nil {
		t.Fatalf("reload setting failed: %v", err)
	}
	if reloaded.ShowCurrency {
		t.Fatalf("expected show_currency=false after reload")
	}
	if _, ok := repo.store[constants.SettingKeyPayoutReceiptConfig]; !ok {
		t.Fatalf("setting was not persisted")
	}
}

func TestPatchPayoutReceiptSettingRejectsInvalidAdminEmail(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())
	_, err := svc.PatchPayoutReceiptSetting(testPayoutConfig(), PayoutReceiptSettingPatch{
		AdminEmail: ptrString("not-an-email"),
	})
	if !errors.Is(err, ErrPayoutSettingInvalid) {
		t.Fatalf("expected ErrPayoutSettingInvalid, got %v", err)
	}
}

func TestGetSiteNamePrefersSettings(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)
	name, err := svc.GetSiteName("Fallback")
	if err != nil || name != "Fallback" {
		t.Fatalf("expected fallback name, got %q err=%v", name, err)
	}
	repo.store[constants.SettingKeySiteConfig] = models.JSON{"site_name": " Stored "}
	name, err = svc.GetSiteName("Fallback")
	if err != nil || name != "Stored" {
		t.Fatalf("expected stored name, got %q err=%v", name, err)
	}
}

func TestPendingNotificationStoreRoundTrip(t *testing.T) {
	repo := newMockSettingRepo()
	store := NewPendingNotificationStore(NewSettingService(repo), false)

	loaded, err := store.Load()
	if err != nil || loaded != nil {
		t.Fatalf("expected no pending list, got %+v err=%v", loaded, err)
	}

	if err := store.Save(PendingNotifications{
		Start:   "2024-01-01",
		End:     "2024-01-31",
		Status:  []string{"paid"},
		Minimum: "10",
		UserIDs: []uint{3, 7},
		Payees:  []PendingPayee{{UserID: 3, Currency: "usd"}, {UserID: 7, Currency: "EUR"}},
	}); err != nil {
		t.Fatalf("save pending failed: %v", err)
	}
	loaded, err = store.Load()
	if err != nil {
		t.Fatalf("load pending failed: %v", err)
	}
	if loaded == nil || len(loaded.UserIDs) != 2 || loaded.UserIDs[0] != 3 || loaded.UserIDs[1] != 7 {
		t.Fatalf("unexpected pending: %+v", loaded)
	}
	if loaded.Minimum != "10" || loaded.Start != "2024-01-01" || len(loaded.Status) != 1 {
		t.Fatalf("unexpected pending params: %+v", loaded)
	}
	if len(loaded.Payees) != 2 || loaded.Payees[0] != (PendingPayee{UserID: 3, Currency: "USD"}) || loaded.Payees[1] != (PendingPayee{UserID: 7, Currency: "EUR"}) {
		t.Fatalf("unexpected pending payees: %+v", loaded.Payees)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("delete pending failed: %v", err)
	}
	loaded, err = store.Load()
	if err != nil || loaded != nil {
		t.Fatalf("expected pending removed, got %+v err=%v", loaded, err)
	}
}

func TestPendingNotificationStoreLegacyProgressKey(t *testing.T) {
	repo := newMockSettingRepo()
	store := NewPendingNotificationStore(NewSettingService(repo), true)
	if err := store.Save(PendingNotifications{UserIDs: []uint{1, 2, 3}}); err != nil {
		t.Fatalf("save pending failed: %v", err)
	}
	progress, err := store.LoadForProgress()
	if err != nil {
		t.Fatalf("load progress failed: %v", err)
	}
	if progress != nil {
		t.Fatalf("legacy progress key should not see the new list, got %+v", progress)
	}
	loaded, err := store.Load()
	if err != nil || loaded == nil || len(loaded.UserIDs) != 3 {
		t.Fatalf("load should still read the new key, got %+v err=%v", loaded, err)
	}
	if loaded.Payees != nil {
		t.Fatalf("list saved without payees should not restrict receipts, got %+v", loaded.Payees)
	}
}
