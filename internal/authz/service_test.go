package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/payouts/jobs/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"ops"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/payouts/jobs/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceAdmin(1, "/api/v1/admin/payouts/jobs/42", "POST")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/commissions", "GET"); err != nil {
		t.Fatalf("grant ops policy failed: %v", err)
	}
	if err := svc.GrantRolePolicy("finance", "/admin/payouts/settings", "GET"); err != nil {
		t.Fatalf("grant finance policy failed: %v", err)
	}

	if err := svc.SetAdminRoles(2, []string{"ops"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:ops" {
		t.Fatalf("roles want [role:ops], got=%v", roles)
	}

	if err := svc.SetAdminRoles(2, []string{"finance"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:finance" {
		t.Fatalf("roles want [role:finance], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/commissions", "GET")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceAdmin(2, "/admin/payouts/settings", "GET")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/payouts/jobs/:id", want: "/admin/payouts/jobs/:id"},
		{in: "/admin/payouts/jobs/:id", want: "/admin/payouts/jobs/:id"},
		{in: "admin/commissions", want: "/admin/commissions"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:readonly_auditor": true,
		"role:payout_operator":  true,
		"role:payout_manager":   true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	if err := svc.SetAdminRoles(3, []string{"payout_operator"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(3, "/admin/payouts/settings", "GET")
	if err != nil {
		t.Fatalf("enforce inherited readonly failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected inherited readonly permission")
	}

	allow, err = svc.EnforceAdmin(3, "/admin/payouts/settings", "PUT")
	if err != nil {
		t.Fatalf("enforce readonly write failed: %v", err)
	}
	if allow {
		t.Fatalf("expected readonly inherited role deny write")
	}
}

func TestCanExportByRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	if err := svc.SetAdminRoles(4, []string{"readonly_auditor"}); err != nil {
		t.Fatalf("set auditor role failed: %v", err)
	}
	if err := svc.SetAdminRoles(5, []string{"payout_manager"}); err != nil {
		t.Fatalf("set manager role failed: %v", err)
	}

	allow, err := svc.CanExport(4, "commissions_payout_receipts")
	if err != nil {
		t.Fatalf("can export auditor failed: %v", err)
	}
	if allow {
		t.Fatalf("expected auditor export denied")
	}

	for _, exportType := range []string{"commissions_payout_receipts", "commissions_send_payout_receipts"} {
		allow, err = svc.CanExport(5, exportType)
		if err != nil {
			t.Fatalf("can export manager failed: %v", err)
		}
		if !allow {
			t.Fatalf("expected manager export allowed for %s", exportType)
		}
	}

	allow, err = svc.CanExport(5, "unknown_export")
	if err != nil {
		t.Fatalf("can export unknown failed: %v", err)
	}
	if allow {
		t.Fatalf("expected unknown export denied")
	}
}

func TestExportTypesForKeepsOrder(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("sender", ExportObject("commissions_send_payout_receipts"), ExportAction); err != nil {
		t.Fatalf("grant export policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(6, []string{"sender"}); err != nil {
		t.Fatalf("set sender role failed: %v", err)
	}

	types, err := svc.ExportTypesFor(6, []string{"commissions_payout_receipts", "commissions_send_payout_receipts"})
	if err != nil {
		t.Fatalf("export types failed: %v", err)
	}
	if len(types) != 1 || types[0] != "commissions_send_payout_receipts" {
		t.Fatalf("unexpected export types: %v", types)
	}
}

func TestGetAdminPoliciesIncludesInherited(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	if err := svc.SetAdminRoles(7, []string{"payout_operator"}); err != nil {
		t.Fatalf("set operator role failed: %v", err)
	}

	policies, err := svc.GetAdminPolicies(7)
	if err != nil {
		t.Fatalf("get admin policies failed: %v", err)
	}
	hasRead := false
	hasExport := false
	for _, policy := range policies {
		if policy.Subject == "role:readonly_auditor" && policy.Object == "/admin/*" && policy.Action == "GET" {
			hasRead = true
		}
		if policy.Object == ExportObject("commissions_payout_receipts") && policy.Action == ExportAction {
			hasExport = true
		}
	}
	if !hasRead || !hasExport {
		t.Fatalf("expected inherited read and export policies, got %+v", policies)
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := map[string]string{
		"payout manager": "role:payout_manager",
		"role:ops":       "role:ops",
		" readonly ":     "role:readonly",
	}
	for input, want := range cases {
		got, err := NormalizeRole(input)
		if err != nil {
			t.Fatalf("normalize %q failed: %v", input, err)
		}
		if got != want {
			t.Fatalf("normalize %q want %q got %q", input, want, got)
		}
	}
	for _, input := range []string{"", "  ", "role:"} {
		if _, err := NormalizeRole(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
