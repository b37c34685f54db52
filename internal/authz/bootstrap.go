package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role:     "payout_operator",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/payouts/jobs", Action: "POST"},
				{Object: "/admin/payouts/jobs/:id/step", Action: "POST"},
				{Object: ExportObject("commissions_payout_receipts"), Action: ExportAction},
				{Object: ExportObject("commissions_send_payout_receipts"), Action: ExportAction},
				{Object: "/admin/payments/:id/commission-alerts", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     "payout_manager",
			Inherits: []string{"payout_operator"},
			Policies: []Policy{
				{Object: "/admin/payouts/settings", Action: "PUT"},
				{Object: "/admin/users/:id/payout-profile", Action: "PUT"},
				{Object: "/admin/settings/smtp", Action: "PUT"},
				{Object: "/admin/settings/smtp/test", Action: "POST"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色、继承关系与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return fmt.Errorf("create builtin role %s failed: %w", seed.Role, err)
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if NormalizeAction(policy.Action) == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return err
			}
		}
	}
	return nil
}
