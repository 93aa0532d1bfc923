package authz

import "fmt"

// 预置角色
const (
	RoleReadonlyAuditor = "readonly_auditor"
	RoleOperations      = "operations"
	RoleFinance         = "finance"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
// 运营维护分润方案与成本配置，财务负责重算、付款与 VIP 收款
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleReadonlyAuditor,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     RoleOperations,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/profit-share-plans", Action: "POST"},
				{Object: "/admin/profit-share-plans/:id/deactivate", Action: "POST"},
				{Object: "/admin/settings/program-costs", Action: "PUT"},
				{Object: "/admin/settings/program-costs", Action: "DELETE"},
				{Object: "/admin/vip/settings", Action: "PUT"},
			},
		},
		{
			Role:     RoleFinance,
			Inherits: []string{RoleReadonlyAuditor},
			Policies: []Policy{
				{Object: "/admin/payouts/recompute", Action: "POST"},
				{Object: "/admin/payouts/:id/mark-paid", Action: "POST"},
				{Object: "/admin/vip/payments", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return err
			}
		}
	}
	return nil
}
