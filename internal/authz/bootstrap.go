package authz

import (
	"fmt"

	"github.com/tms-next/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
// planner 可查看全部数据并编辑规划；admin 另外可变更编排状态、删除装载计划、取消配送单
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.UserRolePlanner,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
				{Object: "/admin/planning-runs", Action: "POST"},
				{Object: "/admin/notifications/:id/read", Action: "POST"},
				{Object: "/admin/compositions/:id/load-plans", Action: "POST"},
				{Object: "/admin/compositions/:id/deliveries/assign", Action: "POST"},
				{Object: "/admin/compositions/:id/deliveries/unassign", Action: "POST"},
				{Object: "/admin/load-plans/:id/optimize", Action: "POST"},
				{Object: "/admin/deliveries/import", Action: "POST"},
				{Object: "/admin/deliveries/:id/geocode", Action: "POST"},
			},
		},
		{
			Role:     constants.UserRoleAdmin,
			Inherits: []string{constants.UserRolePlanner},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，重复执行不会产生重复策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	for _, seed := range BuiltinRoleSeeds() {
		for _, parent := range seed.Inherits {
			if err := s.InheritRole(seed.Role, parent); err != nil {
				return err
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(seed.Role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
