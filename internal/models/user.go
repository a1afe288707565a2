package models

import (
	"time"

	"gorm.io/gorm"
)

// User 后台用户表（调度员、管理员）
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                   // 主键
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`   // 登录账号
	DisplayName  string         `gorm:"type:varchar(120)" json:"display_name"`  // 显示名称
	PasswordHash string         `gorm:"not null" json:"-"`                      // 密码哈希（不返回给前端）
	Role         string         `gorm:"type:varchar(20);not null" json:"role"`  // 角色
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"` // 是否启用
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"`            // Token 版本（用于全量失效）
	LastLoginAt  *time.Time     `json:"last_login_at"`                          // 最后登录时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                // 创建时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                         // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
