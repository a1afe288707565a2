package models

import (
	"strings"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const defaultAdminPassword = "admin123"

// InitDefaultUser 初始化默认管理员账号
func InitDefaultUser(username, password string) error {
	var count int64
	if err := DB.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		Role:         constants.UserRoleAdmin,
		IsActive:     true,
	}
	if err := DB.Create(&user).Error; err != nil {
		return err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_user_created_with_default_password", "username", username)
	} else {
		logger.Infow("default_user_created", "username", username)
	}
	return nil
}
