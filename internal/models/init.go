package models

import (
	"errors"
	"strings"

	"github.com/milhas-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultAdminPassword = "admin123"

// InitDefaultAdmin 首次启动时创建超级管理员
func InitDefaultAdmin(db *gorm.DB, username, password string) (*Admin, error) {
	if db == nil {
		return nil, errors.New("database not initialized")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = "admin"
	}

	var existing Admin
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	admin := &Admin{
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		IsSuper:      true,
	}
	if err := db.Create(admin).Error; err != nil {
		return nil, err
	}
	if password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
	} else {
		logger.Infow("default_admin_created", "username", username)
	}
	return admin, nil
}
