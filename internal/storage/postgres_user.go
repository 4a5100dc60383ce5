package storage

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

const userEntity = "user"

// CreateUser inserts a new account. A taken email maps to apperrors.ErrDuplicate.
func (r *PostgresRepo) CreateUser(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	startTime := utils.Now()
	err := r.db.WithContext(ctx).Create(user).Error
	observer.ObserveDbOperationDuration("create", userEntity, time.Since(startTime), err)
	if err != nil {
		mapped := checkConstraintViolation(err)
		logger.FromContext(ctx).Warn("Failed to create user", zap.Error(mapped))
		return mapped
	}
	return nil
}

// FindUserByEmail loads an account by its (case-insensitive) email.
func (r *PostgresRepo) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	startTime := utils.Now()
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	observer.ObserveDbOperationDuration("find_by_email", userEntity, time.Since(startTime), err)
	if err != nil {
		return nil, checkConstraintViolation(err)
	}
	return &user, nil
}
