package service

import (
	"elearning_backend/internal/model"
	"elearning_backend/internal/repository"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService 用户资料与角色管理
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

// UpdateProfileRequest 只允许修改展示资料，邮箱和角色不可自助修改
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Avatar    *string `json:"avatar"`
}

type UpdateRoleRequest struct {
	Role model.UserRole `json:"role" binding:"required"`
}

func (s *UserService) GetUsers(filter repository.UserFilter, page, limit int) ([]model.User, int64, error) {
	if filter.Role != "" && !validRole(filter.Role) {
		return nil, 0, util.NewValidation("Invalid role %q", filter.Role)
	}
	return s.UserRepo.ListUsers(filter, page, limit)
}

func (s *UserService) GetUser(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(id uint, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if len(name) > 100 {
			return nil, util.NewValidation("First name must be at most 100 characters")
		}
		user.FirstName = name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if len(name) > 100 {
			return nil, util.NewValidation("Last name must be at most 100 characters")
		}
		user.LastName = name
	}
	if req.Avatar != nil {
		if len(*req.Avatar) > 255 {
			return nil, util.NewValidation("Avatar URL must be at most 255 characters")
		}
		user.Avatar = *req.Avatar
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateRole 管理员不能修改自己的角色，避免系统里没有管理员
func (s *UserService) UpdateRole(adminID, id uint, role model.UserRole) (*model.User, error) {
	if !validRole(role) {
		return nil, util.NewValidation("Invalid role %q", role)
	}
	if adminID == id {
		return nil, util.NewValidation("You cannot change your own role")
	}

	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	previous := user.Role
	user.Role = role
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	logger.L().Info("user role changed",
		zap.Uint("userId", id),
		zap.String("from", string(previous)),
		zap.String("to", string(role)),
		zap.Uint("by", adminID),
	)
	return user, nil
}

func validRole(role model.UserRole) bool {
	switch role {
	case model.Student, model.Instructor, model.Admin:
		return true
	}
	return false
}
