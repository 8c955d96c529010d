package model

import (
	"time"
)

type UserRole string

const (
	Student    UserRole = "student"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

// swagger:model User
// 注册登录由独立的认证服务负责，这里只保存课程和测验需要的资料
type User struct {
	BaseModel
	FirstName string     `gorm:"size:100" json:"firstName"`
	LastName  string     `gorm:"size:100" json:"lastName"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role      UserRole   `gorm:"size:20;not null" json:"role"`
	Avatar    string     `gorm:"size:255" json:"avatar"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	return name
}
