package model

// UserRole 令牌中携带的角色，本服务不保存用户
type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)
