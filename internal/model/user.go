// Package model はドメインモデルを定義する。
package model

// User はログイン中のユーザーを表す。
// 永続化キー "user" にこの形式のJSONで保存される。
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	Role      Role   `json:"role,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Role はユーザーの権限種別を表す。
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)
