package repository

import "github.com/jsrice7391/redeemer-recovery/domain/entity"

// UserRepository 用户数据仓库接口
// 约定：查询不存在时返回 (nil, nil)，调用方需处理；只有真正的存储故障才返回 error
type UserRepository interface {
	// List 返回全部用户，按创建时间倒序（最新在前）
	List() ([]entity.User, error)

	// GetByID 根据主键获取用户，不存在返回 (nil, nil)
	GetByID(id uint) (*entity.User, error)

	// GetByEmail 根据邮箱获取用户（精确匹配），不存在返回 (nil, nil)
	GetByEmail(email string) (*entity.User, error)

	// Create 创建新用户，ID 与时间戳由存储层生成
	// 邮箱已存在时返回 ErrEmailConflict
	Create(user *entity.User) error

	// Update 部分更新：只应用 fields 中给出的列，并刷新 updated_at
	// ⚠️ 空 fields 也会刷新 updated_at
	// id 不存在返回 (nil, nil)；新邮箱与其他记录冲突返回 ErrEmailConflict
	Update(id uint, fields map[string]interface{}) (*entity.User, error)

	// Delete 删除用户，返回是否真的删除了记录
	// 记录不存在返回 (false, nil)，不算错误
	Delete(id uint) (bool, error)
}
