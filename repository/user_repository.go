package repository

import (
	"errors"
	"time"

	"github.com/jsrice7391/redeemer-recovery/domain/entity"
	domainErrors "github.com/jsrice7391/redeemer-recovery/domain/errors"
	domainRepo "github.com/jsrice7391/redeemer-recovery/domain/repository"

	"gorm.io/gorm"
)

// userRepository GORM 实现 UserRepository 接口
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 构造函数
func NewUserRepository(db *gorm.DB) domainRepo.UserRepository {
	return &userRepository{db: db}
}

// List 查询全部用户，最新创建的排在最前
// created_at 相同时按 id 倒序，保证排序稳定
func (r *userRepository) List() ([]entity.User, error) {
	users := make([]entity.User, 0)
	err := r.db.Order("created_at DESC, id DESC").Find(&users).Error
	return users, err
}

// GetByID 根据主键查询用户
func (r *userRepository) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // 返回 nil 表示不存在，调用方需处理
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱查询用户（精确匹配，不做大小写归一化）
func (r *userRepository) GetByEmail(email string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create 插入新用户
// 依赖 bootstrap 中开启的 TranslateError，把数据库唯一约束冲突
// 翻译成 gorm.ErrDuplicatedKey，再映射为业务层的 ErrEmailConflict
func (r *userRepository) Create(user *entity.User) error {
	err := r.db.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainErrors.ErrEmailConflict
	}
	return err
}

// Update 部分更新指定字段
// ⚠️ 禁止使用 GORM Save，它会覆盖未传入的列
// 无论 fields 是否为空都显式写入 updated_at，保证"空更新也推进时间戳"的语义
func (r *userRepository) Update(id uint, fields map[string]interface{}) (*entity.User, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.Model(&entity.User{}).Where("id = ?", id).Updates(updates)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return nil, domainErrors.ErrEmailConflict
	}
	if result.Error != nil {
		return nil, result.Error
	}

	// RowsAffected == 0 说明记录不存在
	// 邮箱改成自己当前的值时 UPDATE 仍然命中该行，不会误判
	if result.RowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(id)
}

// Delete 硬删除用户，返回是否真的删除了记录
func (r *userRepository) Delete(id uint) (bool, error) {
	result := r.db.Where("id = ?", id).Delete(&entity.User{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
