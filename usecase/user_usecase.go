package usecase

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jsrice7391/redeemer-recovery/domain/entity"
	domainErrors "github.com/jsrice7391/redeemer-recovery/domain/errors"
	"github.com/jsrice7391/redeemer-recovery/domain/repository"
	"github.com/jsrice7391/redeemer-recovery/internal/ws"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-playground/validator/v10"
)

// UserUseCase 用户业务逻辑层
// ✅ 注入 Hub，每次写操作成功后广播变更事件，
// 前端（管理面板）据此做实时刷新，无需轮询
type UserUseCase struct {
	repo     repository.UserRepository
	hub      *ws.Hub
	validate *validator.Validate
}

// NewUserUseCase 构造函数，依赖注入
func NewUserUseCase(repo repository.UserRepository, hub *ws.Hub) *UserUseCase {
	return &UserUseCase{
		repo:     repo,
		hub:      hub,
		validate: validator.New(),
	}
}

// ListUsers 返回全部用户，最新创建的在前
func (uc *UserUseCase) ListUsers() ([]entity.User, error) {
	return uc.repo.List()
}

// GetUser 根据主键获取用户，不存在返回 (nil, nil)
func (uc *UserUseCase) GetUser(id uint) (*entity.User, error) {
	return uc.repo.GetByID(id)
}

// GetUserByEmail 根据邮箱获取用户，不存在返回 (nil, nil)
// 提供服务端点查询，避免客户端拉全量列表再过滤
func (uc *UserUseCase) GetUserByEmail(email string) (*entity.User, error) {
	if email == "" {
		return nil, domainErrors.ErrValidation
	}
	return uc.repo.GetByEmail(email)
}

// CreateUser 创建新用户
// 校验在持久层之前完成，非法输入不会触达数据库
func (uc *UserUseCase) CreateUser(name, email, avatarURL string) (*entity.User, error) {
	if err := uc.validateFields(name, email); err != nil {
		return nil, err
	}

	user := &entity.User{
		Name:      name,
		Email:     email,
		AvatarURL: avatarURL,
	}
	if err := uc.repo.Create(user); err != nil {
		return nil, err
	}

	uc.hub.Publish(ws.NewUserEvent(ws.EventUserCreated, user))
	return user, nil
}

// UpdateUser 部分更新：只应用非 nil 的字段
// ⚠️ 所有字段都为 nil 也是合法请求，updated_at 仍会刷新
// 不存在返回 (nil, nil)；新邮箱与其他记录冲突返回 ErrEmailConflict
// 邮箱改成自己当前的值不算冲突，按普通成功处理
func (uc *UserUseCase) UpdateUser(id uint, name, email, avatarURL *string) (*entity.User, error) {
	fields := map[string]interface{}{}
	if name != nil {
		if *name == "" {
			return nil, domainErrors.ErrValidation
		}
		fields["name"] = *name
	}
	if email != nil {
		if uc.validate.Var(*email, "required,email") != nil {
			return nil, domainErrors.ErrValidation
		}
		fields["email"] = *email
	}
	if avatarURL != nil {
		// 头像可置空（身份提供商删除了头像）
		fields["avatar_url"] = *avatarURL
	}

	user, err := uc.repo.Update(id, fields)
	if err != nil || user == nil {
		return nil, err
	}

	uc.hub.Publish(ws.NewUserEvent(ws.EventUserUpdated, user))
	return user, nil
}

// userPatchDoc PATCH 合并补丁作用的文档，只暴露可变字段
type userPatchDoc struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// PatchUser 按 RFC 7386 JSON Merge Patch 语义做部分更新
// 补丁先作用于当前记录的可变字段快照，再把结果写回存储层
func (uc *UserUseCase) PatchUser(id uint, patch []byte) (*entity.User, error) {
	current, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	doc, err := json.Marshal(userPatchDoc{
		Name:      current.Name,
		Email:     current.Email,
		AvatarURL: current.AvatarURL,
	})
	if err != nil {
		return nil, err
	}

	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrValidation, err)
	}

	var patched userPatchDoc
	if err := json.Unmarshal(merged, &patched); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrValidation, err)
	}
	if err := uc.validateFields(patched.Name, patched.Email); err != nil {
		return nil, err
	}

	user, err := uc.repo.Update(id, map[string]interface{}{
		"name":       patched.Name,
		"email":      patched.Email,
		"avatar_url": patched.AvatarURL,
	})
	if err != nil || user == nil {
		return nil, err
	}

	uc.hub.Publish(ws.NewUserEvent(ws.EventUserUpdated, user))
	return user, nil
}

// DeleteUser 删除用户，返回是否真的删除了记录
func (uc *UserUseCase) DeleteUser(id uint) (bool, error) {
	removed, err := uc.repo.Delete(id)
	if err != nil {
		return false, err
	}
	if removed {
		uc.hub.Publish(ws.NewUserDeletedEvent(id))
	}
	return removed, nil
}

// Provision 身份绑定操作：按邮箱 get-or-create
// 已存在的记录原样返回，不覆盖 name（即使身份提供商的显示名已变）
// 返回值第二项表示本次调用是否真的创建了记录
//
// ⚠️ 并发竞态处理：两次并发首登可能同时走到 Create，
// 数据库唯一约束会让后到的一方收到 ErrEmailConflict，
// 此时把冲突理解为"别人刚创建了它"，重读一次并返回，绝不无限循环
func (uc *UserUseCase) Provision(name, email, avatarURL string) (*entity.User, bool, error) {
	if err := uc.validateFields(name, email); err != nil {
		return nil, false, err
	}

	existing, err := uc.repo.GetByEmail(email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	user := &entity.User{
		Name:      name,
		Email:     email,
		AvatarURL: avatarURL,
	}
	err = uc.repo.Create(user)
	if errors.Is(err, domainErrors.ErrEmailConflict) {
		// 并发创建输给了别人，重读一次
		winner, rerr := uc.repo.GetByEmail(email)
		if rerr != nil {
			return nil, false, rerr
		}
		if winner == nil {
			// 刚冲突的记录又被删了，属于真正的异常场景，如实上报
			return nil, false, err
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	uc.hub.Publish(ws.NewUserEvent(ws.EventUserCreated, user))
	return user, true, nil
}

// validateFields name 必填，email 必填且需为合法邮箱格式
func (uc *UserUseCase) validateFields(name, email string) error {
	if name == "" {
		return domainErrors.ErrValidation
	}
	if err := uc.validate.Var(email, "required,email"); err != nil {
		return domainErrors.ErrValidation
	}
	return nil
}
