package usecase

import (
	"sync"
	"time"

	"github.com/jsrice7391/redeemer-recovery/domain/entity"
	domainErrors "github.com/jsrice7391/redeemer-recovery/domain/errors"

	"github.com/stretchr/testify/mock"
)

// ========== MockUserRepository ==========
// 实现 repository.UserRepository 接口，用于 UserUseCase 的单元测试

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) List() ([]entity.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	// 处理 nil 情况
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(id uint, fields map[string]interface{}) (*entity.User, error) {
	args := m.Called(id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Delete(id uint) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

// ========== memoryUserRepository ==========
// 带互斥锁的内存实现，用于并发 Provision 竞态测试
// Mock 的调用顺序断言在真并发下不可控，这里用真实的存储语义复现竞态

type memoryUserRepository struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]entity.User
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{nextID: 1, users: make(map[uint]entity.User)}
}

func (r *memoryUserRepository) List() ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepository) GetByID(id uint) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := u
		return &copied, nil
	}
	return nil, nil
}

func (r *memoryUserRepository) GetByEmail(email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) Create(user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// 模拟数据库唯一约束
	for _, u := range r.users {
		if u.Email == user.Email {
			return domainErrors.ErrEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) Update(id uint, fields map[string]interface{}) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	if v, ok := fields["email"].(string); ok {
		for otherID, other := range r.users {
			if otherID != id && other.Email == v {
				return nil, domainErrors.ErrEmailConflict
			}
		}
		u.Email = v
	}
	if v, ok := fields["name"].(string); ok {
		u.Name = v
	}
	if v, ok := fields["avatar_url"].(string); ok {
		u.AvatarURL = v
	}
	u.UpdatedAt = time.Now()
	r.users[id] = u
	copied := u
	return &copied, nil
}

func (r *memoryUserRepository) Delete(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}
