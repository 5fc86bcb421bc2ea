// 路由契约测试放在外部测试包：route 包依赖 controller，
// 包内测试引用 route.Setup 会构成导入环
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jsrice7391/redeemer-recovery/api/controller"
	"github.com/jsrice7391/redeemer-recovery/api/route"
	"github.com/jsrice7391/redeemer-recovery/domain/entity"
	domainErrors "github.com/jsrice7391/redeemer-recovery/domain/errors"
	"github.com/jsrice7391/redeemer-recovery/internal/ws"
	"github.com/jsrice7391/redeemer-recovery/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== 控制器层测试 ==========
// 用内存 Repository 走完整的 路由 → Controller → UseCase 链路，
// 验证路由契约表：状态码、响应体形状、时间戳格式

// fakeUserRepository 内存实现，模拟数据库的唯一约束与时间戳语义
type fakeUserRepository struct {
	mu     sync.Mutex
	nextID uint
	users  []entity.User // 按创建顺序追加
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{nextID: 1}
}

func (r *fakeUserRepository) List() ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// 最新创建的在前
	out := make([]entity.User, 0, len(r.users))
	for i := len(r.users) - 1; i >= 0; i-- {
		out = append(out, r.users[i])
	}
	return out, nil
}

func (r *fakeUserRepository) GetByID(id uint) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepository) GetByEmail(email string) (*entity.User, error) {
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

func (r *fakeUserRepository) Create(user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domainErrors.ErrEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	now := time.Now().UTC().Truncate(time.Millisecond)
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepository) Update(id uint, fields map[string]interface{}) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.ID != id {
			continue
		}
		if v, ok := fields["email"].(string); ok {
			for _, other := range r.users {
				if other.ID != id && other.Email == v {
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
		u.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
		r.users[i] = u
		copied := u
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeUserRepository) Delete(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// newTestRouter 组装测试用路由（开发模式，不启用 Bearer 校验）
func newTestRouter(repo *fakeUserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub()
	uc := usecase.NewUserUseCase(repo, hub)

	router := gin.New()
	route.Setup(router, &route.Dependencies{
		UserController:    controller.NewUserController(uc),
		WebhookController: controller.NewWebhookController(uc, ""),
		WSHandler:         controller.NewWSHandler(hub, nil, false),
		AuthEnabled:       false,
	})
	return router
}

// newAuthTestRouter 启用 Bearer 校验的路由，验证鉴权开启时的路由分界
func newAuthTestRouter(repo *fakeUserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub()
	uc := usecase.NewUserUseCase(repo, hub)

	router := gin.New()
	route.Setup(router, &route.Dependencies{
		UserController:    controller.NewUserController(uc),
		WebhookController: controller.NewWebhookController(uc, ""),
		WSHandler:         controller.NewWSHandler(hub, nil, true),
		AuthEnabled:       true,
	})
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestWelcomeAndHealth 欢迎端点与健康检查
func TestWelcomeAndHealth(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodGet, "/api", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome to Redeemer Recovery API")

	w = doJSON(router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var health map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	// 时间戳必须是合法的 RFC 3339
	_, err := time.Parse(time.RFC3339, health["timestamp"])
	assert.NoError(t, err)
}

// TestOpenAPIDocument OpenAPI 文档可访问且是合法 JSON
func TestOpenAPIDocument(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodGet, "/api/openapi.json", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
}

// TestCreateThenGet_EndToEnd POST 建档后 GET 能取回同一条记录
// 响应体含生成的 id，createdAt 与 updatedAt 相等且为 ISO-8601 字符串
func TestCreateThenGet_EndToEnd(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodPost, "/api/users", `{"name":"Jane","email":"jane@x.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Jane", created["name"])
	assert.Equal(t, "jane@x.com", created["email"])
	assert.NotZero(t, created["id"])
	assert.Equal(t, created["createdAt"], created["updatedAt"])

	// 时间戳必须是合法的 RFC 3339 字符串
	_, err := time.Parse(time.RFC3339, created["createdAt"].(string))
	assert.NoError(t, err)

	w = doJSON(router, http.MethodGet, "/api/users/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var fetched map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created, fetched)
}

// TestCreateUser_Failures 缺字段 400，重复邮箱 409
func TestCreateUser_Failures(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	testCases := []struct {
		name string
		body string
		code int
	}{
		{"missing name", `{"email":"a@x.com"}`, http.StatusBadRequest},
		{"missing email", `{"name":"A"}`, http.StatusBadRequest},
		{"malformed email", `{"name":"A","email":"nope"}`, http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/users", tc.body)
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}

	// 重复邮箱
	w := doJSON(router, http.MethodPost, "/api/users", `{"name":"Jane","email":"dup@x.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(router, http.MethodPost, "/api/users", `{"name":"Other","email":"dup@x.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 冲突后列表中该邮箱只有一条记录
	w = doJSON(router, http.MethodGet, "/api/users", "")
	var users []entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	count := 0
	for _, u := range users {
		if u.Email == "dup@x.com" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// TestListUsers_NewestFirst 列表按创建时间倒序
func TestListUsers_NewestFirst(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	for _, body := range []string{
		`{"name":"First","email":"t1@x.com"}`,
		`{"name":"Second","email":"t2@x.com"}`,
		`{"name":"Third","email":"t3@x.com"}`,
	} {
		w := doJSON(router, http.MethodPost, "/api/users", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(router, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, w.Code)

	var users []entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 3)
	assert.Equal(t, "t3@x.com", users[0].Email)
	assert.Equal(t, "t2@x.com", users[1].Email)
	assert.Equal(t, "t1@x.com", users[2].Email)
}

// TestListUsers_EmptyArray 空表返回 []，不是 null
func TestListUsers_EmptyArray(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

// TestGetUser_ErrorCases 非法 id 400，不存在 404
func TestGetUser_ErrorCases(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodGet, "/api/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/users/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestGetUserByEmail_Query ?email= 单点查询
func TestGetUserByEmail_Query(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodPost, "/api/users", `{"name":"Jane","email":"jane@x.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/api/users?email=jane%40x.com", "")
	require.Equal(t, http.StatusOK, w.Code)

	var user entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "jane@x.com", user.Email)

	// 精确匹配，大小写不同视为不存在
	w = doJSON(router, http.MethodGet, "/api/users?email=JANE%40x.com", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestUpdateUser_Contract PUT 的部分更新契约
func TestUpdateUser_Contract(t *testing.T) {
	repo := newFakeUserRepository()
	router := newTestRouter(repo)

	w := doJSON(router, http.MethodPost, "/api/users", `{"name":"Jane","email":"jane@x.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(router, http.MethodPost, "/api/users", `{"name":"Bob","email":"bob@x.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// 只改 name
	w = doJSON(router, http.MethodPut, "/api/users/1", `{"name":"Janet"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var user entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Janet", user.Name)
	assert.Equal(t, "jane@x.com", user.Email)

	// 空的部分更新：字段不变，updatedAt 仍推进
	before, err := repo.GetByID(1)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	w = doJSON(router, http.MethodPut, "/api/users/1", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	after, err := repo.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.Email, after.Email)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	// 邮箱改成别人的 → 409
	w = doJSON(router, http.MethodPut, "/api/users/1", `{"email":"bob@x.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 邮箱改成自己当前的值 → 普通成功
	w = doJSON(router, http.MethodPut, "/api/users/1", `{"email":"jane@x.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// 不存在 → 404
	w = doJSON(router, http.MethodPut, "/api/users/999", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestPatchUser_MergePatch PATCH 走 RFC 7386 合并补丁
func TestPatchUser_MergePatch(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodPost, "/api/users", `{"name":"Jane","email":"jane@x.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPatch, "/api/users/1", `{"name":"Janet"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var user entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "Janet", user.Name)
	assert.Equal(t, "jane@x.com", user.Email)

	// email 置 null = 删除必填字段 → 400
	w = doJSON(router, http.MethodPatch, "/api/users/1", `{"email":null}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 不存在 → 404
	w = doJSON(router, http.MethodPatch, "/api/users/999", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestDeleteUser_Contract 删除契约：204 → 404 → 404
func TestDeleteUser_Contract(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodPost, "/api/users", `{"name":"Jane","email":"jane@x.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	// 删除后查询不到
	w = doJSON(router, http.MethodGet, "/api/users/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 第二次删除 404
	w = doJSON(router, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestProvision_Endpoint 身份绑定端点：首次 201，再次 200 且记录不变
func TestProvision_Endpoint(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodPost, "/api/provision", `{"name":"Jane","email":"jane@x.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var first entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	// 显示名变了也不覆盖
	w = doJSON(router, http.MethodPost, "/api/provision", `{"name":"Jane Renamed","email":"jane@x.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var second entity.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Jane", second.Name)

	// 缺字段 → 400
	w = doJSON(router, http.MethodPost, "/api/provision", `{"email":"x@y.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestRequestIDHeader 响应带 X-Request-ID，透传客户端给的值
func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(newFakeUserRepository())

	w := doJSON(router, http.MethodGet, "/api/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "trace-me-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "trace-me-123", w.Header().Get("X-Request-ID"))
}

// TestAuthEnabled_Boundary 启用 Bearer 校验后 /api 资源路由拒绝匿名请求，
// 欢迎/健康检查/文档端点保持公开
func TestAuthEnabled_Boundary(t *testing.T) {
	router := newAuthTestRouter(newFakeUserRepository())

	// 缺 Authorization 头 → 401，未触达业务层
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/users/1"},
		{http.MethodPost, "/api/provision"},
	} {
		w := doJSON(router, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
		assert.Contains(t, w.Body.String(), "error")
	}

	// 非 Bearer 形式的 Authorization 头同样拒绝
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 公开端点不受影响
	for _, path := range []string{"/api", "/api/health", "/api/openapi.json"} {
		w := doJSON(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
