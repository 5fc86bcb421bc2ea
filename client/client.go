// Package client 是 Redeemer Recovery API 的类型化 HTTP 客户端
// 供前端 BFF、命令行工具和集成测试使用
//
// 约定与服务端保持一致：
//   - 查询不存在返回 (nil, nil)，不是错误
//   - 409 映射为 domain/errors.ErrEmailConflict，可用 errors.Is 判断
//   - 其余非预期状态码包装为普通 error，绝不 panic
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jsrice7391/redeemer-recovery/domain/entity"
	domainErrors "github.com/jsrice7391/redeemer-recovery/domain/errors"
)

// DefaultBaseURL 本地开发默认指向本机服务
const DefaultBaseURL = "http://localhost:5000/api"

// Client Redeemer Recovery API 客户端
// ⚠️ 基础 URL 由调用方在组合根显式传入，本包不在 import 时偷读环境变量
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string // 可选的 Bearer token，服务端开启鉴权时设置
}

// Option 客户端可选配置
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client（自定义超时、代理等）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken 设置 Bearer token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New 创建客户端实例
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromEnv 按环境变量 API_BASE_URL 构造客户端，未设置时退回本地默认值
// 只应在进程启动的组合根调用一次
func FromEnv(opts ...Option) *Client {
	base := os.Getenv("API_BASE_URL")
	if base == "" {
		base = DefaultBaseURL
	}
	return New(base, opts...)
}

// CreateUserInput 创建/绑定用户的入参
type CreateUserInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// UpdateUserInput 部分更新入参，nil 字段不传
type UpdateUserInput struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// apiError 服务端错误响应体 { "error": "..." }
type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GetAllUsers 获取全部用户，按创建时间倒序
func (c *Client) GetAllUsers(ctx context.Context) ([]entity.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var users []entity.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode user list: %w", err)
	}
	return users, nil
}

// GetUserByID 根据 ID 获取用户，不存在返回 (nil, nil)
func (c *Client) GetUserByID(ctx context.Context, id uint) (*entity.User, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.decodeUser(resp, http.StatusOK)
}

// GetUserByEmail 根据邮箱获取用户，不存在返回 (nil, nil)
// 走服务端单点查询，不拉全量列表再过滤
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.decodeUser(resp, http.StatusOK)
}

// CreateUser 创建新用户
func (c *Client) CreateUser(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	resp, err := c.do(ctx, http.MethodPost, "/users", input)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, c.statusError(resp)
	}

	var user entity.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// UpdateUser 部分更新用户，不存在返回 (nil, nil)
func (c *Client) UpdateUser(ctx context.Context, id uint, input UpdateUserInput) (*entity.User, error) {
	resp, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), input)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.decodeUser(resp, http.StatusOK)
}

// DeleteUser 删除用户，返回是否真的删除了记录
func (c *Client) DeleteUser(ctx context.Context, id uint) (bool, error) {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, c.statusError(resp)
	}
}

// ProvisionUser 身份绑定：按邮箱 get-or-create
// 服务端对已存在记录返回 200，新建返回 201，两者都算成功
func (c *Client) ProvisionUser(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	resp, err := c.do(ctx, http.MethodPost, "/provision", input)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusError(resp)
	}

	var user entity.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// do 发送请求，JSON 编码请求体并附加公共头
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// decodeUser 处理"单个用户或 404"形状的响应
func (c *Client) decodeUser(resp *http.Response, wantStatus int) (*entity.User, error) {
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != wantStatus {
		return nil, c.statusError(resp)
	}

	var user entity.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// statusError 把非预期状态码翻译成错误
// 409 包装 ErrEmailConflict，调用方可以 errors.Is 判断
func (c *Client) statusError(resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(resp.Body).Decode(&body)

	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w: %s", domainErrors.ErrEmailConflict, msg)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
}
