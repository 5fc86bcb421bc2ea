package errors

import "errors"

// ================= 业务领域错误定义 =================
// 所有业务逻辑相关的错误统一在此定义，避免跨包重复定义
// Controller 层负责把它们翻译成 HTTP 状态码，Repository 层不抛通用异常

// "不存在"不是错误：查询类操作约定返回 (nil, nil)，
// Controller 层据此回 404，这里不设 NotFound 哨兵

// ErrEmailConflict 邮箱唯一约束冲突错误
// 当写入会导致两条记录共享同一邮箱时返回此错误（映射 409）
var ErrEmailConflict = errors.New("email already taken by another user")

// ErrValidation 输入校验错误
// 缺少必填字段或格式非法，未到达持久层就被拦截（映射 400）
var ErrValidation = errors.New("invalid or missing input")
