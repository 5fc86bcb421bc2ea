// Package docs 内嵌 OpenAPI 描述文档
// 文档只作为 API 说明对外提供，路由契约以 api/route 的注册为准
package docs

import _ "embed"

//go:embed openapi.json
var OpenAPI []byte
