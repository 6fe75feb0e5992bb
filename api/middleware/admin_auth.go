/*
 * @module api/middleware/admin_auth
 * @description 管理员认证中间件，保护配置修改与知识库导入等写接口
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference DESIGN.md
 * @stateFlow 提取Basic凭据 -> 校验用户名与bcrypt密码哈希 -> 上下文注入 -> 下一个处理器
 * @rules 未配置 ADMIN_PASSWORD_HASH 时拒绝所有管理请求；用户名使用常量时间比较
 * @dependencies golang.org/x/crypto/bcrypt, github.com/go-chi/render
 * @refs api/routes.go
 */

package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
)

// ContextKey 上下文键类型
type ContextKey string

// AdminUserKey 已认证管理员用户名在上下文中的键
const AdminUserKey ContextKey = "admin_user"

// AdminAuthMiddleware 管理员认证中间件
type AdminAuthMiddleware struct {
	username     string
	passwordHash []byte
	realm        string
}

// NewAdminAuthMiddleware 从环境变量 ADMIN_USERNAME/ADMIN_PASSWORD_HASH 创建
func NewAdminAuthMiddleware() *AdminAuthMiddleware {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	hash := os.Getenv("ADMIN_PASSWORD_HASH")
	if hash == "" {
		slog.Warn("未设置 ADMIN_PASSWORD_HASH，管理接口不可用")
	}
	return NewAdminAuth(username, hash)
}

// NewAdminAuth 使用给定的用户名与bcrypt哈希创建
func NewAdminAuth(username, passwordHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		username:     username,
		passwordHash: []byte(passwordHash),
		realm:        "fishdisease-admin",
	}
}

// HashPassword 生成bcrypt哈希，用于配置 ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Middleware 认证处理
func (m *AdminAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.passwordHash) == 0 {
			m.respondUnauthorized(w, r, "管理接口未启用")
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			m.respondUnauthorized(w, r, "缺少认证信息")
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(m.username)) == 1
		// 用户名不匹配时同样校验密码
		passErr := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(pass))
		if !userOK || passErr != nil {
			slog.Warn("管理员认证失败", "user", user, "remote", r.RemoteAddr)
			m.respondUnauthorized(w, r, "用户名或密码错误")
			return
		}

		ctx := context.WithValue(r.Context(), AdminUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AdminAuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+m.realm+`", charset="UTF-8"`)
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusUnauthorized,
		"msg":    message,
	})
}

// GetAdminFromContext 获取已认证的管理员用户名
func GetAdminFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(AdminUserKey).(string)
	return user, ok
}
