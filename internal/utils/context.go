package utils

import (
	"context"

	"github.com/gin-gonic/gin"
)

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
)

type CustomContext struct {
	AppSource string
	UserId    string
	UserEmail string
	Roles     []string
}

type customContextKeyType string

const customContextKey customContextKeyType = "CUSTOM_CONTEXT"

var UserIdHeaders = []string{"X-USER-ID", "X-User-Id", "userId", "UserId"}

const (
	UserEmailHeader = "X-USER-EMAIL"
	UserRolesHeader = "X-USER-ROLES"
)

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

func WithCustomContextFromGinRequest(c *gin.Context, appSource string) context.Context {
	customContext := &CustomContext{
		AppSource: appSource,
		UserId:    c.GetString("UserId"),
		UserEmail: c.GetString("UserEmail"),
		Roles:     c.GetStringSlice("UserRoles"),
	}
	return WithCustomContext(c.Request.Context(), customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetUserIdFromContext(ctx context.Context) string {
	return GetContext(ctx).UserId
}

func GetUserEmailFromContext(ctx context.Context) string {
	return GetContext(ctx).UserEmail
}

// HasAnyRole reports whether the context user carries one of the given roles.
func HasAnyRole(ctx context.Context, roles ...string) bool {
	for _, role := range GetContext(ctx).Roles {
		if IsStringInSlice(role, roles) {
			return true
		}
	}
	return false
}

