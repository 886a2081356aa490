package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// UserIdMiddleware copies the caller identity set by the gateway into the
// gin context. Roles arrive comma separated.
func UserIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := ""
		for _, header := range utils.UserIdHeaders {
			if value := c.GetHeader(header); value != "" {
				userId = value
				break
			}
		}

		var roles []string
		for _, role := range strings.Split(c.GetHeader(utils.UserRolesHeader), ",") {
			if role = strings.ToUpper(strings.TrimSpace(role)); role != "" {
				roles = append(roles, role)
			}
		}

		c.Set("UserId", userId)
		c.Set("UserEmail", c.GetHeader(utils.UserEmailHeader))
		c.Set("UserRoles", roles)
		c.Next()
	}
}
