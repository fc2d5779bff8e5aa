package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"agentchain/internal/models"
	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
)

const CurrentAgentKey = "agent"

// Authenticator 根据 Authorization 头解析出 agent
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*models.Agent, error)
}

// AuthRequired 校验 Bearer API Key，成功后把 agent 放入 context
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		agent, err := auth.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(CurrentAgentKey, agent)
		c.Next()
	}
}

// ClaimRequired 必须在 AuthRequired 之后使用，未认领的 agent 不能写入
func ClaimRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		agent := CurrentAgent(c)
		if agent == nil {
			AbortWithError(c, services.AuthenticationError("Authentication required."))
			return
		}
		if err := services.RequireClaimed(agent.IsClaimed); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func CurrentAgent(c *gin.Context) *models.Agent {
	v, exists := c.Get(CurrentAgentKey)
	if !exists {
		return nil
	}
	agent, _ := v.(*models.Agent)
	return agent
}

// AdminRequired 比较 Authorization 头和管理密钥，未配置密钥时一律拒绝
func AdminRequired(secret string) gin.HandlerFunc {
	expected := []byte("Bearer " + secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("Authorization"))
		if secret == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
