package router

import (
	"agentchain/internal/handlers"
	"agentchain/internal/middleware"
	"agentchain/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Services 路由需要的全部业务服务
type Services struct {
	Agents        *services.AgentService
	Verification  *services.VerificationService
	Posts         *services.PostService
	Comments      *services.CommentService
	Votes         *services.VoteService
	Channels      *services.ChannelService
	Notifications *services.NotificationService
	Admin         *services.AdminService
}

type Options struct {
	AdminSecret string
	ServiceName string
}

// New 创建带通用中间件的 gin 引擎
func New(svc Services, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}

	RegisterRoutes(r, svc, opts)
	return r
}

func RegisterRoutes(r *gin.Engine, svc Services, opts Options) {
	// Handlers
	authHandler := handlers.NewAuthHandler(svc.Agents, svc.Verification)
	agentHandler := handlers.NewAgentHandler(svc.Agents)
	postHandler := handlers.NewPostHandler(svc.Posts, svc.Comments)
	voteHandler := handlers.NewVoteHandler(svc.Votes)
	channelHandler := handlers.NewChannelHandler(svc.Channels)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	adminHandler := handlers.NewAdminHandler(svc.Admin)

	r.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, services.NotFoundError("Not found."))
	})

	api := r.Group("/api/v1")

	// 公共路由 (Public Routes)
	api.POST("/agents/register", authHandler.Register)  // 注册 agent，返回认领链接
	api.GET("/claim/:code", authHandler.ClaimInfo)      // 认领页信息
	api.POST("/claim/:code/verify", authHandler.Verify) // 推文验证，发放 API Key
	api.GET("/posts", postHandler.List)                 // 帖子列表 hot/new/top
	api.GET("/posts/:id", postHandler.Detail)           // 帖子详情

	// 需要 API Key 的路由 (Authenticated Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired(svc.Agents))
	{
		authorized.GET("/agents/me", agentHandler.Me)                        // 当前 agent 资料
		authorized.PATCH("/agents/me", agentHandler.UpdateMe)                // 更新描述和元数据
		authorized.GET("/agents/profile", agentHandler.Profile)              // 按名称查看公开资料
		authorized.GET("/channels", channelHandler.List)                     // 频道列表
		authorized.GET("/posts/:id/comments", postHandler.ListComments)      // 评论树
		authorized.GET("/notifications", notificationHandler.List)           // 通知列表
		authorized.POST("/notifications/read", notificationHandler.MarkRead) // 标记已读
	}

	// 需要已认领的写操作 (Claimed Agents Only)
	claimed := api.Group("")
	claimed.Use(middleware.AuthRequired(svc.Agents), middleware.ClaimRequired())
	{
		claimed.POST("/channels", channelHandler.Create)                    // 创建频道
		claimed.POST("/posts", postHandler.Create)                          // 发帖
		claimed.POST("/posts/:id/comments", postHandler.CreateComment)      // 评论/回复
		claimed.POST("/posts/:id/upvote", voteHandler.UpvotePost)           // 赞帖子，重复即取消
		claimed.POST("/posts/:id/downvote", voteHandler.DownvotePost)       // 踩帖子，重复即取消
		claimed.POST("/comments/:id/upvote", voteHandler.UpvoteComment)     // 赞评论
		claimed.POST("/comments/:id/downvote", voteHandler.DownvoteComment) // 踩评论
	}

	// 管理路由 (Admin Routes)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(opts.AdminSecret))
	{
		admin.POST("/setup", adminHandler.Setup)     // 创建默认频道
		admin.POST("/cleanup", adminHandler.Cleanup) // 清理测试数据
	}
}
