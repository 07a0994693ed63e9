package api

import (
	"github.com/gin-gonic/gin"

	"resumeRender/internal/api/middleware"
)

// Routes 汇总需要注册的处理器；Jobs 为 nil 表示未启用异步任务。
type Routes struct {
	Documents    *DocumentHandler
	Jobs         *JobHandler
	RateCounter  middleware.RateCounter
	RatePerMin   int
	MaxBodyBytes int64
}

// RegisterRoutes 注册 /api/v1 下的业务路由。
func RegisterRoutes(router *gin.Engine, r Routes) {
	v1 := router.Group("/api/v1")

	resumeGroup := v1.Group("/resume")
	{
		submit := []gin.HandlerFunc{
			middleware.RequireJSON(),
			middleware.LimitBody(r.MaxBodyBytes),
			middleware.RateLimitMiddleware(r.RateCounter, r.RatePerMin, nil),
		}

		withSubmit := func(h gin.HandlerFunc) []gin.HandlerFunc {
			return append(append([]gin.HandlerFunc{}, submit...), h)
		}

		resumeGroup.POST("/pdf", withSubmit(r.Documents.GeneratePDF)...)

		if r.Jobs != nil {
			resumeGroup.POST("/pdf/jobs", withSubmit(r.Jobs.CreateJob)...)
			resumeGroup.GET("/pdf/jobs/:id", r.Jobs.GetJob)
		}
	}
}
