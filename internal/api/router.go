package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Tom8810/janso/config"
	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.Logger(logger))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		mw.AbortWithError(c, apperr.Internal(apperr.DefaultMessage, fmt.Errorf("panic: %v", recovered)))
	}))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, cfg.Server.RequestIPHeader)
	authLimiter := mw.RateLimiter(rate.Limit(cfg.Server.AuthRateLimitPerMin/60), max(int(cfg.Server.AuthRateLimitPerMin), 1), cfg.Server.RequestIPHeader)

	caching := h.cache.Middleware()
	optionalAuth := mw.Auth(h.auth, false)
	ownerAuth := mw.Auth(h.auth, h.enforceOwner)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// 公開ページ
		api.GET("/parlors", caching, h.ListParlors)
		api.GET("/parlors/:id", caching, h.GetParlorDetail)

		// 管理画面
		api.GET("/parlor", optionalAuth, h.GetParlor)
		api.POST("/parlor/update", ownerAuth, h.UpdateParlor)
		api.POST("/parlor/rooms", ownerAuth, h.AddRoom)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	authGroup := api.Group("/auth")
	authGroup.Use(authLimiter)
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", mw.Auth(h.auth, true), h.Me)
	}

	return r
}
