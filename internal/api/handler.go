package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/auth"
	"github.com/Tom8810/janso/internal/mw"
	"github.com/Tom8810/janso/internal/parlor"
)

// Deps are the services the handlers need.
type Deps struct {
	Parlors         *parlor.Service
	Auth            *auth.Service
	DB              *gorm.DB
	Cache           *mw.ResponseCache
	WebPush         *webpush.Options
	DefaultParlorID string
	EnforceOwner    bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	parlors         *parlor.Service
	auth            *auth.Service
	db              *gorm.DB
	cache           *mw.ResponseCache
	webpush         *webpush.Options
	defaultParlorID string
	enforceOwner    bool
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		parlors:         d.Parlors,
		auth:            d.Auth,
		db:              d.DB,
		cache:           d.Cache,
		webpush:         d.WebPush,
		defaultParlorID: d.DefaultParlorID,
		enforceOwner:    d.EnforceOwner,
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	c.Error(err)
	mw.AbortWithError(c, err)
}

// invalidate drops cached public pages after parlor data changed.
func (h *Handler) invalidate() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

// checkOwner enforces that the authenticated owner manages parlorID. It is a
// no-op unless owner enforcement is configured.
func (h *Handler) checkOwner(c *gin.Context, parlorID string) error {
	if !h.enforceOwner {
		return nil
	}
	accountID, ok := mw.AccountID(c)
	if !ok {
		return auth.ErrLoginRequired
	}
	if accountID != parlorID {
		return auth.ErrPermissionDenied
	}
	return nil
}

var errPushUnavailable = apperr.New(apperr.KindUnavailable, "push-unavailable", "サービスが一時的に利用できません")
