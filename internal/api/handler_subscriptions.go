package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/model"
	"github.com/Tom8810/janso/internal/notification"
)

const (
	codeInvalidSubscription  = "invalid-subscription"
	codeSubscriptionNotFound = "subscription-not-found"
	msgInvalidSubscription   = "通知の登録内容が正しくありません"
	msgSubscriptionNotFound  = "通知の登録が見つかりません"
	msgSubscriptionFailed    = "通知の登録に失敗しました"
)

type putSubscriptionRequest struct {
	Endpoint          string   `json:"endpoint" binding:"required"`
	P256DH            string   `json:"p256dh" binding:"required"`
	Auth              string   `json:"auth" binding:"required"`
	SubscribedParlors []string `json:"subscribed_parlors"`
}

// PutSubscription creates or replaces a push subscription and the parlors it
// follows. Unknown parlor ids are ignored.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidArgument(codeInvalidSubscription, msgInvalidSubscription))
		return
	}

	ctx := c.Request.Context()
	links := make([]model.SubscriptionParlor, 0, len(req.SubscribedParlors))
	seen := make(map[string]bool, len(req.SubscribedParlors))
	for _, id := range req.SubscribedParlors {
		if seen[id] {
			continue
		}
		seen[id] = true
		ok, err := h.parlors.Exists(ctx, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		if ok {
			links = append(links, model.SubscriptionParlor{Endpoint: req.Endpoint, ParlorID: id})
		}
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Omit("Parlors").Create(&subscription).Error; err != nil {
			return err
		}
		if err := tx.Where("endpoint = ?", req.Endpoint).Delete(&model.SubscriptionParlor{}).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		return tx.Create(&links).Error
	})
	if err != nil {
		h.fail(c, apperr.Internal(msgSubscriptionFailed, err))
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.InvalidArgument(codeInvalidSubscription, msgInvalidSubscription))
		return
	}

	if err := notification.DeleteSubscription(c.Request.Context(), h.db, req.Endpoint); err != nil {
		h.fail(c, apperr.Internal(msgSubscriptionFailed, err))
		return
	}
	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL decoding, since push
// endpoints are stored exactly as the browser reported them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription returns the parlors a subscription follows.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		h.fail(c, apperr.InvalidArgument(codeInvalidSubscription, msgInvalidSubscription))
		return
	}

	var subscription model.PushSubscription
	err := h.db.WithContext(c.Request.Context()).Preload("Parlors").First(&subscription, "endpoint = ?", raw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.fail(c, apperr.NotFound(codeSubscriptionNotFound, msgSubscriptionNotFound))
		return
	}
	if err != nil {
		h.fail(c, apperr.Internal(msgSubscriptionFailed, err))
		return
	}

	parlorIDs := make([]string, len(subscription.Parlors))
	for i, p := range subscription.Parlors {
		parlorIDs[i] = p.ParlorID
	}
	c.JSON(http.StatusOK, gin.H{"subscribed_parlors": parlorIDs})
}
