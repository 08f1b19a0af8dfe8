// Package notification sends Web Push messages to players who follow a
// parlor when one of its rooms opens up.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tom8810/janso/internal/model"
	"github.com/Tom8810/janso/internal/parlor"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends notifications with the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// RoomsOpenedJob announces that rooms of a parlor can be played immediately.
type RoomsOpenedJob struct {
	ParlorID   string
	ParlorName string
	RankNames  []string
}

// Message is the JSON payload delivered to the service worker.
type Message struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ParlorID string `json:"parlor_id"`
	URL      string `json:"url"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan RoomsOpenedJob
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan RoomsOpenedJob, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := logrus.WithField("worker", id)
	log.Debug("notification worker started")
	for {
		select {
		case job := <-wp.jobs:
			log.WithField("parlor_id", job.ParlorID).Debug("processing rooms-opened job")
			wp.sendNotificationsForParlor(ctx, job)
		case <-ctx.Done():
			log.Debug("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a job without blocking. When the queue is full the job is
// dropped and false is returned.
func (wp *WorkerPool) Dispatch(job RoomsOpenedJob) bool {
	select {
	case wp.jobs <- job:
		return true
	default:
		logrus.WithField("parlor_id", job.ParlorID).Warn("notification queue full, dropping job")
		return false
	}
}

// RoomsOpened queues notifications for rooms that just became playable.
func (wp *WorkerPool) RoomsOpened(p parlor.Parlor, rooms []parlor.Room) {
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		names = append(names, r.RankName)
	}
	wp.Dispatch(RoomsOpenedJob{ParlorID: p.ID, ParlorName: p.Name, RankNames: names})
}

// BuildMessage renders the notification for a job.
func BuildMessage(job RoomsOpenedJob) Message {
	return Message{
		Title:    job.ParlorName,
		Body:     fmt.Sprintf("%s がすぐに遊べます", strings.Join(job.RankNames, "、")),
		ParlorID: job.ParlorID,
		URL:      "/parlors/" + job.ParlorID,
	}
}

func (wp *WorkerPool) sendNotificationsForParlor(ctx context.Context, job RoomsOpenedJob) {
	log := logrus.WithField("parlor_id", job.ParlorID)

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_parlors sp ON sp.endpoint = push_subscriptions.endpoint").
		Where("sp.parlor_id = ?", job.ParlorID).
		Find(&subscriptions).Error
	if err != nil {
		log.WithError(err).Error("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(BuildMessage(job))
	if err != nil {
		log.WithError(err).Error("failed to encode notification")
		return
	}

	log.WithField("count", len(subscriptions)).Info("sending room-opened notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	log := logrus.WithField("endpoint", sub.Endpoint)
	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.WithError(err).Warn("failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Info("subscription expired, deleting")
		if err := DeleteSubscription(ctx, wp.db, sub.Endpoint); err != nil {
			log.WithError(err).Error("failed to delete expired subscription")
		}
	}
}

// DeleteSubscription removes a subscription and the parlors it follows.
func DeleteSubscription(ctx context.Context, db *gorm.DB, endpoint string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscriptionParlor{}).Error; err != nil {
			return err
		}
		return tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error
	})
}
