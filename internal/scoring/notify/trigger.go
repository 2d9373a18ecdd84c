// Package notify turns significant score changes into notifications and
// delivers them over independent channels.
package notify

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/metrics"
	"microfinance-scoring/internal/models"

	"github.com/google/uuid"
)

const (
	DefaultThreshold = 0.5
	Title            = "Your credit score changed"
)

// Channel delivers one notification. contact is nil when the subject has no
// registered addresses.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n *models.Notification, contact *models.Contact) error
}

type ContactLookup interface {
	GetContact(ctx context.Context, subjectID string) (*models.Contact, error)
}

type Trigger struct {
	threshold float64
	timeout   time.Duration
	contacts  ContactLookup
	channels  []Channel
	log       logger.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// NewTrigger returns a trigger emitting for |delta| >= threshold.
func NewTrigger(threshold float64, contacts ContactLookup, log logger.Logger, channels ...Channel) *Trigger {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Trigger{
		threshold: threshold,
		timeout:   10 * time.Second,
		contacts:  contacts,
		channels:  channels,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ScoreChanged delivers in the background and returns immediately.
func (t *Trigger) ScoreChanged(ctx context.Context, prev, next *models.ScoreRecord) {
	n, ok := t.Build(prev, next)
	if !ok {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		t.deliver(dctx, n)
	}()
}

// Wait blocks until every pending delivery has finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}

// Build returns the notification for a change, or false when the change is
// below the threshold or there is no previous score.
func (t *Trigger) Build(prev, next *models.ScoreRecord) (*models.Notification, bool) {
	if prev == nil || next == nil {
		return nil, false
	}
	delta := next.Score - prev.Score
	if math.Abs(delta) < t.threshold {
		return nil, false
	}

	n := &models.Notification{
		ID:        uuid.NewString(),
		SubjectID: next.SubjectID,
		Title:     Title,
		OldScore:  prev.Score,
		NewScore:  next.Score,
		Delta:     delta,
		CreatedAt: t.now(),
	}
	if delta > 0 {
		n.Type = models.NotificationScoreImprovement
		n.Message = fmt.Sprintf("Your score rose from %.1f to %.1f. You can now borrow up to %d.",
			prev.Score, next.Score, next.EligibleAmount)
	} else {
		n.Type = models.NotificationScoreDecline
		n.Message = fmt.Sprintf("Your score fell from %.1f to %.1f. Paying on time will help it recover.",
			prev.Score, next.Score)
	}
	if f := next.Details.DominantFactor; f != "" {
		n.Message += fmt.Sprintf(" Main factor: %s.", f)
	}
	if len(next.Recommendations) > 0 {
		n.Message += " Tip: " + next.Recommendations[0]
	}
	return n, true
}

func (t *Trigger) deliver(ctx context.Context, n *models.Notification) {
	var contact *models.Contact
	if t.contacts != nil {
		c, err := t.contacts.GetContact(ctx, n.SubjectID)
		if err != nil {
			t.log.Debug("no contact for subject", map[string]interface{}{
				"subjectId": n.SubjectID,
				"error":     err.Error(),
			})
		} else {
			contact = c
		}
	}

	for _, ch := range t.channels {
		if err := ch.Deliver(ctx, n, contact); err != nil {
			sendErr := errors.NewNotificationSendError(ch.Name(), err)
			metrics.NotificationsSent.WithLabelValues(ch.Name(), "failed").Inc()
			t.log.Warn("notification delivery failed", map[string]interface{}{
				"subjectId": n.SubjectID,
				"channel":   ch.Name(),
				"errorCode": string(sendErr.Code),
				"retryable": sendErr.Retryable,
				"error":     sendErr.Error(),
			})
			continue
		}
		metrics.NotificationsSent.WithLabelValues(ch.Name(), "sent").Inc()
	}
}
