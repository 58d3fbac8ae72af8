package sms

import (
	"context"

	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// Composer is the backing model of the message form. The message body is
// cleared after a successful send and kept after a failure so the user can
// retry.
type Composer struct {
	To      string `json:"to"`
	Message string `json:"message"`

	svc *Service
}

// NewComposer creates an empty Composer over svc.
func NewComposer(svc *Service) *Composer {
	return &Composer{svc: svc}
}

// Submit sends the current message.
func (c *Composer) Submit(ctx context.Context) (*models.SmsLog, error) {
	entry, err := c.svc.Send(ctx, c.To, c.Message)
	if err != nil {
		return entry, err
	}
	c.Message = ""
	return entry, nil
}
