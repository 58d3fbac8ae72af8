package app

import (
	"context"

	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
	"github.com/kimhsiao/fixdesk/backend/internal/sms"
)

// SmsLogs returns every logged SMS attempt, newest first.
func (a *App) SmsLogs() []*models.SmsLog {
	return a.State.SmsLogs()
}

// SendSms sends a free-form message. The attempt is logged whatever the
// outcome; a transport failure is returned as TRANSPORT_ERROR.
func (a *App) SendSms(ctx context.Context, to, message string) (*models.SmsLog, error) {
	return a.SMS.Send(ctx, to, message)
}

// RecordSms logs a message the platform sent natively.
func (a *App) RecordSms(ctx context.Context, to, message string, sendErr error) (*models.SmsLog, error) {
	return a.SMS.Record(ctx, to, message, sendErr)
}

// ReadyMessage renders the pickup notification for a job without sending it.
func (a *App) ReadyMessage(id int64) (string, error) {
	job, err := a.Repair(id)
	if err != nil {
		return "", err
	}
	msg, err := sms.ReadyForPickup(job, a.cfg.Shop.Name)
	if err != nil {
		return "", errors.Wrap(errors.ErrInternal, "failed to render message", err)
	}
	return msg, nil
}

// NotifyReady texts the customer that their device is ready for pickup.
func (a *App) NotifyReady(ctx context.Context, id int64) (*models.SmsLog, error) {
	msg, err := a.ReadyMessage(id)
	if err != nil {
		return nil, err
	}
	job, err := a.Repair(id)
	if err != nil {
		return nil, err
	}
	return a.SMS.Send(ctx, job.Phone, msg)
}

// CallCustomer opens the dialer for the job's phone number and returns the
// tel: URI used. Without a Dialer only the URI is returned.
func (a *App) CallCustomer(ctx context.Context, id int64) (string, error) {
	job, err := a.Repair(id)
	if err != nil {
		return "", err
	}
	uri := sms.TelURI(job.Phone, a.SMS.Region())
	if a.dialer == nil {
		return uri, nil
	}
	if err := a.dialer.Dial(ctx, uri); err != nil {
		return uri, errors.Wrap(errors.ErrTransport, "failed to open dialer", err)
	}
	return uri, nil
}
