// Package sms sends customer notifications and records every attempt in
// the SMS log.
package sms

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/logging"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

// Transport delivers one text message. It is called once per attempt.
type Transport interface {
	Send(ctx context.Context, to, message string) error
}

// LogSink appends an SMS log entry. *state.State satisfies it.
type LogSink interface {
	AddSmsLog(ctx context.Context, log *models.SmsLog) error
}

// Service sends messages through a Transport and records the outcome.
type Service struct {
	transport Transport
	sink      LogSink
	region    string
	log       *logging.Logger
}

// NewService creates a Service. region is the default region used to
// normalise numbers typed without a country code.
func NewService(transport Transport, sink LogSink, region string, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Get()
	}
	if region == "" {
		region = DefaultRegion
	}
	return &Service{
		transport: transport,
		sink:      sink,
		region:    region,
		log:       log.With(map[string]interface{}{"component": "sms"}),
	}
}

// Region returns the default region.
func (s *Service) Region() string {
	return s.region
}

// Send delivers message to the given number and appends a log entry with
// status sent or failed. Empty input is rejected before anything is sent
// or logged. A transport failure is returned as TRANSPORT_ERROR after the
// failed attempt has been logged.
func (s *Service) Send(ctx context.Context, to, message string) (*models.SmsLog, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, errors.New(errors.ErrValidation, "recipient number is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, errors.New(errors.ErrValidation, "message is required")
	}

	number := Normalize(to, s.region)
	sendErr := s.transport.Send(ctx, number, message)
	return s.record(ctx, number, message, sendErr)
}

// Record logs a message that was delivered outside the core, such as by the
// mobile platform's native SMS API. sendErr is the platform's failure, if any.
func (s *Service) Record(ctx context.Context, to, message string, sendErr error) (*models.SmsLog, error) {
	if strings.TrimSpace(to) == "" {
		return nil, errors.New(errors.ErrValidation, "recipient number is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, errors.New(errors.ErrValidation, "message is required")
	}
	return s.record(ctx, Normalize(to, s.region), message, sendErr)
}

func (s *Service) record(ctx context.Context, number, message string, sendErr error) (*models.SmsLog, error) {
	status := models.SmsSent
	if sendErr != nil {
		status = models.SmsFailed
	}
	entry := models.NewSmsLog(number, message, status)
	logErr := s.sink.AddSmsLog(ctx, entry)

	if sendErr != nil {
		s.log.Warn("sms send failed", map[string]interface{}{"to": number, "error": sendErr.Error()})
		err := error(errors.Wrap(errors.ErrTransport, "failed to send sms", sendErr))
		if logErr != nil {
			err = stderrors.Join(err, logErr)
		}
		return entry, err
	}
	if logErr != nil {
		return entry, logErr
	}

	s.log.Info("sms sent", map[string]interface{}{"to": number, "log_id": entry.ID})
	return entry, nil
}
