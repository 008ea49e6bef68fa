// Package intake accepts contact and beta sign-up forms and fans each accepted
// submission out to the configured sinks in the background.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/logging"
)

type Kind string

const (
	KindContact  Kind = "contact"
	KindJoinBeta Kind = "join_beta"
)

const defaultDispatchTimeout = 30 * time.Second

var ErrInvalidForm = errors.New("invalid form")

type ContactForm struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=1,max=5000"`
}

type JoinBetaForm struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company" validate:"required,max=200"`
	Role    string `json:"role" validate:"required,max=100"`
}

// Submission is the accepted form as handed to every sink.
type Submission struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Role      string    `json:"role,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Sink interface {
	Name() string
	Deliver(ctx context.Context, sub Submission) error
}

type Validator interface {
	Validate(i any) error
}

type Service struct {
	validator Validator
	sinks     []Sink
	timeout   time.Duration
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewService drops nil sinks so optional integrations can be passed unconditionally.
func NewService(v Validator, timeout time.Duration, sinks ...Sink) *Service {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	s := &Service{validator: v, timeout: timeout, now: time.Now}
	for _, sink := range sinks {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
	return s
}

func (s *Service) Sinks() []string {
	names := make([]string, 0, len(s.sinks))
	for _, sink := range s.sinks {
		names = append(names, sink.Name())
	}
	return names
}

func (s *Service) SubmitContact(ctx context.Context, f ContactForm) (Submission, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Message = strings.TrimSpace(f.Message)
	if err := s.validate(&f); err != nil {
		return Submission{}, err
	}
	sub := s.newSubmission(KindContact, f.Name, f.Email)
	sub.Message = f.Message
	s.dispatch(ctx, sub)
	return sub, nil
}

func (s *Service) SubmitJoinBeta(ctx context.Context, f JoinBetaForm) (Submission, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Company = strings.TrimSpace(f.Company)
	f.Role = strings.TrimSpace(f.Role)
	if err := s.validate(&f); err != nil {
		return Submission{}, err
	}
	sub := s.newSubmission(KindJoinBeta, f.Name, f.Email)
	sub.Company = f.Company
	sub.Role = f.Role
	s.dispatch(ctx, sub)
	return sub, nil
}

// Wait blocks until every in-flight dispatch has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) validate(form any) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.Validate(form); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	return nil
}

func (s *Service) newSubmission(kind Kind, name, email string) Submission {
	return Submission{
		ID:        uuid.NewString(),
		Kind:      kind,
		Name:      name,
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
}

// dispatch runs detached from the request: cancelling ctx does not stop delivery.
func (s *Service) dispatch(ctx context.Context, sub Submission) {
	if len(s.sinks) == 0 {
		return
	}
	l := logging.FromContext(ctx).With("svc", "intake", "submission_id", sub.ID, "kind", sub.Kind)
	bg := logging.IntoContext(context.WithoutCancel(ctx), l)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		dctx, cancel := context.WithTimeout(bg, s.timeout)
		defer cancel()
		s.deliverAll(dctx, sub, l)
	}()
}

// deliverAll runs every sink in parallel. A failing sink does not cancel the others.
func (s *Service) deliverAll(ctx context.Context, sub Submission, l *slog.Logger) {
	var g errgroup.Group
	for _, sink := range s.sinks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					l.Error("intake_sink_panic", "sink", sink.Name(), "panic", r)
					err = fmt.Errorf("%s: panic: %v", sink.Name(), r)
				}
			}()
			if err := sink.Deliver(ctx, sub); err != nil {
				l.Error("intake_sink_failed", "sink", sink.Name(), "error", err)
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			l.Debug("intake_sink_delivered", "sink", sink.Name())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Warn("intake_dispatch_incomplete", "error", err)
	}
}
