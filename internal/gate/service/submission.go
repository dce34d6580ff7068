package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
	"github.com/aussiebroadwan/agency/internal/gate/notify"
	"github.com/aussiebroadwan/agency/pkg/clockx"
	"github.com/aussiebroadwan/agency/pkg/idx"
)

// SubmissionService stamps admitted form submissions and passes them on.
type SubmissionService struct {
	Mailer notify.Mailer
	Clock  clockx.Clock
	IDs    idx.Generator
}

// Submit assigns an id and receive time to s and hands it to the mailer.
// The caller has already been admitted by the gate.
func (s *SubmissionService) Submit(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	if s.Clock == nil {
		sub.ReceivedAt = time.Now().UTC()
	} else {
		sub.ReceivedAt = s.Clock.Now()
	}
	if s.IDs == nil {
		sub.ID = idx.New().String()
	} else {
		sub.ID = s.IDs.New().String()
	}
	sub.Email = normalizeEmail(sub.Email)
	sub.Name = strings.TrimSpace(sub.Name)

	if err := s.Mailer.Send(ctx, sub); err != nil {
		return domain.Submission{}, fmt.Errorf("submit %s: %w", sub.Kind, err)
	}
	return sub, nil
}
