package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ucampus/portal-academico-api/internal/models"
	"github.com/ucampus/portal-academico-api/pkg/jobs"
)

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditConfig tunes the asynchronous audit trail writer.
type AuditConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
}

// AuditService records audit trail entries without blocking request
// handling; writes go through a background worker queue.
type AuditService struct {
	repo    auditWriter
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditWriter, cfg AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger, enabled: cfg.Enabled && repo != nil}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the background writer.
func (s *AuditService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the background writer.
func (s *AuditService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// Record enqueues an audit entry. Best effort: a full queue is logged and
// the request proceeds.
func (s *AuditService) Record(entry models.AuditLog) {
	if !s.enabled {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: entry.Action, Payload: entry}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	return s.repo.Create(ctx, &entry)
}
