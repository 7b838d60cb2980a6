// Package reconcile периодически доводит до конца запросы к шлюзу расчётов,
// результат которых не успел примениться к платежу.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/metrics"
	"github.com/ignatzorin/taskfi-backend/internal/models"
)

const (
	DefaultSchedule  = "@every 5m"
	DefaultMinAge    = 2 * time.Minute
	defaultBatchSize = 100
)

// Journal - журнал запросов к шлюзу.
type Journal interface {
	ListByStatus(ctx context.Context, status string, updatedBefore time.Time, limit int) ([]models.SettlementRequest, error)
}

// Escrows отдаёт платежи, у которых наступила рекомендуемая дата выплаты.
type Escrows interface {
	ListOverdueEscrows(ctx context.Context, now time.Time, limit int) ([]models.Payment, error)
}

// Settler применяет подтверждённые запросы и выясняет судьбу зависших.
type Settler interface {
	ApplyConfirmed(ctx context.Context, req *models.SettlementRequest) (*models.Payment, error)
	ResolvePending(ctx context.Context, req *models.SettlementRequest) (bool, error)
}

type Config struct {
	Schedule string
	// MinAge - сколько запрос должен пролежать без изменений, чтобы им занялась сверка.
	MinAge    time.Duration
	BatchSize int
}

// Report - итог одного прохода сверки.
type Report struct {
	Applied  int
	Resolved int
	Failed   int
	Overdue  int
}

type Reconciler struct {
	journal Journal
	escrows Escrows
	settler Settler
	cfg     Config
	now     func() time.Time
	log     *logrus.Entry
}

func New(journal Journal, escrows Escrows, settler Settler, cfg Config) *Reconciler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = DefaultMinAge
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Reconciler{
		journal: journal,
		escrows: escrows,
		settler: settler,
		cfg:     cfg,
		now:     time.Now,
		log:     logger.WithComponent("reconcile"),
	}
}

// RunOnce выполняет один проход: применяет подтверждённые запросы, опрашивает шлюз
// о зависших и считает просроченные escrow. Ошибка по одному запросу не прерывает проход.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	cutoff := r.now().Add(-r.cfg.MinAge)

	confirmed, err := r.journal.ListByStatus(ctx, models.SettlementStatusConfirmed, cutoff, r.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("reconcile: list confirmed %w", err)
	}
	for i := range confirmed {
		req := &confirmed[i]
		if _, err := r.settler.ApplyConfirmed(ctx, req); err != nil {
			report.Failed++
			metrics.RecordReconcile("apply", "error")
			r.log.WithError(err).WithField("request_key", req.RequestKey).Warn("не удалось применить подтверждённый запрос")
			continue
		}
		report.Applied++
		metrics.RecordReconcile("apply", "ok")
	}

	pending, err := r.journal.ListByStatus(ctx, models.SettlementStatusPending, cutoff, r.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("reconcile: list pending %w", err)
	}
	for i := range pending {
		req := &pending[i]
		applied, err := r.settler.ResolvePending(ctx, req)
		if err != nil {
			report.Failed++
			metrics.RecordReconcile("resolve", "error")
			r.log.WithError(err).WithField("request_key", req.RequestKey).Warn("не удалось выяснить состояние запроса")
			continue
		}
		report.Resolved++
		if applied {
			report.Applied++
		}
		metrics.RecordReconcile("resolve", "ok")
	}

	overdue, err := r.escrows.ListOverdueEscrows(ctx, r.now(), r.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("reconcile: list overdue %w", err)
	}
	report.Overdue = len(overdue)
	metrics.SetOverdueEscrows(len(overdue))
	for _, p := range overdue {
		r.log.WithFields(logrus.Fields{
			"payment_id":   p.ID,
			"release_date": p.ReleaseDate,
		}).Info("escrow ожидает выплаты дольше рекомендуемого срока")
	}

	r.log.WithFields(logrus.Fields{
		"applied":  report.Applied,
		"resolved": report.Resolved,
		"failed":   report.Failed,
		"overdue":  report.Overdue,
	}).Info("проход сверки завершён")
	return report, nil
}

// Start запускает сверку по расписанию и блокируется до отмены ctx.
// Перед возвратом дожидается завершения текущего прохода.
func (r *Reconciler) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(logger.Log)),
		cron.SkipIfStillRunning(cron.PrintfLogger(logger.Log)),
	))
	if _, err := c.AddFunc(r.cfg.Schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.WithError(err).Error("проход сверки прерван")
		}
	}); err != nil {
		return fmt.Errorf("reconcile: schedule %q %w", r.cfg.Schedule, err)
	}

	r.log.WithField("schedule", r.cfg.Schedule).Info("сверка запущена")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	r.log.Info("сверка остановлена")
	return nil
}
