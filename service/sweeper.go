package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kevinaaaquil/bookstore/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrSweepInProgress is returned by RunOnce while another sweep is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// ReminderWindow is how far ahead of the due date reminders go out.
const ReminderWindow = 48 * time.Hour

// SweepStore is what the sweeper reads and records.
type SweepStore interface {
	RentalsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Transaction, error)
	RentalsEndedBefore(ctx context.Context, t time.Time, statuses ...models.TransactionStatus) ([]models.Transaction, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	InsertNotificationLog(ctx context.Context, log *models.NotificationLog) error
}

// OverdueMarker moves an active rental to overdue.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
}

type SweepReport struct {
	Reminded      int `json:"reminded"`
	MarkedOverdue int `json:"markedOverdue"`
	Failed        int `json:"failed"`
}

// Touched is the number of transactions the sweep acted on.
func (r SweepReport) Touched() int { return r.Reminded + r.MarkedOverdue }

// Schedule is a daily start time followed by a fixed interval.
type Schedule struct {
	Hour, Minute int
	Interval     time.Duration
}

// Next returns the first run time at or after now.
func (s Schedule) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	if next.Before(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

type Sweeper struct {
	store    SweepStore
	marker   OverdueMarker
	notifier Notifier
	schedule Schedule
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(store SweepStore, marker OverdueMarker, notifier Notifier, schedule Schedule, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if schedule.Interval <= 0 {
		schedule.Interval = 24 * time.Hour
	}
	return &Sweeper{
		store:    store,
		marker:   marker,
		notifier: notifier,
		schedule: schedule,
		logger:   logger.With("component", "sweeper"),
		now:      time.Now,
	}
}

// Start runs sweeps on the schedule until Stop is called or ctx is done.
// Calling Start on a running sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	first := s.schedule.Next(s.now())
	s.logger.Info("sweeper scheduled", "first_run", first, "interval", s.schedule.Interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(time.Until(first))
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if _, err := s.RunOnce(ctx, s.now()); err != nil {
					s.logger.Error("scheduled sweep", "error", err)
				}
				timer.Reset(s.schedule.Interval)
			}
		}
	}()
}

// Stop cancels the schedule and waits for a running sweep to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

// RunOnce performs the reminder pass and then the overdue pass as of now.
// Failures on single transactions are logged and counted, never returned.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (SweepReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SweepReport{}, ErrSweepInProgress
	}
	defer s.running.Store(false)

	var report SweepReport
	started := time.Now()

	due, err := s.store.RentalsEndingBetween(ctx, now, now.Add(ReminderWindow))
	if err != nil {
		return report, fmt.Errorf("reminder pass: %w", err)
	}
	for i := range due {
		tx := &due[i]
		if err := s.notify(ctx, tx, models.NoticeRentalReminder); err != nil {
			report.Failed++
			s.logger.Warn("rental reminder failed", "transaction_id", tx.ID.Hex(), "error", err)
			continue
		}
		report.Reminded++
	}

	expired, err := s.store.RentalsEndedBefore(ctx, now, models.StatusActiveRental)
	if err != nil {
		return report, fmt.Errorf("overdue pass: %w", err)
	}
	for i := range expired {
		tx := &expired[i]
		if _, err := s.marker.MarkOverdue(ctx, tx); err != nil {
			report.Failed++
			s.logger.Warn("mark overdue failed", "transaction_id", tx.ID.Hex(), "error", err)
			continue
		}
		report.MarkedOverdue++
		if err := s.notify(ctx, tx, models.NoticeRentalOverdue); err != nil {
			report.Failed++
			s.logger.Warn("overdue notice failed", "transaction_id", tx.ID.Hex(), "error", err)
		}
	}

	s.logger.Info("sweep finished",
		"reminded", report.Reminded,
		"marked_overdue", report.MarkedOverdue,
		"failed", report.Failed,
		"duration", time.Since(started))
	return report, nil
}

func (s *Sweeper) notify(ctx context.Context, tx *models.Transaction, kind models.NoticeKind) error {
	user, err := s.store.UserByID(ctx, tx.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	notice := Notice{Kind: kind, To: user.Email, Username: user.Username, BookTitle: "your book"}
	if book, err := s.store.BookByID(ctx, tx.BookID); err == nil {
		notice.BookTitle = book.Title
	}
	if tx.RentalEndDate != nil {
		notice.DueDate = *tx.RentalEndDate
	}

	sendErr := s.notifier.Notify(ctx, notice)
	entry := &models.NotificationLog{
		Kind:          kind,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		BookID:        tx.BookID,
		ToEmail:       user.Email,
		SentAt:        s.now().UTC(),
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if err := s.store.InsertNotificationLog(ctx, entry); err != nil {
		s.logger.Warn("record notification", "transaction_id", tx.ID.Hex(), "error", err)
	}
	return sendErr
}
