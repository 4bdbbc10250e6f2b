package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/walletledger-backend/internal/domain"
	"github.com/simaogato/walletledger-backend/internal/usecase/transfer"
)

const (
	defaultConcurrency       = 4
	defaultReminderDaysAhead = 2

	// NotificationKindReminder marks upcoming-payment reminders
	NotificationKindReminder = "scheduled_payment_reminder"
)

// Transferer executes a same-currency transfer
type Transferer interface {
	Transfer(ctx context.Context, input transfer.TransferInput) (*transfer.TransferOutput, error)
}

// CreateInput represents the input for scheduling a payment
// Pattern ONCE creates a one-time payment on StartDate; EndDate and MaxExecutions are then ignored
type CreateInput struct {
	SourceWalletID      uuid.UUID
	DestinationWalletID uuid.UUID
	Amount              decimal.Decimal
	Currency            string
	Description         string
	Pattern             string
	StartDate           time.Time
	EndDate             *time.Time
	MaxExecutions       int
}

// PaymentFailure records why one payment of a batch did not execute
type PaymentFailure struct {
	PaymentID uuid.UUID
	Err       error
	Parked    bool
}

// ExecutionReport summarizes one ExecuteDuePayments run
type ExecutionReport struct {
	Due       int
	Succeeded int
	Skipped   int
	Failures  []PaymentFailure
}

// SchedulingService manages scheduled payments and drives their execution
type SchedulingService struct {
	PaymentRepo       domain.ScheduledPaymentRepository
	WalletRepo        domain.WalletRepository
	Transactor        domain.Transactor
	Locker            domain.WalletLocker
	Transfers         Transferer
	Publisher         domain.EventPublisher
	Notifier          domain.Notifier
	Logger            *zap.Logger
	Concurrency       int
	ReminderDaysAhead int
	Now               func() time.Time
}

// NewSchedulingService creates a new SchedulingService instance
func NewSchedulingService(
	paymentRepo domain.ScheduledPaymentRepository,
	walletRepo domain.WalletRepository,
	transactor domain.Transactor,
	locker domain.WalletLocker,
	transfers Transferer,
	publisher domain.EventPublisher,
	notifier domain.Notifier,
	logger *zap.Logger,
) *SchedulingService {
	return &SchedulingService{
		PaymentRepo:       paymentRepo,
		WalletRepo:        walletRepo,
		Transactor:        transactor,
		Locker:            locker,
		Transfers:         transfers,
		Publisher:         publisher,
		Notifier:          notifier,
		Logger:            logger,
		Concurrency:       defaultConcurrency,
		ReminderDaysAhead: defaultReminderDaysAhead,
		Now:               time.Now,
	}
}

// Create schedules a one-time or recurring payment
// Logic:
//  1. Both wallets must exist
//  2. The amount must be in the source wallet's currency
//  3. ONCE builds a one-time payment (date must not be in the past), anything else a recurring one
func (s *SchedulingService) Create(ctx context.Context, input CreateInput) (domain.ScheduledPayment, error) {
	pattern, err := domain.ParseRecurrencePattern(input.Pattern)
	if err != nil {
		return domain.ScheduledPayment{}, err
	}

	source, err := s.WalletRepo.LoadWallet(ctx, input.SourceWalletID)
	if err != nil {
		return domain.ScheduledPayment{}, err
	}
	if _, err := s.WalletRepo.LoadWallet(ctx, input.DestinationWalletID); err != nil {
		return domain.ScheduledPayment{}, err
	}

	amount, err := domain.MoneyOfCode(input.Amount, input.Currency)
	if err != nil {
		return domain.ScheduledPayment{}, err
	}
	if amount.Currency() != source.Currency() {
		return domain.ScheduledPayment{}, &domain.CurrencyMismatchError{Expected: source.Currency(), Actual: amount.Currency()}
	}

	now := s.Now()
	var payment domain.ScheduledPayment
	if pattern == domain.RecurrenceOnce {
		payment, err = domain.CreateOneTime(input.SourceWalletID, input.DestinationWalletID, amount, input.Description, input.StartDate, now)
	} else {
		payment, err = domain.CreateRecurring(input.SourceWalletID, input.DestinationWalletID, amount, input.Description,
			pattern, input.StartDate, input.EndDate, input.MaxExecutions, now)
	}
	if err != nil {
		return domain.ScheduledPayment{}, err
	}

	if err := s.PaymentRepo.Save(ctx, payment); err != nil {
		return domain.ScheduledPayment{}, fmt.Errorf("failed to save scheduled payment: %w", err)
	}

	s.Logger.Info("scheduled payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("pattern", string(payment.Pattern)),
	)
	return payment, nil
}

// Get retrieves a scheduled payment
func (s *SchedulingService) Get(ctx context.Context, id uuid.UUID) (domain.ScheduledPayment, error) {
	return s.PaymentRepo.FindByID(ctx, id)
}

// ListForWallet lists the payments funded by walletID
func (s *SchedulingService) ListForWallet(ctx context.Context, walletID uuid.UUID) ([]domain.ScheduledPayment, error) {
	return s.PaymentRepo.FindBySourceWalletID(ctx, walletID)
}

// Pause moves an ACTIVE payment to PAUSED
func (s *SchedulingService) Pause(ctx context.Context, id uuid.UUID) (domain.ScheduledPayment, error) {
	return s.transition(ctx, id, "paused", domain.ScheduledPayment.Pause)
}

// Resume moves a PAUSED payment back to ACTIVE
func (s *SchedulingService) Resume(ctx context.Context, id uuid.UUID) (domain.ScheduledPayment, error) {
	return s.transition(ctx, id, "resumed", domain.ScheduledPayment.Resume)
}

// Cancel moves any non-terminal payment to CANCELLED
func (s *SchedulingService) Cancel(ctx context.Context, id uuid.UUID) (domain.ScheduledPayment, error) {
	return s.transition(ctx, id, "cancelled", domain.ScheduledPayment.Cancel)
}

// transition re-reads the payment under its wallet locks, applies the state change and saves it
// Holding the wallet locks serializes transitions with a batch executing the same payment.
func (s *SchedulingService) transition(
	ctx context.Context,
	id uuid.UUID,
	verb string,
	apply func(domain.ScheduledPayment, time.Time) (domain.ScheduledPayment, error),
) (domain.ScheduledPayment, error) {
	payment, err := s.PaymentRepo.FindByID(ctx, id)
	if err != nil {
		return domain.ScheduledPayment{}, err
	}

	var next domain.ScheduledPayment
	ids := []uuid.UUID{payment.SourceWalletID, payment.DestinationWalletID}
	err = s.Locker.WithWalletLocks(ctx, ids, func(ctx context.Context) error {
		return s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			current, err := s.PaymentRepo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			next, err = apply(current, s.Now())
			if err != nil {
				return err
			}
			if err := s.PaymentRepo.Save(ctx, next); err != nil {
				return fmt.Errorf("failed to save scheduled payment: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return domain.ScheduledPayment{}, err
	}

	s.Logger.Info("scheduled payment "+verb, zap.String("payment_id", id.String()))
	return next, nil
}

// ExecuteDuePayments runs every ACTIVE payment due today through the transfer engine
// Logic:
//  1. Pull all due payments
//  2. Execute each on a bounded worker group; wallet locks serialize payments that share a wallet
//  3. Under the locks, re-read the payment and skip it unless it is still ACTIVE and due
//     (cancelled, paused or already executed by an overlapping run since the scan)
//  4. Save WithExecution of the re-read payment in the same transaction as the transfer
//  5. On failure: log, publish ScheduledPaymentFailed and continue with the others.
//     Permanent failures park the payment as FAILED; the rest stay ACTIVE for the next run
//
// The returned error is non-nil only when the due payments cannot be listed.
func (s *SchedulingService) ExecuteDuePayments(ctx context.Context) (*ExecutionReport, error) {
	today := domain.DateOf(s.Now())
	due, err := s.PaymentRepo.FindDuePayments(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to find due payments: %w", err)
	}
	s.Logger.Info("found due scheduled payments", zap.Int("count", len(due)))

	report := &ExecutionReport{Due: len(due)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.concurrency())
	for _, payment := range due {
		payment := payment
		g.Go(func() error {
			err := s.executePayment(ctx, payment, today)
			var failure PaymentFailure
			failed := err != nil && !errors.Is(err, errNoLongerDue)
			if failed {
				failure = s.handleFailure(ctx, payment, err)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Succeeded++
			case failed:
				report.Failures = append(report.Failures, failure)
			default:
				report.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.Logger.Info("scheduled payment run finished",
		zap.Int("due", report.Due),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
	)
	return report, nil
}

// errNoLongerDue marks a scanned payment that changed before its wallet locks were taken
var errNoLongerDue = errors.New("scheduled payment is no longer due")

func (s *SchedulingService) executePayment(ctx context.Context, payment domain.ScheduledPayment, today time.Time) error {
	s.Logger.Info("executing scheduled payment", zap.String("payment_id", payment.ID.String()))

	var executed domain.ScheduledPayment
	var out *transfer.TransferOutput
	ids := []uuid.UUID{payment.SourceWalletID, payment.DestinationWalletID}
	err := s.Locker.WithWalletLocks(ctx, ids, func(ctx context.Context) error {
		return s.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			current, err := s.PaymentRepo.FindByID(ctx, payment.ID)
			if err != nil {
				return err
			}
			if !current.IsDue(today) {
				return errNoLongerDue
			}

			executed = current.WithExecution(s.Now())
			if err := s.PaymentRepo.Save(ctx, executed); err != nil {
				return fmt.Errorf("failed to save scheduled payment: %w", err)
			}

			out, err = s.Transfers.Transfer(ctx, transfer.TransferInput{
				SourceWalletID:      current.SourceWalletID,
				DestinationWalletID: current.DestinationWalletID,
				Amount:              current.Amount.Amount(),
				Currency:            current.Amount.Currency().Code(),
				Description:         "Scheduled: " + current.Description,
			})
			return err
		})
	})
	if errors.Is(err, errNoLongerDue) {
		s.Logger.Info("skipping scheduled payment no longer due", zap.String("payment_id", payment.ID.String()))
		return err
	}
	if err != nil {
		return err
	}

	s.publish(ctx, domain.NewScheduledPaymentExecuted(executed, out.Transaction.ID, s.Now()))
	s.Logger.Info("scheduled payment executed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("transaction_id", out.Transaction.ID.String()),
		zap.String("status", string(executed.Status)),
	)
	return nil
}

func (s *SchedulingService) handleFailure(ctx context.Context, payment domain.ScheduledPayment, cause error) PaymentFailure {
	failure := PaymentFailure{PaymentID: payment.ID, Err: cause}

	if isPermanent(cause) {
		if _, err := s.transition(ctx, payment.ID, "parked", domain.ScheduledPayment.MarkFailed); err != nil {
			s.Logger.Error("failed to park scheduled payment",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
		} else {
			failure.Parked = true
		}
	}

	s.Logger.Error("failed to execute scheduled payment",
		zap.String("payment_id", payment.ID.String()),
		zap.Bool("parked", failure.Parked),
		zap.Error(cause),
	)
	s.publish(ctx, domain.NewScheduledPaymentFailed(payment, cause, failure.Parked, s.Now()))
	return failure
}

// isPermanent reports failures that will not go away by retrying on the next run
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrCurrencyMismatch) ||
		errors.Is(err, domain.ErrValidation)
}

// SendReminders notifies the owners of payments due within ReminderDaysAhead days
// A failed notification is logged and does not stop the others
func (s *SchedulingService) SendReminders(ctx context.Context) (int, error) {
	upcoming, err := s.PaymentRepo.FindUpcomingPayments(ctx, s.Now(), s.ReminderDaysAhead)
	if err != nil {
		return 0, fmt.Errorf("failed to find upcoming payments: %w", err)
	}
	s.Logger.Info("sending reminders for upcoming payments", zap.Int("count", len(upcoming)))

	sent := 0
	for _, payment := range upcoming {
		n := domain.Notification{
			Kind:     NotificationKindReminder,
			WalletID: payment.SourceWalletID,
			Subject:  "Upcoming scheduled payment",
			Body: fmt.Sprintf("Payment %s of %s is scheduled for %s",
				payment.ID, payment.Amount, payment.NextExecutionDate.Format("2006-01-02")),
		}
		if err := s.Notifier.Notify(ctx, n); err != nil {
			s.Logger.Warn("failed to send payment reminder",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *SchedulingService) publish(ctx context.Context, events ...domain.Event) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, events...); err != nil {
		s.Logger.Warn("failed to publish events", zap.Error(err))
	}
}

func (s *SchedulingService) concurrency() int {
	if s.Concurrency < 1 {
		return 1
	}
	return s.Concurrency
}
