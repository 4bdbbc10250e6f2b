package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

// Spending categories used by MonthlySummary
const (
	CategoryCashWithdrawal = "Cash Withdrawal"
	CategoryTransfers      = "Transfers"
	CategoryBillPayments   = "Bill Payments"
	CategoryShopping       = "Shopping"
	CategoryOther          = "Other"
)

// StatementLine is one ledger entry with the balance right after it
type StatementLine struct {
	Entry          domain.LedgerEntry
	RunningBalance decimal.Decimal
}

// Statement lists a wallet's entries over a date range
type Statement struct {
	WalletID       uuid.UUID
	Currency       domain.Currency
	From           time.Time
	To             time.Time
	OpeningBalance domain.Money
	ClosingBalance domain.Money
	Lines          []StatementLine
	EntryCount     int
}

// MonthlySummary aggregates one calendar month of a wallet's ledger
type MonthlySummary struct {
	WalletID           uuid.UUID
	Currency           domain.Currency
	Year               int
	Month              time.Month
	TotalDeposits      decimal.Decimal
	TotalWithdrawals   decimal.Decimal
	TransfersIn        decimal.Decimal
	TransfersOut       decimal.Decimal
	NetChange          decimal.Decimal
	OpeningBalance     domain.Money
	ClosingBalance     domain.Money
	EntryCount         int
	SpendingByCategory map[string]decimal.Decimal
}

// ReportingService builds read-only views over wallet ledgers
type ReportingService struct {
	WalletRepo domain.WalletRepository
}

// NewReportingService creates a new ReportingService instance
func NewReportingService(walletRepo domain.WalletRepository) *ReportingService {
	return &ReportingService{WalletRepo: walletRepo}
}

// AccountStatement lists the entries created between from and to (both dates inclusive)
// Logic:
//   - Opening: balance folded from every entry created before from
//   - Lines: entries in range ordered by creation time, each with the running balance
//   - Closing: balance folded from every entry up to the end of to
func (s *ReportingService) AccountStatement(ctx context.Context, walletID uuid.UUID, from, to time.Time) (*Statement, error) {
	start := domain.DateOf(from)
	end := domain.DateOf(to).AddDate(0, 0, 1)
	if !end.After(start) {
		return nil, fmt.Errorf("%w: statement end date must not be before start date", domain.ErrValidation)
	}

	w, err := s.WalletRepo.LoadWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	before, in := splitEntries(w.Entries(), start, end)
	opening := domain.BalanceOf(w.Currency(), before)

	running := opening.Amount()
	lines := make([]StatementLine, 0, len(in))
	for _, e := range in {
		running = running.Add(e.SignedAmount())
		lines = append(lines, StatementLine{Entry: e, RunningBalance: running})
	}

	return &Statement{
		WalletID:       walletID,
		Currency:       w.Currency(),
		From:           start,
		To:             domain.DateOf(to),
		OpeningBalance: opening,
		ClosingBalance: domain.BalanceOf(w.Currency(), append(before, in...)),
		Lines:          lines,
		EntryCount:     len(lines),
	}, nil
}

// MonthlySummary aggregates the entries of one calendar month
// Credits whose description mentions "transfer from" count as incoming transfers, other credits as deposits.
// Debits whose description mentions "transfer to" count as outgoing transfers, other debits as withdrawals.
// Every debit is also added to a spending category.
func (s *ReportingService) MonthlySummary(ctx context.Context, walletID uuid.UUID, year int, month time.Month) (*MonthlySummary, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: invalid month: %d", domain.ErrValidation, month)
	}
	if year < 1 {
		return nil, fmt.Errorf("%w: invalid year: %d", domain.ErrValidation, year)
	}

	w, err := s.WalletRepo.LoadWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	before, in := splitEntries(w.Entries(), start, end)

	summary := &MonthlySummary{
		WalletID:           walletID,
		Currency:           w.Currency(),
		Year:               year,
		Month:              month,
		TotalDeposits:      decimal.Zero,
		TotalWithdrawals:   decimal.Zero,
		TransfersIn:        decimal.Zero,
		TransfersOut:       decimal.Zero,
		NetChange:          decimal.Zero,
		OpeningBalance:     domain.BalanceOf(w.Currency(), before),
		ClosingBalance:     domain.BalanceOf(w.Currency(), append(before, in...)),
		EntryCount:         len(in),
		SpendingByCategory: make(map[string]decimal.Decimal),
	}

	for _, e := range in {
		amount := e.Amount.Amount()
		description := strings.ToLower(e.Description)
		summary.NetChange = summary.NetChange.Add(e.SignedAmount())

		if e.IsCredit() {
			if strings.Contains(description, "transfer from") {
				summary.TransfersIn = summary.TransfersIn.Add(amount)
			} else {
				summary.TotalDeposits = summary.TotalDeposits.Add(amount)
			}
			continue
		}

		if strings.Contains(description, "transfer to") {
			summary.TransfersOut = summary.TransfersOut.Add(amount)
		} else {
			summary.TotalWithdrawals = summary.TotalWithdrawals.Add(amount)
		}
		category := Categorize(e.Description)
		summary.SpendingByCategory[category] = summary.SpendingByCategory[category].Add(amount)
	}

	return summary, nil
}

// Categorize maps a debit description to a spending category
func Categorize(description string) string {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "atm"), strings.Contains(d, "cash"):
		return CategoryCashWithdrawal
	case strings.Contains(d, "transfer"):
		return CategoryTransfers
	case strings.Contains(d, "payment"), strings.Contains(d, "bill"):
		return CategoryBillPayments
	case strings.Contains(d, "purchase"), strings.Contains(d, "shop"):
		return CategoryShopping
	default:
		return CategoryOther
	}
}

// splitEntries returns the entries created before start, and those in [start, end) ordered by creation time
func splitEntries(entries []domain.LedgerEntry, start, end time.Time) (before, in []domain.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	for _, e := range entries {
		switch {
		case e.CreatedAt.Before(start):
			before = append(before, e)
		case e.CreatedAt.Before(end):
			in = append(in, e)
		}
	}
	return before, in
}
