package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/walletledger-backend/internal/domain"
	"github.com/simaogato/walletledger-backend/internal/usecase/exchange"
	"github.com/simaogato/walletledger-backend/internal/usecase/reporting"
	"github.com/simaogato/walletledger-backend/internal/usecase/scheduling"
	"github.com/simaogato/walletledger-backend/internal/usecase/transfer"
	"github.com/simaogato/walletledger-backend/internal/usecase/wallet"
)

// Server implements the WalletLedgerService gRPC server
type Server struct {
	WalletService     *wallet.WalletService
	TransferService   *transfer.TransferService
	ExchangeService   *exchange.ExchangeService
	SchedulingService *scheduling.SchedulingService
	ReportingService  *reporting.ReportingService
}

var _ WalletLedgerServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	walletService *wallet.WalletService,
	transferService *transfer.TransferService,
	exchangeService *exchange.ExchangeService,
	schedulingService *scheduling.SchedulingService,
	reportingService *reporting.ReportingService,
) *Server {
	return &Server{
		WalletService:     walletService,
		TransferService:   transferService,
		ExchangeService:   exchangeService,
		SchedulingService: schedulingService,
		ReportingService:  reportingService,
	}
}

// CreateWallet handles the CreateWallet RPC
func (s *Server) CreateWallet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)

	out, err := s.WalletService.CreateWallet(ctx, r.str("currency"))
	if err != nil {
		return nil, mapError(err)
	}
	return response(map[string]any{"wallet": walletToMap(out.Wallet)})
}

// GetWallet handles the GetWallet RPC
// The response carries the full ledger when include_entries is true
func (s *Server) GetWallet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	walletID, err := r.uuid("wallet_id")
	if err != nil {
		return nil, err
	}

	w, err := s.WalletService.GetWallet(ctx, walletID)
	if err != nil {
		return nil, mapError(err)
	}

	resp := map[string]any{"wallet": walletToMap(w)}
	if v, ok := req.GetFields()["include_entries"]; ok && v.GetBoolValue() {
		entries := make([]any, 0, len(w.Entries()))
		for _, e := range w.Entries() {
			entries = append(entries, entryToMap(e))
		}
		resp["entries"] = entries
	}
	return response(resp)
}

// GetBalance handles the GetBalance RPC
func (s *Server) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	walletID, err := r.uuid("wallet_id")
	if err != nil {
		return nil, err
	}

	balance, err := s.WalletService.GetBalance(ctx, walletID)
	if err != nil {
		return nil, mapError(err)
	}
	return response(map[string]any{
		"wallet_id": walletID.String(),
		"balance":   amount(balance),
		"currency":  balance.Currency().Code(),
	})
}

// Deposit handles the Deposit RPC
func (s *Server) Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	walletID, err := r.uuid("wallet_id")
	if err != nil {
		return nil, err
	}
	value, err := r.decimal("amount")
	if err != nil {
		return nil, err
	}

	out, err := s.WalletService.Deposit(ctx, wallet.DepositInput{
		WalletID:    walletID,
		Amount:      value,
		Currency:    r.str("currency"),
		Description: r.str("description"),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return movementResponse(out)
}

// Withdraw handles the Withdraw RPC
func (s *Server) Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	walletID, err := r.uuid("wallet_id")
	if err != nil {
		return nil, err
	}
	value, err := r.decimal("amount")
	if err != nil {
		return nil, err
	}

	out, err := s.WalletService.Withdraw(ctx, wallet.WithdrawInput{
		WalletID:    walletID,
		Amount:      value,
		Currency:    r.str("currency"),
		Description: r.str("description"),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return movementResponse(out)
}

func movementResponse(out *wallet.MovementOutput) (*structpb.Struct, error) {
	return response(map[string]any{
		"entry":   entryToMap(out.Entry),
		"balance": amount(out.Balance),
	})
}

// Transfer handles the Transfer RPC
func (s *Server) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	sourceID, err := r.uuid("source_wallet_id")
	if err != nil {
		return nil, err
	}
	destinationID, err := r.uuid("destination_wallet_id")
	if err != nil {
		return nil, err
	}
	value, err := r.decimal("amount")
	if err != nil {
		return nil, err
	}

	out, err := s.TransferService.Transfer(ctx, transfer.TransferInput{
		SourceWalletID:      sourceID,
		DestinationWalletID: destinationID,
		Amount:              value,
		Currency:            r.str("currency"),
		Description:         r.str("description"),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return response(map[string]any{"transaction": transactionToMap(out.Transaction)})
}

// GetTransaction handles the GetTransaction RPC
func (s *Server) GetTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	id, err := r.uuid("transaction_id")
	if err != nil {
		return nil, err
	}

	tx, err := s.TransferService.GetTransaction(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return response(map[string]any{"transaction": transactionToMap(tx)})
}

// ListTransactions handles the ListTransactions RPC
func (s *Server) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	limit, err := r.int("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.int("offset")
	if err != nil {
		return nil, err
	}
	walletID, err := r.optionalUUID("wallet_id")
	if err != nil {
		return nil, err
	}

	txs, total, err := s.TransferService.ListTransactions(ctx, limit, offset, walletID)
	if err != nil {
		return nil, mapError(err)
	}

	list := make([]any, 0, len(txs))
	for _, tx := range txs {
		list = append(list, transactionToMap(tx))
	}
	return response(map[string]any{
		"transactions": list,
		"total_count":  total,
	})
}

// CrossCurrencyTransfer handles the CrossCurrencyTransfer RPC
func (s *Server) CrossCurrencyTransfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	sourceID, err := r.uuid("source_wallet_id")
	if err != nil {
		return nil, err
	}
	destinationID, err := r.uuid("destination_wallet_id")
	if err != nil {
		return nil, err
	}
	value, err := r.decimal("amount")
	if err != nil {
		return nil, err
	}

	out, err := s.ExchangeService.CrossCurrencyTransfer(ctx, exchange.CrossCurrencyTransferInput{
		SourceWalletID:      sourceID,
		DestinationWalletID: destinationID,
		Amount:              value,
		SourceCurrency:      r.str("source_currency"),
		TargetCurrency:      r.str("target_currency"),
		Description:         r.str("description"),
	})
	if err != nil {
		return nil, mapError(err)
	}
	return response(map[string]any{
		"transaction":     transactionToMap(out.Transaction),
		"source_amount":   amount(out.SourceAmount),
		"source_currency": out.SourceAmount.Currency().Code(),
		"target_amount":   amount(out.TargetAmount),
		"target_currency": out.TargetAmount.Currency().Code(),
		"fee":             amount(out.Fee),
		"rate":            rateToMap(out.Rate),
		"timestamp":       timestamp(out.Timestamp),
	})
}

// GetRates handles the GetRates RPC
func (s *Server) GetRates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	base := r.str("base")
	if base == "" {
		base = "USD"
	}

	rates, err := s.ExchangeService.GetRates(ctx, base)
	if err != nil {
		return nil, mapError(err)
	}
	return response(map[string]any{
		"base":  base,
		"rates": decimalsToMap(rates),
	})
}

// GetRate handles the GetRate RPC
func (s *Server) GetRate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)

	rate, err := s.ExchangeService.GetRate(ctx, r.str("source"), r.str("target"))
	if err != nil {
		return nil, mapError(err)
	}
	return response(map[string]any{"rate": rateToMap(rate)})
}

// CreateScheduledPayment handles the CreateScheduledPayment RPC
func (s *Server) CreateScheduledPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	sourceID, err := r.uuid("source_wallet_id")
	if err != nil {
		return nil, err
	}
	destinationID, err := r.uuid("destination_wallet_id")
	if err != nil {
		return nil, err
	}
	value, err := r.decimal("amount")
	if err != nil {
		return nil, err
	}
	startDate, err := r.date("start_date")
	if err != nil {
		return nil, err
	}
	endDate, err := r.optionalDate("end_date")
	if err != nil {
		return nil, err
	}
	maxExecutions, err := r.int("max_executions")
	if err != nil {
		return nil, err
	}

	payment, err := s.SchedulingService.Create(ctx, scheduling.CreateInput{
		SourceWalletID:      sourceID,
		DestinationWalletID: destinationID,
		Amount:              value,
		Currency:            r.str("currency"),
		Description:         r.str("description"),
		Pattern:             r.str("pattern"),
		StartDate:           startDate,
		EndDate:             endDate,
		MaxExecutions:       maxExecutions,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return paymentResponse(payment)
}

// GetScheduledPayment handles the GetScheduledPayment RPC
func (s *Server) GetScheduledPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.paymentCall(ctx, req, s.SchedulingService.Get)
}

// ListScheduledPayments handles the ListScheduledPayments RPC
func (s *Server) ListScheduledPayments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	walletID, err := r.uuid("wallet_id")
	if err != nil {
		return nil, err
	}

	payments, err := s.SchedulingService.ListForWallet(ctx, walletID)
	if err != nil {
		return nil, mapError(err)
	}

	list := make([]any, 0, len(payments))
	for _, p := range payments {
		list = append(list, paymentToMap(p))
	}
	return response(map[string]any{"payments": list})
}

// PauseScheduledPayment handles the PauseScheduledPayment RPC
func (s *Server) PauseScheduledPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.paymentCall(ctx, req, s.SchedulingService.Pause)
}

// ResumeScheduledPayment handles the ResumeScheduledPayment RPC
func (s *Server) ResumeScheduledPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.paymentCall(ctx, req, s.SchedulingService.Resume)
}

// CancelScheduledPayment handles the CancelScheduledPayment RPC
func (s *Server) CancelScheduledPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.paymentCall(ctx, req, s.SchedulingService.Cancel)
}

func (s *Server) paymentCall(
	ctx context.Context,
	req *structpb.Struct,
	call func(context.Context, uuid.UUID) (domain.ScheduledPayment, error),
) (*structpb.Struct, error) {
	id, err := newRequest(req).uuid("payment_id")
	if err != nil {
		return nil, err
	}

	payment, err := call(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return paymentResponse(payment)
}

func paymentResponse(p domain.ScheduledPayment) (*structpb.Struct, error) {
	return response(map[string]any{"payment": paymentToMap(p)})
}

// GetAccountStatement handles the GetAccountStatement RPC
func (s *Server) GetAccountStatement(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	walletID, err := r.uuid("wallet_id")
	if err != nil {
		return nil, err
	}
	from, err := r.date("from")
	if err != nil {
		return nil, err
	}
	to, err := r.date("to")
	if err != nil {
		return nil, err
	}

	stmt, err := s.ReportingService.AccountStatement(ctx, walletID, from, to)
	if err != nil {
		return nil, mapError(err)
	}

	lines := make([]any, 0, len(stmt.Lines))
	for _, line := range stmt.Lines {
		m := entryToMap(line.Entry)
		m["running_balance"] = fixed(line.RunningBalance)
		lines = append(lines, m)
	}
	return response(map[string]any{
		"wallet_id":       stmt.WalletID.String(),
		"currency":        stmt.Currency.Code(),
		"from":            stmt.From.Format(dateLayout),
		"to":              stmt.To.Format(dateLayout),
		"opening_balance": amount(stmt.OpeningBalance),
		"closing_balance": amount(stmt.ClosingBalance),
		"entry_count":     stmt.EntryCount,
		"lines":           lines,
	})
}

// GetMonthlySummary handles the GetMonthlySummary RPC
func (s *Server) GetMonthlySummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	walletID, err := r.uuid("wallet_id")
	if err != nil {
		return nil, err
	}
	year, err := r.int("year")
	if err != nil {
		return nil, err
	}
	month, err := r.int("month")
	if err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, status.Errorf(codes.InvalidArgument, "month must be between 1 and 12")
	}

	summary, err := s.ReportingService.MonthlySummary(ctx, walletID, year, time.Month(month))
	if err != nil {
		return nil, mapError(err)
	}

	categories := make(map[string]any, len(summary.SpendingByCategory))
	for k, v := range summary.SpendingByCategory {
		categories[k] = fixed(v)
	}
	return response(map[string]any{
		"wallet_id":            summary.WalletID.String(),
		"currency":             summary.Currency.Code(),
		"year":                 summary.Year,
		"month":                int(summary.Month),
		"total_deposits":       fixed(summary.TotalDeposits),
		"total_withdrawals":    fixed(summary.TotalWithdrawals),
		"transfers_in":         fixed(summary.TransfersIn),
		"transfers_out":        fixed(summary.TransfersOut),
		"net_change":           fixed(summary.NetChange),
		"opening_balance":      amount(summary.OpeningBalance),
		"closing_balance":      amount(summary.ClosingBalance),
		"entry_count":          summary.EntryCount,
		"spending_by_category": categories,
	})
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	errorMsg := err.Error()
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrCurrencyMismatch):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrStaleRate),
		errors.Is(err, domain.ErrIllegalStateTransition):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", errorMsg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
