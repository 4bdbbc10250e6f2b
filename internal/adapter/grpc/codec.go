package grpc

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/walletledger-backend/internal/domain"
)

const dateLayout = "2006-01-02"

// request reads typed fields out of a Struct request
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(s *structpb.Struct) request {
	return request{fields: s.GetFields()}
}

func (r request) has(key string) bool {
	v, ok := r.fields[key]
	if !ok {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

func (r request) str(key string) string {
	v, ok := r.fields[key]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	}
	return ""
}

func (r request) uuid(key string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.str(key))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return id, nil
}

// optionalUUID returns nil when key is absent or empty
func (r request) optionalUUID(key string) (*uuid.UUID, error) {
	if r.str(key) == "" {
		return nil, nil
	}
	id, err := r.uuid(key)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// decimal accepts both "12.34" and 12.34
func (r request) decimal(key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(r.str(key))
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return d, nil
}

func (r request) int(key string) (int, error) {
	v, ok := r.fields[key]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return int(k.NumberValue), nil
	case *structpb.Value_StringValue:
		n, err := strconv.Atoi(k.StringValue)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
		}
		return n, nil
	}
	return 0, nil
}

func (r request) date(key string) (time.Time, error) {
	t, err := time.Parse(dateLayout, r.str(key))
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return t, nil
}

func (r request) optionalDate(key string) (*time.Time, error) {
	if r.str(key) == "" {
		return nil, nil
	}
	t, err := r.date(key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func response(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func amount(m domain.Money) string {
	return m.Amount().StringFixed(domain.MoneyScale)
}

func walletToMap(w *domain.Wallet) map[string]any {
	balance := w.CalculateBalance()
	return map[string]any{
		"id":          w.ID().String(),
		"currency":    w.Currency().Code(),
		"balance":     amount(balance),
		"entry_count": len(w.Entries()),
		"created_at":  timestamp(w.CreatedAt()),
	}
}

func entryToMap(e domain.LedgerEntry) map[string]any {
	return map[string]any{
		"id":             e.ID.String(),
		"wallet_id":      e.WalletID.String(),
		"transaction_id": e.TransactionID.String(),
		"type":           string(e.Type),
		"amount":         amount(e.Amount),
		"currency":       e.Amount.Currency().Code(),
		"description":    e.Description,
		"created_at":     timestamp(e.CreatedAt),
	}
}

func transactionToMap(tx *domain.Transaction) map[string]any {
	return map[string]any{
		"id":                    tx.ID.String(),
		"source_wallet_id":      tx.SourceWalletID.String(),
		"destination_wallet_id": tx.DestinationWalletID.String(),
		"amount":                amount(tx.Amount),
		"currency":              tx.Amount.Currency().Code(),
		"description":           tx.Description,
		"status":                string(tx.Status),
		"created_at":            timestamp(tx.CreatedAt),
	}
}

func paymentToMap(p domain.ScheduledPayment) map[string]any {
	m := map[string]any{
		"id":                    p.ID.String(),
		"source_wallet_id":      p.SourceWalletID.String(),
		"destination_wallet_id": p.DestinationWalletID.String(),
		"amount":                amount(p.Amount),
		"currency":              p.Amount.Currency().Code(),
		"description":           p.Description,
		"pattern":               string(p.Pattern),
		"start_date":            p.StartDate.Format(dateLayout),
		"end_date":              nil,
		"next_execution_date":   nil,
		"execution_count":       p.ExecutionCount,
		"max_executions":        p.MaxExecutions,
		"status":                string(p.Status),
		"created_at":            timestamp(p.CreatedAt),
		"last_modified_at":      timestamp(p.LastModifiedAt),
	}
	if p.EndDate != nil {
		m["end_date"] = p.EndDate.Format(dateLayout)
	}
	if p.NextExecutionDate != nil {
		m["next_execution_date"] = p.NextExecutionDate.Format(dateLayout)
	}
	return m
}

func rateToMap(r domain.ExchangeRate) map[string]any {
	return map[string]any{
		"source":    r.Source().Code(),
		"target":    r.Target().Code(),
		"rate":      r.Rate().String(),
		"timestamp": timestamp(r.Timestamp()),
	}
}

func decimalsToMap(values map[string]decimal.Decimal) map[string]any {
	m := make(map[string]any, len(values))
	for k, v := range values {
		m[k] = v.String()
	}
	return m
}
