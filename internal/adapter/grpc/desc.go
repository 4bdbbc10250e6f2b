package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified name clients dial
const ServiceName = "walletledger.v1.WalletLedgerService"

// WalletLedgerServer is the server API for WalletLedgerService.
// Requests and responses are google.protobuf.Struct messages keyed by snake_case field names.
type WalletLedgerServer interface {
	CreateWallet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWallet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deposit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CrossCurrencyTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateScheduledPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetScheduledPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListScheduledPayments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PauseScheduledPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResumeScheduledPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelScheduledPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccountStatement(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMonthlySummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(WalletLedgerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(WalletLedgerServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes WalletLedgerService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WalletLedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateWallet", WalletLedgerServer.CreateWallet),
		unary("GetWallet", WalletLedgerServer.GetWallet),
		unary("GetBalance", WalletLedgerServer.GetBalance),
		unary("Deposit", WalletLedgerServer.Deposit),
		unary("Withdraw", WalletLedgerServer.Withdraw),
		unary("Transfer", WalletLedgerServer.Transfer),
		unary("GetTransaction", WalletLedgerServer.GetTransaction),
		unary("ListTransactions", WalletLedgerServer.ListTransactions),
		unary("CrossCurrencyTransfer", WalletLedgerServer.CrossCurrencyTransfer),
		unary("GetRates", WalletLedgerServer.GetRates),
		unary("GetRate", WalletLedgerServer.GetRate),
		unary("CreateScheduledPayment", WalletLedgerServer.CreateScheduledPayment),
		unary("GetScheduledPayment", WalletLedgerServer.GetScheduledPayment),
		unary("ListScheduledPayments", WalletLedgerServer.ListScheduledPayments),
		unary("PauseScheduledPayment", WalletLedgerServer.PauseScheduledPayment),
		unary("ResumeScheduledPayment", WalletLedgerServer.ResumeScheduledPayment),
		unary("CancelScheduledPayment", WalletLedgerServer.CancelScheduledPayment),
		unary("GetAccountStatement", WalletLedgerServer.GetAccountStatement),
		unary("GetMonthlySummary", WalletLedgerServer.GetMonthlySummary),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "walletledger/v1/service.proto",
}

// RegisterWalletLedgerServer registers srv on s
func RegisterWalletLedgerServer(s grpc.ServiceRegistrar, srv WalletLedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}
