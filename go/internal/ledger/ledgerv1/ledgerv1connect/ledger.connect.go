// Package ledgerv1connect binds the ledger service to Connect clients and
// handlers.
package ledgerv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// LedgerServiceClient is a client for the ledger service.
type LedgerServiceClient interface {
	CreateSession(context.Context, *connect.Request[ledgerv1.CreateSessionRequest]) (*connect.Response[ledgerv1.CreateSessionResponse], error)
	GetSession(context.Context, *connect.Request[ledgerv1.GetSessionRequest]) (*connect.Response[ledgerv1.GetSessionResponse], error)
	GetTotalSessionCount(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.UInt64Value], error)
	JoinSession(context.Context, *connect.Request[ledgerv1.JoinSessionRequest]) (*connect.Response[ledgerv1.JoinSessionResponse], error)
	SignalReady(context.Context, *connect.Request[ledgerv1.SignalReadyRequest]) (*connect.Response[ledgerv1.SignalReadyResponse], error)
	SubmitScore(context.Context, *connect.Request[ledgerv1.SubmitScoreRequest]) (*connect.Response[ledgerv1.SubmitScoreResponse], error)
	CancelSession(context.Context, *connect.Request[ledgerv1.CancelSessionRequest]) (*connect.Response[ledgerv1.CancelSessionResponse], error)
	GetParticipantScore(context.Context, *connect.Request[ledgerv1.GetParticipantScoreRequest]) (*connect.Response[ledgerv1.GetParticipantScoreResponse], error)
}

// NewLedgerServiceClient constructs a client for the ledger service. The
// ledger JSON codec is always applied.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{ledgerv1.WithCodec()}, opts...)
	return &ledgerServiceClient{
		createSession:        connect.NewClient[ledgerv1.CreateSessionRequest, ledgerv1.CreateSessionResponse](httpClient, baseURL+ledgerv1.CreateSessionProcedure, opts...),
		getSession:           connect.NewClient[ledgerv1.GetSessionRequest, ledgerv1.GetSessionResponse](httpClient, baseURL+ledgerv1.GetSessionProcedure, opts...),
		getTotalSessionCount: connect.NewClient[emptypb.Empty, wrapperspb.UInt64Value](httpClient, baseURL+ledgerv1.GetTotalSessionCountProcedure, opts...),
		joinSession:          connect.NewClient[ledgerv1.JoinSessionRequest, ledgerv1.JoinSessionResponse](httpClient, baseURL+ledgerv1.JoinSessionProcedure, opts...),
		signalReady:          connect.NewClient[ledgerv1.SignalReadyRequest, ledgerv1.SignalReadyResponse](httpClient, baseURL+ledgerv1.SignalReadyProcedure, opts...),
		submitScore:          connect.NewClient[ledgerv1.SubmitScoreRequest, ledgerv1.SubmitScoreResponse](httpClient, baseURL+ledgerv1.SubmitScoreProcedure, opts...),
		cancelSession:        connect.NewClient[ledgerv1.CancelSessionRequest, ledgerv1.CancelSessionResponse](httpClient, baseURL+ledgerv1.CancelSessionProcedure, opts...),
		getParticipantScore:  connect.NewClient[ledgerv1.GetParticipantScoreRequest, ledgerv1.GetParticipantScoreResponse](httpClient, baseURL+ledgerv1.GetParticipantScoreProcedure, opts...),
	}
}

type ledgerServiceClient struct {
	createSession        *connect.Client[ledgerv1.CreateSessionRequest, ledgerv1.CreateSessionResponse]
	getSession           *connect.Client[ledgerv1.GetSessionRequest, ledgerv1.GetSessionResponse]
	getTotalSessionCount *connect.Client[emptypb.Empty, wrapperspb.UInt64Value]
	joinSession          *connect.Client[ledgerv1.JoinSessionRequest, ledgerv1.JoinSessionResponse]
	signalReady          *connect.Client[ledgerv1.SignalReadyRequest, ledgerv1.SignalReadyResponse]
	submitScore          *connect.Client[ledgerv1.SubmitScoreRequest, ledgerv1.SubmitScoreResponse]
	cancelSession        *connect.Client[ledgerv1.CancelSessionRequest, ledgerv1.CancelSessionResponse]
	getParticipantScore  *connect.Client[ledgerv1.GetParticipantScoreRequest, ledgerv1.GetParticipantScoreResponse]
}

func (c *ledgerServiceClient) CreateSession(ctx context.Context, req *connect.Request[ledgerv1.CreateSessionRequest]) (*connect.Response[ledgerv1.CreateSessionResponse], error) {
	return c.createSession.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetSession(ctx context.Context, req *connect.Request[ledgerv1.GetSessionRequest]) (*connect.Response[ledgerv1.GetSessionResponse], error) {
	return c.getSession.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetTotalSessionCount(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.UInt64Value], error) {
	return c.getTotalSessionCount.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) JoinSession(ctx context.Context, req *connect.Request[ledgerv1.JoinSessionRequest]) (*connect.Response[ledgerv1.JoinSessionResponse], error) {
	return c.joinSession.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) SignalReady(ctx context.Context, req *connect.Request[ledgerv1.SignalReadyRequest]) (*connect.Response[ledgerv1.SignalReadyResponse], error) {
	return c.signalReady.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) SubmitScore(ctx context.Context, req *connect.Request[ledgerv1.SubmitScoreRequest]) (*connect.Response[ledgerv1.SubmitScoreResponse], error) {
	return c.submitScore.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) CancelSession(ctx context.Context, req *connect.Request[ledgerv1.CancelSessionRequest]) (*connect.Response[ledgerv1.CancelSessionResponse], error) {
	return c.cancelSession.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetParticipantScore(ctx context.Context, req *connect.Request[ledgerv1.GetParticipantScoreRequest]) (*connect.Response[ledgerv1.GetParticipantScoreResponse], error) {
	return c.getParticipantScore.CallUnary(ctx, req)
}

// LedgerServiceHandler is implemented by the ledger server.
type LedgerServiceHandler interface {
	CreateSession(context.Context, *connect.Request[ledgerv1.CreateSessionRequest]) (*connect.Response[ledgerv1.CreateSessionResponse], error)
	GetSession(context.Context, *connect.Request[ledgerv1.GetSessionRequest]) (*connect.Response[ledgerv1.GetSessionResponse], error)
	GetTotalSessionCount(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.UInt64Value], error)
	JoinSession(context.Context, *connect.Request[ledgerv1.JoinSessionRequest]) (*connect.Response[ledgerv1.JoinSessionResponse], error)
	SignalReady(context.Context, *connect.Request[ledgerv1.SignalReadyRequest]) (*connect.Response[ledgerv1.SignalReadyResponse], error)
	SubmitScore(context.Context, *connect.Request[ledgerv1.SubmitScoreRequest]) (*connect.Response[ledgerv1.SubmitScoreResponse], error)
	CancelSession(context.Context, *connect.Request[ledgerv1.CancelSessionRequest]) (*connect.Response[ledgerv1.CancelSessionResponse], error)
	GetParticipantScore(context.Context, *connect.Request[ledgerv1.GetParticipantScoreRequest]) (*connect.Response[ledgerv1.GetParticipantScoreResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service
// implementation and returns the path to mount it on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{ledgerv1.WithCodec()}, opts...)
	routes := map[string]http.Handler{
		ledgerv1.CreateSessionProcedure:        connect.NewUnaryHandler(ledgerv1.CreateSessionProcedure, svc.CreateSession, opts...),
		ledgerv1.GetSessionProcedure:           connect.NewUnaryHandler(ledgerv1.GetSessionProcedure, svc.GetSession, opts...),
		ledgerv1.GetTotalSessionCountProcedure: connect.NewUnaryHandler(ledgerv1.GetTotalSessionCountProcedure, svc.GetTotalSessionCount, opts...),
		ledgerv1.JoinSessionProcedure:          connect.NewUnaryHandler(ledgerv1.JoinSessionProcedure, svc.JoinSession, opts...),
		ledgerv1.SignalReadyProcedure:          connect.NewUnaryHandler(ledgerv1.SignalReadyProcedure, svc.SignalReady, opts...),
		ledgerv1.SubmitScoreProcedure:          connect.NewUnaryHandler(ledgerv1.SubmitScoreProcedure, svc.SubmitScore, opts...),
		ledgerv1.CancelSessionProcedure:        connect.NewUnaryHandler(ledgerv1.CancelSessionProcedure, svc.CancelSession, opts...),
		ledgerv1.GetParticipantScoreProcedure:  connect.NewUnaryHandler(ledgerv1.GetParticipantScoreProcedure, svc.GetParticipantScore, opts...),
	}
	return "/" + ledgerv1.LedgerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}
