package ledger

import (
	"context"
	"math/big"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1/ledgerv1connect"
	"github.com/mcdev12/typeduel/go/internal/models"
)

// LedgerApp defines what the service layer needs from the ledger application
type LedgerApp interface {
	CreateSession(ctx context.Context, caller models.ParticipantID, text string, stake *big.Int) (models.SessionID, error)
	GetSession(ctx context.Context, id models.SessionID) (*models.Session, error)
	GetTotalSessionCount(ctx context.Context) (uint64, error)
	JoinSession(ctx context.Context, caller models.ParticipantID, id models.SessionID, stake *big.Int) error
	SignalReady(ctx context.Context, caller models.ParticipantID, id models.SessionID) error
	SubmitScore(ctx context.Context, caller models.ParticipantID, id models.SessionID, words int) error
	CancelSession(ctx context.Context, caller models.ParticipantID, id models.SessionID) error
	GetParticipantScore(ctx context.Context, id models.SessionID, p models.ParticipantID) (int, error)
}

// Service implements the LedgerService Connect interface
type Service struct {
	app LedgerApp
}

// NewService creates a new ledger Connect service
func NewService(app LedgerApp) *Service {
	return &Service{
		app: app,
	}
}

// Verify that Service implements the LedgerServiceHandler interface
var _ ledgerv1connect.LedgerServiceHandler = (*Service)(nil)

func (s *Service) CreateSession(ctx context.Context, req *connect.Request[ledgerv1.CreateSessionRequest]) (*connect.Response[ledgerv1.CreateSessionResponse], error) {
	stake, err := ledgerv1.ParseAmount(req.Msg.Stake)
	if err != nil {
		return nil, ledgerv1.ToConnectError(ledgerv1.ErrInvalidStake)
	}

	id, err := s.app.CreateSession(ctx, callerOf(req), req.Msg.Text, stake)
	if err != nil {
		return nil, ledgerv1.ToConnectError(err)
	}

	return connect.NewResponse(&ledgerv1.CreateSessionResponse{
		SessionID: uint64(id),
	}), nil
}

func (s *Service) GetSession(ctx context.Context, req *connect.Request[ledgerv1.GetSessionRequest]) (*connect.Response[ledgerv1.GetSessionResponse], error) {
	session, err := s.app.GetSession(ctx, models.SessionID(req.Msg.SessionID))
	if err != nil {
		return nil, ledgerv1.ToConnectError(err)
	}

	return connect.NewResponse(&ledgerv1.GetSessionResponse{
		Session: ledgerv1.SessionFromModel(session),
	}), nil
}

func (s *Service) GetTotalSessionCount(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.UInt64Value], error) {
	n, err := s.app.GetTotalSessionCount(ctx)
	if err != nil {
		return nil, ledgerv1.ToConnectError(err)
	}
	return connect.NewResponse(wrapperspb.UInt64(n)), nil
}

func (s *Service) JoinSession(ctx context.Context, req *connect.Request[ledgerv1.JoinSessionRequest]) (*connect.Response[ledgerv1.JoinSessionResponse], error) {
	stake, err := ledgerv1.ParseAmount(req.Msg.Stake)
	if err != nil {
		return nil, ledgerv1.ToConnectError(ledgerv1.ErrStakeMismatch)
	}

	if err := s.app.JoinSession(ctx, callerOf(req), models.SessionID(req.Msg.SessionID), stake); err != nil {
		return nil, ledgerv1.ToConnectError(err)
	}
	return connect.NewResponse(&ledgerv1.JoinSessionResponse{}), nil
}

func (s *Service) SignalReady(ctx context.Context, req *connect.Request[ledgerv1.SignalReadyRequest]) (*connect.Response[ledgerv1.SignalReadyResponse], error) {
	if err := s.app.SignalReady(ctx, callerOf(req), models.SessionID(req.Msg.SessionID)); err != nil {
		return nil, ledgerv1.ToConnectError(err)
	}
	return connect.NewResponse(&ledgerv1.SignalReadyResponse{}), nil
}

func (s *Service) SubmitScore(ctx context.Context, req *connect.Request[ledgerv1.SubmitScoreRequest]) (*connect.Response[ledgerv1.SubmitScoreResponse], error) {
	err := s.app.SubmitScore(ctx, callerOf(req), models.SessionID(req.Msg.SessionID), req.Msg.WordsCompleted)
	if err != nil {
		return nil, ledgerv1.ToConnectError(err)
	}
	return connect.NewResponse(&ledgerv1.SubmitScoreResponse{}), nil
}

func (s *Service) CancelSession(ctx context.Context, req *connect.Request[ledgerv1.CancelSessionRequest]) (*connect.Response[ledgerv1.CancelSessionResponse], error) {
	if err := s.app.CancelSession(ctx, callerOf(req), models.SessionID(req.Msg.SessionID)); err != nil {
		return nil, ledgerv1.ToConnectError(err)
	}
	return connect.NewResponse(&ledgerv1.CancelSessionResponse{}), nil
}

func (s *Service) GetParticipantScore(ctx context.Context, req *connect.Request[ledgerv1.GetParticipantScoreRequest]) (*connect.Response[ledgerv1.GetParticipantScoreResponse], error) {
	score, err := s.app.GetParticipantScore(ctx, models.SessionID(req.Msg.SessionID), models.ParticipantID(req.Msg.Participant))
	if err != nil {
		return nil, ledgerv1.ToConnectError(err)
	}
	return connect.NewResponse(&ledgerv1.GetParticipantScoreResponse{
		Score: score,
	}), nil
}

type headered interface {
	Header() http.Header
}

func callerOf(req headered) models.ParticipantID {
	return models.ParticipantID(req.Header().Get(ledgerv1.ParticipantHeader))
}
