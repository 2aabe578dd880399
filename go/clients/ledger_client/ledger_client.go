package ledger_client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mcdev12/typeduel/go/clients"
	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1/ledgerv1connect"
	"github.com/mcdev12/typeduel/go/internal/models"
)

// LedgerClient talks to the race ledger on behalf of one participant. Every
// call carries the participant handle; ledger failures come back as the
// ledgerv1 sentinel errors.
type LedgerClient struct {
	*clients.BaseClient
	participant models.ParticipantID
	rpc         ledgerv1connect.LedgerServiceClient
}

func NewLedgerClient(baseURL string, participant models.ParticipantID) *LedgerClient {
	base := clients.NewBaseClient(baseURL)
	base.SetTimeout(10 * time.Second)
	base.SetHeader(ledgerv1.ParticipantHeader, string(participant))

	return &LedgerClient{
		BaseClient:  base,
		participant: participant,
		rpc:         ledgerv1connect.NewLedgerServiceClient(base, baseURL),
	}
}

// Participant is the identity this client acts as.
func (c *LedgerClient) Participant() models.ParticipantID {
	return c.participant
}

// Ping checks that the ledger server is reachable.
func (c *LedgerClient) Ping(ctx context.Context) error {
	if _, err := c.Get(ctx, HealthEndpoint); err != nil {
		return fmt.Errorf("ledger health check: %w", err)
	}
	return nil
}

func (c *LedgerClient) CreateSession(ctx context.Context, text string, stake *big.Int) (models.SessionID, error) {
	resp, err := c.rpc.CreateSession(ctx, connect.NewRequest(&ledgerv1.CreateSessionRequest{
		Text:  text,
		Stake: ledgerv1.FormatAmount(stake),
	}))
	if err != nil {
		return 0, fmt.Errorf("create session: %w", ledgerv1.FromConnectError(err))
	}
	return models.SessionID(resp.Msg.SessionID), nil
}

func (c *LedgerClient) GetSession(ctx context.Context, id models.SessionID) (*models.Session, error) {
	resp, err := c.rpc.GetSession(ctx, connect.NewRequest(&ledgerv1.GetSessionRequest{
		SessionID: uint64(id),
	}))
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, ledgerv1.FromConnectError(err))
	}
	session, err := resp.Msg.Session.ToModel()
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return session, nil
}

func (c *LedgerClient) GetTotalSessionCount(ctx context.Context) (uint64, error) {
	resp, err := c.rpc.GetTotalSessionCount(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return 0, fmt.Errorf("get session count: %w", ledgerv1.FromConnectError(err))
	}
	return resp.Msg.GetValue(), nil
}

func (c *LedgerClient) JoinSession(ctx context.Context, id models.SessionID, stake *big.Int) error {
	_, err := c.rpc.JoinSession(ctx, connect.NewRequest(&ledgerv1.JoinSessionRequest{
		SessionID: uint64(id),
		Stake:     ledgerv1.FormatAmount(stake),
	}))
	if err != nil {
		return fmt.Errorf("join session %s: %w", id, ledgerv1.FromConnectError(err))
	}
	return nil
}

func (c *LedgerClient) SignalReady(ctx context.Context, id models.SessionID) error {
	_, err := c.rpc.SignalReady(ctx, connect.NewRequest(&ledgerv1.SignalReadyRequest{
		SessionID: uint64(id),
	}))
	if err != nil {
		return fmt.Errorf("signal ready on session %s: %w", id, ledgerv1.FromConnectError(err))
	}
	return nil
}

func (c *LedgerClient) SubmitScore(ctx context.Context, id models.SessionID, words int) error {
	_, err := c.rpc.SubmitScore(ctx, connect.NewRequest(&ledgerv1.SubmitScoreRequest{
		SessionID:      uint64(id),
		WordsCompleted: words,
	}))
	if err != nil {
		return fmt.Errorf("submit score on session %s: %w", id, ledgerv1.FromConnectError(err))
	}
	return nil
}

func (c *LedgerClient) CancelSession(ctx context.Context, id models.SessionID) error {
	_, err := c.rpc.CancelSession(ctx, connect.NewRequest(&ledgerv1.CancelSessionRequest{
		SessionID: uint64(id),
	}))
	if err != nil {
		return fmt.Errorf("cancel session %s: %w", id, ledgerv1.FromConnectError(err))
	}
	return nil
}

func (c *LedgerClient) GetParticipantScore(ctx context.Context, id models.SessionID, p models.ParticipantID) (int, error) {
	resp, err := c.rpc.GetParticipantScore(ctx, connect.NewRequest(&ledgerv1.GetParticipantScoreRequest{
		SessionID:   uint64(id),
		Participant: string(p),
	}))
	if err != nil {
		return 0, fmt.Errorf("get score of %s on session %s: %w", p.Short(), id, ledgerv1.FromConnectError(err))
	}
	return resp.Msg.Score, nil
}
