// Package approval runs the pending-transfer workflow: members request
// deposits and withdrawals, approvers resolve them, and approved transfers
// move balances exactly once.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/guild-ledger/internal/audit"
	"github.com/Proton-105/guild-ledger/internal/authz"
	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
	"github.com/Proton-105/guild-ledger/internal/identity"
	"github.com/Proton-105/guild-ledger/internal/ledger"
	"github.com/Proton-105/guild-ledger/internal/transfer"
	"github.com/Proton-105/guild-ledger/pkg/metrics"
)

const (
	DefaultMaxAmount     domain.Amount = 100_000_000
	DefaultNotifyTimeout               = 5 * time.Second
	defaultHistoryLimit                = 10
)

// PolicySource yields the current authorization snapshot.
type PolicySource interface {
	Load() *authz.Policy
}

// Config tunes request validation and outbound delivery.
type Config struct {
	MaxAmount     domain.Amount
	NotifyTimeout time.Duration
}

// DepositRequest asks to credit Amount once an approver has checked ProofRef.
type DepositRequest struct {
	RequesterID int64
	ChannelID   int64
	Amount      domain.Amount
	Method      string
	Name        string
	ProofRef    string
}

// WithdrawalRequest asks to debit Amount.
type WithdrawalRequest struct {
	RequesterID int64
	ChannelID   int64
	Amount      domain.Amount
	Method      string
	Name        string
}

// ResolveRequest is an approver's decision on a pending transfer.
type ResolveRequest struct {
	TransferID string
	ResolverID int64
	ChannelID  int64
	Decision   domain.Decision
}

// Resolution describes a completed resolve.
type Resolution struct {
	Transfer   domain.PendingTransfer
	Decision   domain.Decision
	ResolverID int64
	Balance    domain.Amount
}

// BalanceView answers a balance query.
type BalanceView struct {
	Balance   domain.Amount
	Credit    domain.Amount
	BoundName string
}

// Service is the approval state machine.
type Service struct {
	identity  *identity.Registry
	ledger    ledger.Store
	transfers *transfer.Registry
	policy    PolicySource
	sink      Sink
	audit     audit.Log
	cfg       Config
	log       *slog.Logger
	handoff   *logHandoff
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Identity  *identity.Registry
	Ledger    ledger.Store
	Transfers *transfer.Registry
	Policy    PolicySource
	Sink      Sink
	Audit     audit.Log
	Logger    *slog.Logger
}

// NewService wires a Service. Sink and Audit default to no-ops.
func NewService(deps Deps, cfg Config) *Service {
	if cfg.MaxAmount <= 0 {
		cfg.MaxAmount = DefaultMaxAmount
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	sink := deps.Sink
	if sink == nil {
		sink = NopSink{}
	}

	auditLog := deps.Audit
	if auditLog == nil {
		auditLog = audit.NewMemoryLog()
	}

	transfers := deps.Transfers
	if transfers == nil {
		transfers = transfer.NewRegistry(nil)
	}

	return &Service{
		identity:  deps.Identity,
		ledger:    deps.Ledger,
		transfers: transfers,
		policy:    deps.Policy,
		sink:      sink,
		audit:     auditLog,
		cfg:       cfg,
		log:       log.With(slog.String("component", "approval")),
		handoff:   newLogHandoff(),
	}
}

// Register binds an in-game name to userID.
func (s *Service) Register(ctx context.Context, userID int64, name string) (string, error) {
	return s.identity.Register(ctx, userID, name)
}

// Balance returns the caller's balance, credit and bound name.
func (s *Service) Balance(ctx context.Context, userID int64) (BalanceView, error) {
	account, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return BalanceView{}, err
	}

	return BalanceView{
		Balance:   account.Balance,
		Credit:    account.Credit,
		BoundName: account.BoundName,
	}, nil
}

// RequestDeposit validates and records a deposit awaiting approval.
func (s *Service) RequestDeposit(ctx context.Context, req DepositRequest) (domain.PendingTransfer, error) {
	draft := domain.PendingTransfer{
		Kind:        domain.KindDeposit,
		RequesterID: req.RequesterID,
		ChannelID:   req.ChannelID,
		Amount:      req.Amount,
		Name:        strings.TrimSpace(req.Name),
		ProofRef:    strings.TrimSpace(req.ProofRef),
	}

	return s.request(ctx, draft, req.Method)
}

// RequestWithdrawal validates and records a withdrawal awaiting approval.
func (s *Service) RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (domain.PendingTransfer, error) {
	draft := domain.PendingTransfer{
		Kind:        domain.KindWithdrawal,
		RequesterID: req.RequesterID,
		ChannelID:   req.ChannelID,
		Amount:      req.Amount,
		Name:        strings.TrimSpace(req.Name),
	}

	return s.request(ctx, draft, req.Method)
}

func (s *Service) request(ctx context.Context, draft domain.PendingTransfer, method string) (domain.PendingTransfer, error) {
	record, err := s.createPending(ctx, draft, method)
	if err != nil {
		metrics.RecordTransferRequest(string(draft.Kind), outcomeOf(err))
		return domain.PendingTransfer{}, err
	}

	metrics.RecordTransferRequest(string(record.Kind), "created")

	s.log.Info("transfer requested",
		slog.String("transfer_id", record.ID),
		slog.String("kind", string(record.Kind)),
		slog.Int64("requester_id", record.RequesterID),
		slog.String("amount", record.Amount.String()),
		slog.String("method", string(record.Method)),
	)

	s.recordAudit(ctx, audit.NewEvent(record, audit.EventRequested, record.RequesterID, ""))

	s.handoff.begin(record.ID)
	ref, ok := s.postLog(ctx, LogEntry{Transfer: record, Status: LogPending})
	resolved, raced := s.handoff.land(record.ID, ok, ref, func() bool {
		if s.transfers.AttachLogRef(record.ID, ref) {
			record.LogRef = ref
			return true
		}
		return false
	})
	if raced {
		// resolved while the entry was being posted
		s.writeLog(ctx, ref, ok && !ref.Empty(), resolved)
	}

	s.notifyUser(ctx, record.RequesterID, Notice{Kind: NoticeRequested, Transfer: record})

	return record, nil
}

func (s *Service) createPending(ctx context.Context, draft domain.PendingTransfer, rawMethod string) (domain.PendingTransfer, error) {
	policy := s.policy.Load()
	if !policy.IsAllowedChannel(draft.ChannelID) {
		return domain.PendingTransfer{}, apperrors.NewForbiddenChannelError(draft.ChannelID)
	}

	method, err := domain.ParsePaymentMethod(rawMethod)
	if err != nil {
		return domain.PendingTransfer{}, apperrors.NewValidationError(
			fmt.Sprintf("Payment method must be one of: %s.", domain.PaymentMethodList()),
		)
	}
	draft.Method = method

	if draft.Amount <= 0 {
		return domain.PendingTransfer{}, apperrors.NewValidationError("Amount must be greater than zero.")
	}
	if draft.Amount > s.cfg.MaxAmount {
		return domain.PendingTransfer{}, apperrors.NewValidationError(
			fmt.Sprintf("Amount must not exceed %s.", s.cfg.MaxAmount),
		)
	}

	if draft.Kind == domain.KindDeposit && draft.ProofRef == "" {
		return domain.PendingTransfer{}, apperrors.NewValidationError("A screenshot proving the payment is required.")
	}

	if draft.Name == "" {
		return domain.PendingTransfer{}, apperrors.NewValidationError("In-game name is required.")
	}
	if err := s.identity.Verify(ctx, draft.RequesterID, draft.Name); err != nil {
		return domain.PendingTransfer{}, err
	}

	if draft.Kind == domain.KindWithdrawal {
		account, err := s.ledger.Get(ctx, draft.RequesterID)
		if err != nil {
			return domain.PendingTransfer{}, err
		}
		if account.Balance < draft.Amount {
			return domain.PendingTransfer{}, apperrors.NewInsufficientFundsError(account.Balance, draft.Amount)
		}
	}

	return s.transfers.Create(ctx, draft)
}

// Resolve approves or denies a pending transfer. Once the transfer is
// consumed the outcome is final: a ledger failure after that point yields
// ReconciliationRequired and the record is not restored.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (Resolution, error) {
	res, err := s.resolve(ctx, req)

	kind := string(res.Transfer.Kind)
	metrics.RecordResolution(kind, string(req.Decision), outcomeOf(err))

	return res, err
}

func (s *Service) resolve(ctx context.Context, req ResolveRequest) (Resolution, error) {
	policy := s.policy.Load()

	if !policy.IsAuthorizedResolver(req.ResolverID) {
		s.log.Warn("resolve attempt by non-approver",
			slog.Int64("user_id", req.ResolverID),
			slog.String("transfer_id", req.TransferID),
		)
		return Resolution{}, apperrors.NewUnauthorizedError(req.ResolverID, "not an approver")
	}
	if !policy.IsAllowedResolveChannel(req.ChannelID) {
		return Resolution{}, apperrors.NewForbiddenChannelError(req.ChannelID)
	}
	if !req.Decision.Valid() {
		return Resolution{}, apperrors.NewValidationError("Decision must be approve or deny.")
	}

	record, err := s.transfers.ConsumeIf(req.TransferID, func(p domain.PendingTransfer) error {
		return policy.CanResolve(req.ResolverID, p.Amount)
	})
	if err != nil {
		return Resolution{}, err
	}

	// Past this point the record is gone; the caller's cancellation must not
	// interrupt applying or reporting the outcome.
	ctx = context.WithoutCancel(ctx)

	res := Resolution{
		Transfer:   record,
		Decision:   req.Decision,
		ResolverID: req.ResolverID,
	}

	logAttrs := []any{
		slog.String("transfer_id", record.ID),
		slog.String("kind", string(record.Kind)),
		slog.Int64("requester_id", record.RequesterID),
		slog.Int64("resolver_id", req.ResolverID),
		slog.String("amount", record.Amount.String()),
	}

	if req.Decision == domain.DecisionDeny {
		s.log.Info("transfer denied", logAttrs...)
		s.recordAudit(ctx, audit.NewEvent(record, audit.EventDenied, req.ResolverID, ""))
		s.finish(ctx, record, LogEntry{Transfer: record, Status: LogDenied, ResolverID: req.ResolverID},
			Notice{Kind: NoticeDenied, Transfer: record})
		return res, nil
	}

	account, err := s.ledger.Apply(ctx, record.RequesterID, record.Delta())
	if err != nil {
		recErr := apperrors.NewReconciliationError(record.ID, err)
		metrics.RecordReconciliation()
		s.log.Error("transfer consumed but ledger update failed",
			append(logAttrs, slog.Any("error", err))...,
		)
		s.recordAudit(ctx, audit.NewEvent(record, audit.EventReconciliation, req.ResolverID, err.Error()))
		s.finish(ctx, record,
			LogEntry{Transfer: record, Status: LogReconciliation, ResolverID: req.ResolverID, Detail: err.Error()},
			Notice{Kind: NoticeReconciliation, Transfer: record},
		)
		return res, recErr
	}

	res.Balance = account.Balance

	s.log.Info("transfer approved", append(logAttrs, slog.String("balance", account.Balance.String()))...)
	s.recordAudit(ctx, audit.NewEvent(record, audit.EventApproved, req.ResolverID, ""))
	s.finish(ctx, record, LogEntry{Transfer: record, Status: LogApproved, ResolverID: req.ResolverID},
		Notice{Kind: NoticeApproved, Transfer: record, Balance: account.Balance})

	return res, nil
}

// Pending lists pending transfers for an approver.
func (s *Service) Pending(resolverID int64) ([]domain.PendingTransfer, error) {
	if !s.policy.Load().IsAuthorizedResolver(resolverID) {
		return nil, apperrors.NewUnauthorizedError(resolverID, "not an approver")
	}

	return s.transfers.List(), nil
}

// PendingTransfer shows a single pending transfer to an approver.
func (s *Service) PendingTransfer(resolverID int64, id string) (domain.PendingTransfer, error) {
	if !s.policy.Load().IsAuthorizedResolver(resolverID) {
		return domain.PendingTransfer{}, apperrors.NewUnauthorizedError(resolverID, "not an approver")
	}

	return s.transfers.Peek(id)
}

// PendingOlderThan returns transfers waiting longer than age.
func (s *Service) PendingOlderThan(age time.Duration, now time.Time) []domain.PendingTransfer {
	var stale []domain.PendingTransfer
	for _, p := range s.transfers.List() {
		if now.Sub(p.CreatedAt) >= age {
			stale = append(stale, p)
		}
	}
	return stale
}

// History returns the caller's recently resolved transfers, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return s.audit.History(ctx, userID, limit)
}

// ReportLostTransfers closes out transfers requested before bootTime that
// never reached a terminal state. Pending transfers live only in memory, so
// they were lost with the previous process; operators and requesters are told.
func (s *Service) ReportLostTransfers(ctx context.Context, bootTime time.Time) (int, error) {
	lost, err := s.audit.Unresolved(ctx, bootTime)
	if err != nil {
		return 0, fmt.Errorf("find unresolved transfers: %w", err)
	}

	for _, event := range lost {
		record := event.Transfer()

		s.log.Warn("pending transfer lost on restart",
			slog.String("transfer_id", record.ID),
			slog.String("kind", string(record.Kind)),
			slog.Int64("requester_id", record.RequesterID),
			slog.String("amount", record.Amount.String()),
		)

		s.recordAudit(ctx, audit.NewEvent(record, audit.EventExpired, 0, "lost on restart"))
		s.postLog(ctx, LogEntry{Transfer: record, Status: LogExpired})
		s.notifyUser(ctx, record.RequesterID, Notice{Kind: NoticeExpired, Transfer: record})
	}

	return len(lost), nil
}

func (s *Service) finish(ctx context.Context, record domain.PendingTransfer, entry LogEntry, notice Notice) {
	ref := record.LogRef
	deferred := false
	if ref.Empty() {
		ref, deferred = s.handoff.claim(record.ID, entry)
	}
	if !deferred {
		s.writeLog(ctx, ref, !ref.Empty(), entry)
	}

	s.notifyUser(ctx, record.RequesterID, notice)
}

// writeLog edits the entry at ref, or posts a new one when there is none.
func (s *Service) writeLog(ctx context.Context, ref domain.LogRef, hasRef bool, entry LogEntry) {
	if !hasRef {
		s.postLog(ctx, entry)
		return
	}
	s.deliver(ctx, "update_log", func(ctx context.Context) error {
		return s.sink.UpdateLog(ctx, ref, entry)
	})
}

func (s *Service) postLog(ctx context.Context, entry LogEntry) (domain.LogRef, bool) {
	var ref domain.LogRef
	ok := s.deliver(ctx, "send_to_log", func(ctx context.Context) error {
		var err error
		ref, err = s.sink.SendToLog(ctx, entry)
		return err
	})
	return ref, ok
}

func (s *Service) notifyUser(ctx context.Context, userID int64, notice Notice) {
	s.deliver(ctx, "send_to_user", func(ctx context.Context) error {
		return s.sink.SendToUser(ctx, userID, notice)
	})
}

// deliver runs one sink call under the notify timeout. Failures are logged
// and counted, never returned.
func (s *Service) deliver(ctx context.Context, operation string, fn func(context.Context) error) bool {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	defer cancel()

	if err := fn(callCtx); err != nil {
		metrics.RecordNotificationFailure(operation)
		s.log.Warn("notification delivery failed",
			slog.String("operation", operation),
			slog.Any("error", apperrors.NewNotificationError(operation, err)),
		)
		return false
	}

	return true
}

func (s *Service) recordAudit(ctx context.Context, event audit.Event) {
	if err := s.audit.Record(ctx, event); err != nil {
		s.log.Error("audit record failed",
			slog.String("transfer_id", event.TransferID),
			slog.String("event", string(event.Type)),
			slog.Any("error", err),
		)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code := apperrors.CodeOf(err); code != "" {
		return code
	}
	return "error"
}
