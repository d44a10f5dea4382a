package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/lock"
)

const (
	OutcomeSubmitted = "submitted"
	OutcomeApproved  = "approved"
	OutcomeRejected  = "rejected"
	OutcomeForwarded = "forwarded"
	OutcomeOverride  = "override"
	OutcomeCancelled = "cancelled"
	OutcomeConflict  = "conflict"
)

// Recorder counts request outcomes.
type Recorder interface {
	RecordDecision(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(string) {}

type Service struct {
	Store      Store
	Directory  directory.Directory
	Router     *Router
	Escalation EscalationResolver
	Locker     lock.Locker
	Recorder   Recorder
	// RecordFont is an optional UTF-8 TrueType font for approval record PDFs.
	RecordFont string

	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

type Option func(*Service)

func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.Locker = l }
}

func WithAuthority(table AuthorityTable) Option {
	return func(s *Service) { s.Escalation = EscalationResolver{Authority: table} }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.Recorder = r }
}

func WithRecordFont(path string) Option {
	return func(s *Service) { s.RecordFont = path }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, dir directory.Directory, opts ...Option) *Service {
	s := &Service{
		Store:      store,
		Directory:  dir,
		Escalation: EscalationResolver{Authority: DefaultAuthority()},
		Locker:     lock.NewLocal(),
		Recorder:   nopRecorder{},
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.Router = NewRouter(s.logger)
	s.logger = s.logger.Named("leave.service")
	return s
}

// Submit creates a PENDING request assigned to its initial approver.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Request, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validateSubmission(in); err != nil {
		s.logger.Warn("submit validation failed", zap.String("applicant_id", in.ApplicantID), zap.Error(err))
		return Request{}, err
	}

	var approver directory.User
	err := s.Directory.Snapshot(ctx, func(view directory.Reader) error {
		applicant, err := view.GetUser(ctx, in.ApplicantID)
		if err != nil {
			return lookupErr(err)
		}
		if len(applicant.Roles) == 0 {
			return invalidField("applicantId", "holds no role")
		}
		approver, err = s.Router.InitialApprover(ctx, view, applicant)
		return err
	})
	if err != nil {
		s.logger.Warn("submit failed", zap.String("applicant_id", in.ApplicantID), zap.Error(err))
		return Request{}, err
	}

	now := s.now().UTC()
	req := Request{
		ID:                s.newID(),
		ApplicantID:       in.ApplicantID,
		LeaveType:         in.LeaveType,
		StartDate:         dateOnly(in.StartDate),
		EndDate:           dateOnly(in.EndDate),
		Reason:            in.Reason,
		Status:            StatusPending,
		CurrentApproverID: approver.ID,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Store.CreateRequest(ctx, req); err != nil {
		return Request{}, err
	}

	s.Recorder.RecordDecision(OutcomeSubmitted)
	s.logger.Info("leave request submitted",
		zap.String("request_id", req.ID),
		zap.String("applicant_id", req.ApplicantID),
		zap.String("approver_id", req.CurrentApproverID),
		zap.Int("days", req.DurationDays()),
	)
	return req, nil
}

type transition struct {
	next    Request
	entry   HistoryEntry
	outcome string
}

// Act applies one approve or reject decision and returns the request with its full history.
func (s *Service) Act(ctx context.Context, in ActionInput) (Detail, error) {
	if in.Decision != DecisionApproved && in.Decision != DecisionRejected {
		return Detail{}, invalidField("decision", "must be APPROVED or REJECTED")
	}
	if err := validateComments(in.Comments); err != nil {
		return Detail{}, err
	}

	release, err := s.acquire(ctx, in.RequestID)
	if err != nil {
		return Detail{}, err
	}
	defer release()

	req, err := s.Store.GetRequest(ctx, in.RequestID)
	if err != nil {
		return Detail{}, err
	}

	var plan transition
	err = s.Directory.Snapshot(ctx, func(view directory.Reader) error {
		actor, err := view.GetUser(ctx, in.ActorID)
		if err != nil {
			return lookupErr(err)
		}
		if err := CheckTransition(req.Status, operationFor(in.Decision)); err != nil {
			return err
		}
		plan, err = s.decide(ctx, view, req, actor, in)
		return err
	})
	if err != nil {
		s.logger.Warn("leave action refused",
			zap.String("request_id", in.RequestID),
			zap.String("actor_id", in.ActorID),
			zap.String("decision", string(in.Decision)),
			zap.Error(err),
		)
		return Detail{}, err
	}

	history, err := s.Store.HistoryFor(ctx, req.ID)
	if err != nil {
		return Detail{}, err
	}
	plan.entry.Timestamp = s.stamp(history)
	plan.next.UpdatedAt = plan.entry.Timestamp

	if err := s.Store.Transition(ctx, plan.next, req.Version, &plan.entry); err != nil {
		if errors.Is(err, ErrConflict) {
			s.Recorder.RecordDecision(OutcomeConflict)
		}
		return Detail{}, err
	}

	s.Recorder.RecordDecision(plan.outcome)
	s.logger.Info("leave action applied",
		zap.String("request_id", req.ID),
		zap.String("actor_id", in.ActorID),
		zap.String("outcome", plan.outcome),
		zap.String("status", string(plan.next.Status)),
		zap.String("approver_id", plan.next.CurrentApproverID),
	)
	return newDetail(plan.next, append(history, plan.entry)), nil
}

func (s *Service) decide(ctx context.Context, view directory.Reader, req Request, actor directory.User, in ActionInput) (transition, error) {
	next := req
	next.Version = req.Version + 1
	entry := HistoryEntry{
		ID:             s.newID(),
		LeaveRequestID: req.ID,
		ApproverID:     actor.ID,
		Decision:       in.Decision,
		Comments:       strings.TrimSpace(in.Comments),
	}

	if actor.HasRole(auth.RoleAdmin) {
		entry.Comments = annotate(overrideMark, in.Comments)
		next.Status = statusFor(in.Decision)
		next.CurrentApproverID = ""
		return transition{next: next, entry: entry, outcome: OutcomeOverride}, nil
	}

	if req.CurrentApproverID == "" || req.CurrentApproverID != actor.ID {
		return transition{}, fmt.Errorf("%w: user %s is not the current approver of request %s", ErrPermissionDenied, actor.ID, req.ID)
	}

	if in.Decision == DecisionRejected {
		next.Status = StatusRejected
		next.CurrentApproverID = ""
		return transition{next: next, entry: entry, outcome: OutcomeRejected}, nil
	}

	role, ok := ApprovingRole(actor.Roles)
	if !ok {
		return transition{}, fmt.Errorf("%w: approver %s holds no approving role", ErrConfiguration, actor.ID)
	}
	days := req.DurationDays()

	// Advisory only. Escalation.Next makes the binding comparison.
	if !s.Escalation.Authority.Sufficient(role, days) {
		entry.Comments = annotate(forwardedMark, in.Comments)
		s.logger.Debug("approval exceeds authority, forwarding",
			zap.String("request_id", req.ID),
			zap.String("role", string(role)),
			zap.Int("days", days),
		)
	}

	successor, escalate, err := s.Escalation.Next(ctx, view, role, days)
	if err != nil {
		return transition{}, err
	}
	if escalate {
		next.CurrentApproverID = successor.ID
		return transition{next: next, entry: entry, outcome: OutcomeForwarded}, nil
	}
	next.Status = StatusApproved
	next.CurrentApproverID = ""
	return transition{next: next, entry: entry, outcome: OutcomeApproved}, nil
}

// Cancel withdraws a PENDING request on behalf of its applicant. No history entry is written.
func (s *Service) Cancel(ctx context.Context, requestID, actorID string) (Request, error) {
	release, err := s.acquire(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	defer release()

	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if _, err := s.Directory.GetUser(ctx, actorID); err != nil {
		return Request{}, lookupErr(err)
	}
	if err := CheckTransition(req.Status, OpCancel); err != nil {
		return Request{}, err
	}
	if req.ApplicantID != actorID {
		return Request{}, fmt.Errorf("%w: only the applicant may cancel request %s", ErrPermissionDenied, req.ID)
	}

	next := req
	next.Status = StatusCancelled
	next.CurrentApproverID = ""
	next.Version = req.Version + 1
	next.UpdatedAt = s.now().UTC()
	if err := s.Store.Transition(ctx, next, req.Version, nil); err != nil {
		if errors.Is(err, ErrConflict) {
			s.Recorder.RecordDecision(OutcomeConflict)
		}
		return Request{}, err
	}

	s.Recorder.RecordDecision(OutcomeCancelled)
	s.logger.Info("leave request cancelled", zap.String("request_id", req.ID), zap.String("actor_id", actorID))
	return next, nil
}

// Get returns a request with its history. Only parties to the request, HR and admins may view it.
func (s *Service) Get(ctx context.Context, requestID, viewerID string) (Detail, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return Detail{}, err
	}
	viewer, err := s.Directory.GetUser(ctx, viewerID)
	if err != nil {
		return Detail{}, lookupErr(err)
	}
	history, err := s.Store.HistoryFor(ctx, req.ID)
	if err != nil {
		return Detail{}, err
	}
	if !canView(req, history, viewer) {
		return Detail{}, fmt.Errorf("%w: user %s may not view request %s", ErrPermissionDenied, viewerID, requestID)
	}
	return newDetail(req, history), nil
}

func (s *Service) ListMine(ctx context.Context, applicantID string, page Page) ([]Request, error) {
	return s.Store.ListByApplicant(ctx, applicantID, page)
}

// ListByStatus is the administrative view across all applicants, newest first.
func (s *Service) ListByStatus(ctx context.Context, status Status, page Page) ([]Request, error) {
	return s.Store.ListByStatus(ctx, status, page)
}

// ListPending returns the requests waiting on viewer. Admins see every pending request.
func (s *Service) ListPending(ctx context.Context, viewerID string, page Page) ([]Request, error) {
	viewer, err := s.Directory.GetUser(ctx, viewerID)
	if err != nil {
		return nil, lookupErr(err)
	}
	if viewer.HasRole(auth.RoleAdmin) {
		return s.Store.ListByStatus(ctx, StatusPending, page)
	}
	return s.Store.ListPendingFor(ctx, viewerID, page)
}

func (s *Service) acquire(ctx context.Context, requestID string) (func(), error) {
	release, err := s.Locker.TryLock(ctx, "leave:"+requestID)
	if errors.Is(err, lock.ErrLocked) {
		s.Recorder.RecordDecision(OutcomeConflict)
		return nil, fmt.Errorf("%w: request %s is being processed", ErrConflict, requestID)
	}
	if err != nil {
		return nil, err
	}
	return release, nil
}

// stamp never goes backwards relative to the last recorded entry.
func (s *Service) stamp(history []HistoryEntry) time.Time {
	now := s.now().UTC()
	if n := len(history); n > 0 && history[n-1].Timestamp.After(now) {
		return history[n-1].Timestamp
	}
	return now
}

func canView(req Request, history []HistoryEntry, viewer directory.User) bool {
	if viewer.ID == req.ApplicantID || viewer.ID == req.CurrentApproverID {
		return true
	}
	if viewer.HasRole(auth.RoleAdmin) || viewer.HasRole(auth.RoleHR) {
		return true
	}
	for _, entry := range history {
		if entry.ApproverID == viewer.ID {
			return true
		}
	}
	return false
}

func lookupErr(err error) error {
	if errors.Is(err, directory.ErrUserNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
