package leave

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
)

func TestSubmitAssignsInitialApprover(t *testing.T) {
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 2)

	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, "tl-1", req.CurrentApproverID)
	assert.Equal(t, int64(1), req.Version)
	assert.Equal(t, 2, req.DurationDays())

	stored, err := f.store.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req, stored)
	assert.Equal(t, 1, f.recorder.get(OutcomeSubmitted))
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, org()...)
	start := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		ApplicantID: "emp-1",
		LeaveType:   LeaveSick,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, -2),
		Reason:      "flu symptoms",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Submit(context.Background(), SubmitInput{
		ApplicantID: "nobody",
		LeaveType:   LeaveSick,
		StartDate:   start,
		EndDate:     start,
		Reason:      "flu symptoms",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := f.store.ListByApplicant(context.Background(), "emp-1", Page{})
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestSubmitApplicantWithoutRoles(t *testing.T) {
	f := newFixture(t, append(org(), person("ghost", "tl-1"))...)
	start := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		ApplicantID: "ghost",
		LeaveType:   LeaveOther,
		StartDate:   start,
		EndDate:     start,
		Reason:      "some reason",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTeamLeadFinalizesShortRequests(t *testing.T) {
	for days := 1; days <= 2; days++ {
		f := newFixture(t, org()...)
		req := f.submit(t, "emp-1", days)

		detail, err := f.act(req.ID, "tl-1", DecisionApproved, "enjoy")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, detail.Status)
		assert.Empty(t, detail.CurrentApproverID)
		require.Len(t, detail.History, 1)
		assert.Equal(t, "enjoy", detail.History[0].Comments)
		assert.Equal(t, 1, f.recorder.get(OutcomeApproved))
	}
}

func TestTeamLeadForwardsMidLengthRequests(t *testing.T) {
	for days := 3; days <= 7; days++ {
		f := newFixture(t, org()...)
		req := f.submit(t, "emp-1", days)

		detail, err := f.act(req.ID, "tl-1", DecisionApproved, "")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, detail.Status)
		assert.Equal(t, "dm-1", detail.CurrentApproverID)
		assert.True(t, strings.HasPrefix(detail.History[0].Comments, forwardedMark))

		detail, err = f.act(req.ID, "dm-1", DecisionApproved, "ok")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, detail.Status)
		assert.Empty(t, detail.CurrentApproverID)
		assert.Len(t, detail.History, 2)
	}
}

func TestTeamLeadForwardsToHRWithoutDeptManagers(t *testing.T) {
	f := newFixture(t,
		person("hr-1", "", auth.RoleHR),
		person("tl-1", "", auth.RoleTeamLead),
		person("emp-1", "tl-1", auth.RoleEmployee),
	)
	req := f.submit(t, "emp-1", 5)

	detail, err := f.act(req.ID, "tl-1", DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, detail.Status)
	assert.Equal(t, "hr-1", detail.CurrentApproverID)
}

func TestRejectFinalizesRegardlessOfDuration(t *testing.T) {
	cases := []struct {
		name   string
		chain  []string
		days   int
		reject string
	}{
		{"team lead rejects a long request", nil, 25, "tl-1"},
		{"dept manager rejects", []string{"tl-1"}, 25, "dm-1"},
		{"hr rejects", []string{"tl-1", "dm-1"}, 25, "hr-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, org()...)
			req := f.submit(t, "emp-1", tc.days)
			for _, approver := range tc.chain {
				_, err := f.act(req.ID, approver, DecisionApproved, "")
				require.NoError(t, err)
			}

			detail, err := f.act(req.ID, tc.reject, DecisionRejected, "not now")
			require.NoError(t, err)
			assert.Equal(t, StatusRejected, detail.Status)
			assert.Empty(t, detail.CurrentApproverID)
			last := detail.History[len(detail.History)-1]
			assert.Equal(t, DecisionRejected, last.Decision)
			assert.Equal(t, "not now", last.Comments)
		})
	}
}

func TestAdminOverrideFinalizesInOneStep(t *testing.T) {
	for _, decision := range []Decision{DecisionApproved, DecisionRejected} {
		f := newFixture(t, org()...)
		req := f.submit(t, "emp-1", 60)
		require.Equal(t, "tl-1", req.CurrentApproverID)

		detail, err := f.act(req.ID, "admin-1", decision, "year end")
		require.NoError(t, err)
		assert.Equal(t, statusFor(decision), detail.Status)
		assert.Empty(t, detail.CurrentApproverID)
		require.Len(t, detail.History, 1)
		assert.Equal(t, "[admin override] year end", detail.History[0].Comments)
		assert.Equal(t, "admin-1", detail.History[0].ApproverID)
		assert.Equal(t, 1, f.recorder.get(OutcomeOverride))
	}
}

func TestSoleAdminApprovesOwnRequest(t *testing.T) {
	f := newFixture(t, org()...)
	req := f.submit(t, "admin-1", 3)
	assert.Equal(t, "admin-1", req.CurrentApproverID)

	detail, err := f.act(req.ID, "admin-1", DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, detail.Status)
}

func TestTerminalRequestsAreFrozen(t *testing.T) {
	ctx := context.Background()
	terminals := map[Status]func(f *fixture, id string){
		StatusApproved: func(f *fixture, id string) {
			_, err := f.act(id, "tl-1", DecisionApproved, "")
			require.NoError(t, err)
		},
		StatusRejected: func(f *fixture, id string) {
			_, err := f.act(id, "tl-1", DecisionRejected, "")
			require.NoError(t, err)
		},
		StatusCancelled: func(f *fixture, id string) {
			_, err := f.svc.Cancel(ctx, id, "emp-1")
			require.NoError(t, err)
		},
	}

	for status, finish := range terminals {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, org()...)
			req := f.submit(t, "emp-1", 1)
			finish(f, req.ID)

			before, err := f.store.GetRequest(ctx, req.ID)
			require.NoError(t, err)
			require.Equal(t, status, before.Status)
			historyBefore, err := f.store.HistoryFor(ctx, req.ID)
			require.NoError(t, err)

			_, err = f.act(req.ID, "tl-1", DecisionApproved, "")
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = f.act(req.ID, "admin-1", DecisionRejected, "")
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = f.svc.Cancel(ctx, req.ID, "emp-1")
			assert.ErrorIs(t, err, ErrInvalidTransition)

			after, err := f.store.GetRequest(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			historyAfter, err := f.store.HistoryFor(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, historyBefore, historyAfter)
		})
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 4)

	for _, other := range []string{"tl-1", "admin-1", "emp-2"} {
		_, err := f.svc.Cancel(ctx, req.ID, other)
		assert.ErrorIs(t, err, ErrPermissionDenied, other)
	}

	cancelled, err := f.svc.Cancel(ctx, req.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.CurrentApproverID)
	assert.Equal(t, int64(2), cancelled.Version)

	history, err := f.store.HistoryFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 1, f.recorder.get(OutcomeCancelled))
}

func TestOnlyCurrentApproverMayAct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 5)

	for _, actor := range []string{"dm-1", "hr-1", "emp-1", "emp-2"} {
		_, err := f.act(req.ID, actor, DecisionApproved, "")
		assert.ErrorIs(t, err, ErrPermissionDenied, actor)
		_, err = f.act(req.ID, actor, DecisionRejected, "")
		assert.ErrorIs(t, err, ErrPermissionDenied, actor)
	}

	stored, err := f.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req, stored)
}

func TestActNotFound(t *testing.T) {
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 1)

	_, err := f.act("missing", "tl-1", DecisionApproved, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.act(req.ID, "nobody", DecisionApproved, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActValidation(t *testing.T) {
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 1)

	_, err := f.act(req.ID, "tl-1", Decision("MAYBE"), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.act(req.ID, "tl-1", DecisionApproved, strings.Repeat("c", MaxCommentsLen+1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBrokenChainLeavesRequestUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		person("dm-1", "", auth.RoleDeptManager, auth.RoleEmployee),
		person("emp-1", "dm-1", auth.RoleEmployee),
	)
	req := f.submit(t, "emp-1", 10)
	require.Equal(t, "dm-1", req.CurrentApproverID)

	_, err := f.act(req.ID, "dm-1", DecisionApproved, "")
	assert.ErrorIs(t, err, ErrConfiguration)

	stored, err := f.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req, stored)
	history, err := f.store.HistoryFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHRFinalizesBeyondItsAuthority(t *testing.T) {
	f := newFixture(t, org()...)

	req := f.submit(t, "emp-1", 40)
	detail, err := f.act(req.ID, "tl-1", DecisionApproved, "")
	require.NoError(t, err)
	require.Equal(t, "dm-1", detail.CurrentApproverID)

	detail, err = f.act(req.ID, "dm-1", DecisionApproved, "")
	require.NoError(t, err)
	require.Equal(t, "hr-1", detail.CurrentApproverID)

	detail, err = f.act(req.ID, "hr-1", DecisionApproved, "long but justified")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, detail.Status)
	assert.Empty(t, detail.CurrentApproverID)
	require.Len(t, detail.History, 3)
	assert.Equal(t, "[forwarded] long but justified", detail.History[2].Comments)
	assert.Equal(t, 1, f.recorder.get(OutcomeApproved))
}

func TestEmployeeWithDeptManagerEscalatesToHR(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)

	req := f.submit(t, "emp-2", 10)
	assert.Equal(t, "dm-1", req.CurrentApproverID)

	detail, err := f.act(req.ID, "dm-1", DecisionApproved, "fine by me")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, detail.Status)
	assert.Equal(t, "hr-1", detail.CurrentApproverID)
	assert.Equal(t, "[forwarded] fine by me", detail.History[0].Comments)

	detail, err = f.act(req.ID, "hr-1", DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, detail.Status)
	assert.Empty(t, detail.CurrentApproverID)

	history, err := f.store.HistoryFor(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []string{"dm-1", "hr-1"}, []string{history[0].ApproverID, history[1].ApproverID})
	assert.False(t, history[1].Timestamp.Before(history[0].Timestamp))
	assert.Equal(t, detail.History, history)
}

func TestEmployeeWithNobodyToApprove(t *testing.T) {
	f := newFixture(t,
		person("emp-1", "", auth.RoleEmployee),
		person("dm-1", "", auth.RoleDeptManager),
	)
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.Submit(context.Background(), SubmitInput{
		ApplicantID: "emp-1",
		LeaveType:   LeaveAnnual,
		StartDate:   start,
		EndDate:     start,
		Reason:      "long weekend",
	})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestHistoryTimestampsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 20)

	_, err := f.act(req.ID, "tl-1", DecisionApproved, "")
	require.NoError(t, err)

	// the clock jumps back an hour between decisions
	f.clock.mu.Lock()
	f.clock.now = f.clock.now.Add(-time.Hour)
	f.clock.mu.Unlock()

	_, err = f.act(req.ID, "dm-1", DecisionApproved, "")
	require.NoError(t, err)
	_, err = f.act(req.ID, "hr-1", DecisionApproved, "")
	require.NoError(t, err)

	history, err := f.store.HistoryFor(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
	}
}

func TestHistoryCountsDecisionsOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)

	req := f.submit(t, "emp-1", 8)
	decisions := 0
	for _, approver := range []string{"tl-1", "dm-1"} {
		_, err := f.act(req.ID, approver, DecisionApproved, "")
		require.NoError(t, err)
		decisions++
	}
	_, err := f.svc.Cancel(ctx, req.ID, "emp-1")
	require.NoError(t, err)

	history, err := f.store.HistoryFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, decisions)
}

func TestActWhileLockedIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 1)

	release, err := f.svc.Locker.TryLock(ctx, "leave:"+req.ID)
	require.NoError(t, err)

	_, err = f.act(req.ID, "tl-1", DecisionApproved, "")
	assert.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.Cancel(ctx, req.ID, "emp-1")
	assert.ErrorIs(t, err, ErrConflict)
	release()

	_, err = f.act(req.ID, "tl-1", DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, 2, f.recorder.get(OutcomeConflict))
}

// racingStore moves the stored version forward between read and write.
type racingStore struct {
	*MemoryStore
	once sync.Once
}

func (r *racingStore) Transition(ctx context.Context, req Request, expected int64, entry *HistoryEntry) error {
	r.once.Do(func() {
		stored, _ := r.MemoryStore.GetRequest(ctx, req.ID)
		stored.Version++
		_ = r.MemoryStore.Transition(ctx, stored, expected, nil)
	})
	return r.MemoryStore.Transition(ctx, req, expected, entry)
}

func TestStaleVersionIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 1)

	racing := &racingStore{MemoryStore: f.store}
	f.svc.Store = racing

	_, err := f.act(req.ID, "tl-1", DecisionApproved, "")
	assert.ErrorIs(t, err, ErrConflict)

	history, err := f.store.HistoryFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	stored, err := f.store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestConcurrentDecisionsApplyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 3)

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.act(req.ID, "admin-1", DecisionApproved, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidTransition), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)

	history, err := f.store.HistoryFor(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 5)
	_, err := f.act(req.ID, "tl-1", DecisionApproved, "")
	require.NoError(t, err)

	for _, viewer := range []string{"emp-1", "tl-1", "dm-1", "hr-1", "admin-1"} {
		detail, err := f.svc.Get(ctx, req.ID, viewer)
		require.NoError(t, err, viewer)
		assert.Len(t, detail.History, 1)
		assert.Equal(t, 5, detail.DurationDays)
	}

	_, err = f.svc.Get(ctx, req.ID, "emp-2")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = f.svc.Get(ctx, "missing", "emp-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, org()...)
	first := f.submit(t, "emp-1", 1)
	second := f.submit(t, "emp-2", 1)
	done := f.submit(t, "emp-1", 1)
	_, err := f.act(done.ID, "tl-1", DecisionApproved, "")
	require.NoError(t, err)

	mine, err := f.svc.ListPending(ctx, "tl-1", Page{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	all, err := f.svc.ListPending(ctx, "admin-1", Page{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	applicant, err := f.svc.ListMine(ctx, "emp-1", Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, applicant, 1)
	assert.Equal(t, done.ID, applicant[0].ID)
}

func TestDirectoryChangesApplyToLaterDecisions(t *testing.T) {
	f := newFixture(t, org()...)
	req := f.submit(t, "emp-1", 4)

	// a second, lower-id dept manager joins before the team lead acts
	f.dir.Put(person("dm-0", "", auth.RoleDeptManager))

	detail, err := f.act(req.ID, "tl-1", DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, "dm-0", detail.CurrentApproverID)

	// the approver lost the role they were assigned under
	f.dir.Put(directory.User{ID: "dm-0", Roles: []auth.Role{auth.RoleEmployee}})
	_, err = f.act(req.ID, "dm-0", DecisionApproved, "")
	assert.ErrorIs(t, err, ErrConfiguration)
}
