package usecase

import (
	"context"
	"log/slog"

	"github.com/qmuntal/stateless"
)

type flowState string

const (
	StateUnauthenticated    flowState = "Unauthenticated"
	StateAuthenticated      flowState = "Authenticated"
	StateHistoryLoaded      flowState = "HistoryLoaded"
	StatePromptBuilt        flowState = "PromptBuilt"
	StateCompletionObtained flowState = "CompletionObtained"
	StatePersisted          flowState = "Persisted"
	StateResponded          flowState = "Responded"
	StateRejected           flowState = "Rejected"
	StateFailed             flowState = "Failed"
)

type flowTrigger string

const (
	triggerAuthenticated flowTrigger = "Authenticated"
	triggerRejected      flowTrigger = "Rejected"
	triggerHistoryLoaded flowTrigger = "HistoryLoaded"
	triggerPromptBuilt   flowTrigger = "PromptBuilt"
	triggerCompleted     flowTrigger = "Completed"
	triggerPersisted     flowTrigger = "Persisted"
	triggerResponded     flowTrigger = "Responded"
	triggerFailed        flowTrigger = "Failed"
)

// flow tracks one chat request. Rejected and Failed are absorbing: nothing is
// permitted out of them, and Responded permits nothing either.
type flow struct {
	sm     *stateless.StateMachine
	userID string
}

func newFlow(logger *slog.Logger) *flow {
	sm := stateless.NewStateMachine(StateUnauthenticated)
	f := &flow{sm: sm}

	sm.Configure(StateUnauthenticated).
		Permit(triggerAuthenticated, StateAuthenticated).
		Permit(triggerRejected, StateRejected)

	sm.Configure(StateAuthenticated).
		Permit(triggerHistoryLoaded, StateHistoryLoaded).
		Permit(triggerFailed, StateFailed)

	sm.Configure(StateHistoryLoaded).
		Permit(triggerPromptBuilt, StatePromptBuilt).
		Permit(triggerFailed, StateFailed)

	sm.Configure(StatePromptBuilt).
		Permit(triggerCompleted, StateCompletionObtained).
		Permit(triggerFailed, StateFailed)

	sm.Configure(StateCompletionObtained).
		Permit(triggerPersisted, StatePersisted).
		Permit(triggerFailed, StateFailed)

	sm.Configure(StatePersisted).
		Permit(triggerResponded, StateResponded).
		Permit(triggerFailed, StateFailed)

	sm.Configure(StateResponded)
	sm.Configure(StateRejected)
	sm.Configure(StateFailed)

	sm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		logger.Debug("chat flow transition",
			"from", t.Source,
			"to", t.Destination,
			"trigger", t.Trigger,
			"user", f.userID,
		)
	})

	return f
}

func (f *flow) fire(ctx context.Context, trigger flowTrigger) error {
	return f.sm.FireCtx(ctx, trigger)
}

func (f *flow) state() flowState {
	return f.sm.MustState().(flowState)
}
