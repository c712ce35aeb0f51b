package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/internal/services"
	"github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/internal/storage"
	"github.com/jwebster45206/campaign-engine/pkg/chat"
	"github.com/jwebster45206/campaign-engine/pkg/creation"
	"github.com/jwebster45206/campaign-engine/pkg/prompts"
	"github.com/jwebster45206/campaign-engine/pkg/relationship"
	"github.com/jwebster45206/campaign-engine/pkg/state"
)

// ErrSessionNotFound indicates the requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

const (
	maxModelAttempts = 3
	modelRetryDelay  = 2 * time.Second
)

// TurnProcessor runs the full turn pipeline for one session: compose the
// instruction bundle, call the model, merge the proposed state update, and
// persist. Turns for the same session are serialized; concurrent turns for
// different sessions proceed independently.
type TurnProcessor struct {
	storage storage.Storage
	model   services.ModelService
	planner *prompts.Planner
	events  *queue.WorldEventQueue
	cfg     *config.Config
	logger  *slog.Logger

	mu           sync.Mutex
	sessionLocks map[uuid.UUID]*sync.Mutex
}

// NewTurnProcessor creates a turn processor. events may be nil when world
// events are not in play (tests, validate tool).
func NewTurnProcessor(st storage.Storage, model services.ModelService, planner *prompts.Planner, events *queue.WorldEventQueue, cfg *config.Config, logger *slog.Logger) *TurnProcessor {
	return &TurnProcessor{
		storage:      st,
		model:        model,
		planner:      planner,
		events:       events,
		cfg:          cfg,
		logger:       logger,
		sessionLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing turns for one session.
func (p *TurnProcessor) sessionLock(id uuid.UUID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.sessionLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.sessionLocks[id] = lock
	}
	return lock
}

// GetSession loads a session for callers outside the turn pipeline.
func (p *TurnProcessor) GetSession(ctx context.Context, id uuid.UUID) (*state.SessionState, error) {
	gs, err := p.storage.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if gs == nil {
		return nil, ErrSessionNotFound
	}
	return gs, nil
}

// ProcessTurn runs one player turn end to end and returns the response.
// On any failure before persistence the session state is untouched.
func (p *TurnProcessor) ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lock := p.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	log := p.logger.With("session_id", req.SessionID.String())

	gs, err := p.storage.LoadSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if gs == nil {
		return nil, ErrSessionNotFound
	}

	var worldEvents []string
	if p.events != nil {
		worldEvents, err = p.events.Dequeue(ctx, req.SessionID)
		if err != nil {
			// Losing this turn's world events is recoverable; losing the
			// turn is not.
			log.Warn("Failed to dequeue world events", "error", err)
			worldEvents = nil
		}
	}

	bundle, err := prompts.New().
		WithSession(gs).
		WithPlanner(p.planner).
		WithBudget(p.cfg.TokenBudget).
		WithUserMessage(req.Message, chat.ChatRoleUser).
		WithWorldEvents(worldEvents).
		Build()
	if err != nil {
		p.requeueWorldEvents(ctx, req.SessionID, worldEvents, log)
		return nil, fmt.Errorf("failed to compose instruction bundle: %w", err)
	}

	out, outErr := p.callModel(ctx, bundle.Messages, log)
	if out == nil {
		// The events were never seen by the model; put them back for the
		// next attempt.
		p.requeueWorldEvents(ctx, req.SessionID, worldEvents, log)
		return nil, outErr
	}

	inconsistent := errors.Is(outErr, chat.ErrMalformedOutput)

	update, parseErr := state.ParseProposedUpdate(out.StateUpdates)
	if parseErr != nil {
		log.Warn("Discarding malformed state update", "error", parseErr)
		inconsistent = true
		update = nil
	}

	merged := gs
	var trustEvents []state.TrustEvent
	if !update.IsEmpty() {
		merger := state.NewMerger(gs, update, log)
		if p.cfg.StrictMerge {
			merger = merger.WithPolicy(state.MergeStrict)
		}
		merged, err = merger.Apply()
		if err != nil {
			// All-or-nothing: the narrative survives, the update does not.
			log.Warn("State update rejected", "error", err)
			inconsistent = true
			merged = gs
		} else {
			trustEvents = merger.TrustEvents()
			for _, fe := range merger.Rejected() {
				log.Warn("State update field rejected", "path", fe.Path, "error", fe.Err)
			}
		}
	}

	p.advanceCreation(merged, gs, req.Message, log)

	for _, ev := range trustEvents {
		relationship.Cascade(merged, ev.NpcID, ev.Delta, ev.Reason)
	}

	merged.ChatHistory = append(merged.ChatHistory,
		chat.ChatMessage{Role: chat.ChatRoleUser, Content: req.Message},
		chat.ChatMessage{Role: chat.ChatRoleAgent, Content: out.Narrative},
	)
	merged.Recompute()

	if err := p.storage.SaveSession(ctx, req.SessionID, merged); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &chat.TurnResponse{
		SessionID:    req.SessionID,
		Narrative:    out.Narrative,
		Stage:        string(merged.Custom.Creation.Stage),
		TimeFrozen:   merged.TimeFrozen(),
		Inconsistent: inconsistent,
		ToolRequests: out.ToolRequests,
		ChatHistory:  merged.ChatHistory,
	}, nil
}

// requeueWorldEvents returns drained events to the session's queue after a
// failed turn, preserving order.
func (p *TurnProcessor) requeueWorldEvents(ctx context.Context, sessionID uuid.UUID, events []string, log *slog.Logger) {
	if p.events == nil || len(events) == 0 {
		return
	}
	for _, ev := range events {
		if err := p.events.Enqueue(ctx, sessionID, ev); err != nil {
			log.Warn("Failed to re-queue world event", "error", err)
			return
		}
	}
}

// callModel invokes the model with bounded retry on transient backend
// failures. A malformed-output error is returned alongside the usable
// narrative, never retried.
func (p *TurnProcessor) callModel(ctx context.Context, messages []chat.ChatMessage, log *slog.Logger) (*chat.ModelOutput, error) {
	var lastErr error
	for attempt := 1; attempt <= maxModelAttempts; attempt++ {
		out, err := p.model.Turn(ctx, messages)
		if err == nil || errors.Is(err, chat.ErrMalformedOutput) {
			return out, err
		}
		lastErr = err
		if !errors.Is(err, services.ErrModelUnavailable) {
			return nil, err
		}

		log.Warn("Model unavailable, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(modelRetryDelay):
		}
	}
	return nil, fmt.Errorf("model failed after %d attempts: %w", maxModelAttempts, lastErr)
}

// advanceCreation applies the stage transition for this turn. The merged
// stage is only a proposal; completion requires the player's own words.
func (p *TurnProcessor) advanceCreation(merged, prior *state.SessionState, utterance string, log *slog.Logger) {
	if !prior.Custom.Creation.InProgress {
		return
	}

	next := creation.Next(prior.Custom.Creation.Stage, utterance, creation.Flags{
		ProposedStage: merged.Custom.Creation.Stage,
	})

	if next == creation.StageComplete {
		merged.Custom.Creation.Complete(time.Now())
		log.Info("Creation episode completed", "final_stage", prior.Custom.Creation.Stage)
		return
	}

	if next != merged.Custom.Creation.Stage {
		merged.Custom.Creation.Stage = next
	}
	if creation.IsAmbiguous(utterance) {
		log.Debug("Ambiguous completion phrase ignored", "stage", next)
	}
}
