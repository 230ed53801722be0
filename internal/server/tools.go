// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp-simple-bolus/internal/bolus"
	"mcp-simple-bolus/internal/models"
)

var errInvalidParams = errors.New("invalid parameters")

type StartBolusParams struct {
	RestoreCarbs *float64 `json:"restore_carbs,omitempty" description:"Carbohydrates in grams from an earlier unfinished entry to prefill"`
}

type SessionParams struct {
	SessionID string `json:"session_id" description:"Bolus session returned by start_bolus"`
}

type EnterValuesParams struct {
	SessionID string  `json:"session_id" description:"Bolus session returned by start_bolus"`
	Carbs     *string `json:"carbs,omitempty" description:"Carbohydrates in grams, as typed"`
	Glucose   *string `json:"glucose,omitempty" description:"Manual glucose reading in the preferred unit, as typed"`
	Bolus     *string `json:"bolus,omitempty" description:"Bolus in units, as typed; overrides the recommendation"`
}

type SaveAndDeliverParams struct {
	SessionID string `json:"session_id" description:"Bolus session returned by start_bolus"`
	Passcode  string `json:"passcode,omitempty" description:"Passcode confirming the bolus"`
}

type GetCarbEntriesParams struct {
	StartDate string `json:"start_date,omitempty" description:"Start date for carb entry query (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" description:"End date for carb entry query (YYYY-MM-DD)"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of carb entries to return"`
}

type GetGlucoseSamplesParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of glucose samples to return"`
}

type sessionResponse struct {
	SessionID    string         `json:"session_id"`
	MaximumBolus string         `json:"maximum_bolus,omitempty"`
	Snapshot     bolus.Snapshot `json:"snapshot"`
}

type deliveryResponse struct {
	SessionID string         `json:"session_id"`
	Outcome   bolus.Outcome  `json:"outcome"`
	Snapshot  bolus.Snapshot `json:"snapshot"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %v", errInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	return nil
}

// handleStartBolus opens a bolus entry, empty unless carbs are restored
func (s *BolusServer) handleStartBolus(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params StartBolusParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := s.logger.With(zap.String("session", id))

	opts := []bolus.Option{bolus.WithLogger(logger)}
	if s.donor != nil {
		opts = append(opts, bolus.WithDonor(s.donor))
	}
	workflow := bolus.New(s.delegate, s.auth, opts...)
	if params.RestoreCarbs != nil {
		workflow.RestoreCarbEntry(models.NewQuantity(*params.RestoreCarbs, models.Gram))
	}
	workflow.Subscribe(func(snap bolus.Snapshot) {
		logger.Debug("Bolus entry updated",
			zap.String("state", string(snap.State)),
			zap.String("action", string(snap.Action)),
			zap.String("recommended", snap.RecommendedBolus),
			zap.String("notice", string(snap.Notice)),
			zap.String("alert", string(snap.Alert)))
	})

	s.sessions.add(&session{id: id, workflow: workflow, created: time.Now()})
	s.metrics.SessionOpened()

	return s.createJSONResponse(sessionResponse{
		SessionID:    id,
		MaximumBolus: workflow.MaximumBolusText(),
		Snapshot:     workflow.Snapshot(),
	})
}

// handleEnterValues applies carbs, glucose and bolus text in that order
func (s *BolusServer) handleEnterValues(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params EnterValuesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	sess, err := s.sessions.get(params.SessionID)
	if err != nil {
		return nil, err
	}

	if params.Carbs != nil {
		sess.workflow.SetCarbText(*params.Carbs)
	}
	if params.Glucose != nil {
		sess.workflow.SetGlucoseText(*params.Glucose)
	}
	if params.Bolus != nil {
		sess.workflow.SetBolusText(*params.Bolus)
	}

	return s.createJSONResponse(sessionResponse{
		SessionID: sess.id,
		Snapshot:  sess.workflow.Snapshot(),
	})
}

// handleSaveAndDeliver validates, saves and delivers the session's entry
func (s *BolusServer) handleSaveAndDeliver(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SaveAndDeliverParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	sess, err := s.sessions.get(params.SessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.workflow.SaveAndDeliver(WithPasscode(ctx, params.Passcode), func() {
		s.logger.Info("Bolus entry saved", zap.String("session", sess.id))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save bolus entry: %w", err)
	}
	s.metrics.ObserveOutcome(outcome)

	snapshot := sess.workflow.Snapshot()
	if outcome.State == bolus.StateDone {
		s.closeSession(sess.id)
	}

	return s.createJSONResponse(deliveryResponse{
		SessionID: sess.id,
		Outcome:   outcome,
		Snapshot:  snapshot,
	})
}

func (s *BolusServer) handleDismissAlert(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SessionParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	sess, err := s.sessions.get(params.SessionID)
	if err != nil {
		return nil, err
	}
	sess.workflow.DismissAlert()

	return s.createJSONResponse(sessionResponse{
		SessionID: sess.id,
		Snapshot:  sess.workflow.Snapshot(),
	})
}

func (s *BolusServer) handleCancelBolus(_ context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SessionParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	if !s.closeSession(params.SessionID) {
		return nil, ErrSessionNotFound
	}
	return s.createJSONResponse(map[string]interface{}{
		"session_id": params.SessionID,
		"cancelled":  true,
	})
}

func (s *BolusServer) closeSession(id string) bool {
	sess, ok := s.sessions.remove(id)
	if !ok {
		return false
	}
	s.metrics.SessionClosed()
	s.sessions.release(sess)
	return true
}

// handleGetCarbEntries retrieves carb entries from storage
func (s *BolusServer) handleGetCarbEntries(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetCarbEntriesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	// Set defaults
	if params.Limit <= 0 {
		params.Limit = 20
	}

	entries, err := s.storage.GetCarbEntries(ctx, params.StartDate, params.EndDate, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve carb entries: %w", err)
	}

	return s.createJSONResponse(entries)
}

func (s *BolusServer) handleGetGlucoseSamples(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetGlucoseSamplesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	if params.Limit <= 0 {
		params.Limit = 20
	}

	samples, err := s.storage.GetGlucoseSamples(ctx, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve glucose samples: %w", err)
	}

	return s.createJSONResponse(samples)
}

func (s *BolusServer) registerTools() {
	s.tools = map[string]toolHandler{
		"start_bolus":         s.handleStartBolus,
		"enter_bolus_values":  s.handleEnterValues,
		"save_and_deliver":    s.handleSaveAndDeliver,
		"dismiss_alert":       s.handleDismissAlert,
		"cancel_bolus":        s.handleCancelBolus,
		"get_carb_entries":    s.handleGetCarbEntries,
		"get_glucose_samples": s.handleGetGlucoseSamples,
	}

	for name := range s.tools {
		s.logger.Debug("Registered tool", zap.String("name", name))
	}
}
