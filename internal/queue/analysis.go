package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/wisdom/pkg/analysis"
	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/loader"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	"github.com/OFFIS-RIT/wisdom/pkg/store"
)

var ErrInvalidMessage = errors.New("queue: invalid analysis message")

// AnalysisMsg asks the worker to analyze the model stored under ModelKey
// within a session.
type AnalysisMsg struct {
	SessionID   string   `json:"session_id"`
	ModelKey    string   `json:"model_key"`
	AnalysisID  string   `json:"analysis_id,omitempty"`
	Seed        *uint64  `json:"seed,omitempty"`
	DecayFactor *float64 `json:"decay_factor,omitempty"`
}

// ReportUploader persists a finished report and returns where it went.
type ReportUploader func(ctx context.Context, sessionID string, report *common.Report) (string, error)

type forgetter interface {
	Forget(file loader.ModelFile)
}

// AnalysisHandler processes analysis_queue messages.
type AnalysisHandler struct {
	Source loader.ModelSource
	Store  store.SnapshotStore
	Upload ReportUploader

	// DecayFactor applies when a message carries none.
	DecayFactor *float64
}

func (h *AnalysisHandler) ProcessAnalysisMessage(ctx context.Context, body []byte) error {
	var msg AnalysisMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.SessionID == "" || msg.ModelKey == "" {
		return fmt.Errorf("%w: session_id and model_key are required", ErrInvalidMessage)
	}

	file := loader.NewModelFile(msg.SessionID, msg.ModelKey, h.Source)
	// keys can be overwritten between jobs
	if f, ok := h.Source.(forgetter); ok {
		defer f.Forget(file)
	}

	model, err := loader.Load(ctx, file)
	if err != nil {
		return err
	}

	decay := msg.DecayFactor
	if decay == nil {
		decay = h.DecayFactor
	}

	var key string
	var upload func(context.Context, *common.Report) error
	if h.Upload != nil {
		// runs before the new snapshot is stored
		upload = func(ctx context.Context, report *common.Report) error {
			var err error
			key, err = h.Upload(ctx, msg.SessionID, report)
			return err
		}
	}

	report, err := analysis.RunSessionWith(ctx, h.Store, msg.SessionID, analysis.Request{
		AnalysisID:  msg.AnalysisID,
		Model:       model,
		Seed:        msg.Seed,
		DecayFactor: decay,
	}, upload)
	if err != nil {
		return fmt.Errorf("analyze session %s: %w", msg.SessionID, err)
	}

	if upload != nil {
		logger.Info("[Queue] Report uploaded", "session", msg.SessionID, "analysis", report.AnalysisID, "key", key)
	}
	return nil
}
