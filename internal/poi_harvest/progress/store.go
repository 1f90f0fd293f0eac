package progress

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"poi-harvest/internal/poi_harvest/helper"
	"poi-harvest/internal/poi_harvest/model"
)

// Store persists RunState snapshots to a single JSON file. Each snapshot
// replaces the previous one in full.
type Store struct {
	Path string
	Log  *zap.Logger
}

func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{Path: path, Log: log}
}

func (s *Store) Snapshot(state *model.RunState) error {
	if state == nil {
		return errors.New("snapshot: nil run state")
	}
	if err := helper.WriteJSON(s.Path, state); err != nil {
		return fmt.Errorf("snapshot progress: %w", err)
	}
	s.Log.Debug("progress saved",
		zap.String("file", s.Path),
		zap.Int("entities", state.TotalEntities),
		zap.String("cursor", state.Cursor))
	return nil
}

// Load returns nil, nil when no progress file exists.
func (s *Store) Load() (*model.RunState, error) {
	if _, err := os.Stat(s.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat progress file: %w", err)
	}

	var state model.RunState
	if err := helper.ReadJSON(s.Path, &state); err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if state.Usage.CallsByPartition == nil {
		state.Usage.CallsByPartition = map[string]int{}
	}
	if state.Usage.CallsByCategory == nil {
		state.Usage.CallsByCategory = map[string]int{}
	}
	s.Log.Info("resuming from saved progress",
		zap.String("file", s.Path),
		zap.String("runId", state.RunID),
		zap.Int("entities", len(state.Entities)),
		zap.String("cursor", state.Cursor))
	return &state, nil
}

func (s *Store) Remove() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove progress file: %w", err)
	}
	return nil
}
