package recorder

import "BreakoutScreener/internal/model"

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.ScreenResult) error { return nil }
func (n *NoopRecorder) LastRun() (*model.ScreenResult, error) { return nil, nil }
func (n *NoopRecorder) Close() error                          { return nil }
