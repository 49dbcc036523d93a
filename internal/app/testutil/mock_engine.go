package testutil

import (
	"context"
	"sync"
	"time"

	"voxledger/internal/app/engine"
	"voxledger/internal/app/model"
)

// EngineCall records one Transcribe invocation for assertions.
type EngineCall struct {
	AudioPath    string
	LanguageHint string
	Timestamp    time.Time
}

// MockEngine is a configurable engine.Engine for tests.
type MockEngine struct {
	mu sync.Mutex

	Result  *engine.Result
	Err     error
	Latency time.Duration

	Calls []EngineCall
}

// NewMockEngine creates a mock engine returning a small two-segment result.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		Result: &engine.Result{
			Segments: []engine.Segment{
				{
					Text:  " Hello there. ",
					Start: 0, End: 1.2,
					Words: []engine.Word{
						{Word: "Hello", Start: 0, End: 0.5, Probability: 0.99},
						{Word: "there.", Start: 0.5, End: 1.2, Probability: 0.97},
					},
				},
				{
					Text:  "General Kenobi.",
					Start: 1.2, End: 2.8,
					Words: []engine.Word{
						{Word: "General", Start: 1.2, End: 1.9, Probability: 0.98},
						{Word: "Kenobi.", Start: 1.9, End: 2.8, Probability: 0.96},
					},
				},
			},
			DetectedLanguage:   "en",
			LanguageConfidence: 0.98,
		},
	}
}

// Transcribe implements engine.Engine.
func (m *MockEngine) Transcribe(ctx context.Context, audioPath, languageHint string) (*engine.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, EngineCall{AudioPath: audioPath, LanguageHint: languageHint, Timestamp: time.Now()})
	latency, err, result := m.Latency, m.Err, m.Result
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(latency):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CallCount returns how many times Transcribe ran.
func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockFactory hands out a fixed engine per tier, or fails.
type MockFactory struct {
	Engine     engine.Engine
	AcquireErr error

	mu       sync.Mutex
	Acquired []model.ModelTier
}

// NewMockFactory wraps an engine in a factory.
func NewMockFactory(e engine.Engine) *MockFactory {
	return &MockFactory{Engine: e}
}

// Acquire implements engine.Factory.
func (f *MockFactory) Acquire(_ context.Context, tier model.ModelTier) (engine.Engine, error) {
	f.mu.Lock()
	f.Acquired = append(f.Acquired, tier)
	f.mu.Unlock()
	if f.AcquireErr != nil {
		return nil, f.AcquireErr
	}
	return f.Engine, nil
}
