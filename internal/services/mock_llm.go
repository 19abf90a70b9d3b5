package services

import (
	"context"
	"sync"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	GenerateFunc func(ctx context.Context, req GenerationRequest) (string, error)
	ModeValue    Mode

	// Track calls for testing
	GenerateCalls []GenerationRequest

	mu sync.Mutex // protects all fields above
}

// NewMockLLMAPI creates a new structured-mode mock
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		ModeValue:     ModeStructured,
		GenerateCalls: make([]GenerationRequest, 0),
	}
}

func (m *MockLLMAPI) Name() string { return "mock" }

func (m *MockLLMAPI) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ModeValue
}

// Generate records the call and returns the configured response.
func (m *MockLLMAPI) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, req)
	fn := m.GenerateFunc
	mode := m.ModeValue
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	// Default behavior
	if mode == ModeFreeform {
		return "The torchlight flickers across the damp stone walls.", nil
	}
	return `{"content":"Mock response","type":"narrative","sound_effects":[],"visual_effects":[]}`, nil
}

// SetResponse makes every Generate call return text.
func (m *MockLLMAPI) SetResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req GenerationRequest) (string, error) {
		return text, nil
	}
}

// SetError makes every Generate call fail with err.
func (m *MockLLMAPI) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, req GenerationRequest) (string, error) {
		return "", err
	}
}

// SetMode switches between structured and freeform output.
func (m *MockLLMAPI) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModeValue = mode
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateCalls = make([]GenerationRequest, 0)
}

// GetCalls returns a copy of the recorded calls in a thread-safe way
func (m *MockLLMAPI) GetCalls() []GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]GenerationRequest, len(m.GenerateCalls))
	copy(calls, m.GenerateCalls)
	return calls
}
