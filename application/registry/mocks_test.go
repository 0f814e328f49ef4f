package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"forge-backend/application/ports"
	"forge-backend/application/services"
	"forge-backend/domain/component"
	"forge-backend/domain/events"
	"forge-backend/domain/relationship"
	"forge-backend/infrastructure/persistence/memory"
	"forge-backend/pkg/observability"
)

// MockValidator is a testify mock for the validator collaborator.
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) ValidateComponent(ctx context.Context, record *component.Record) bool {
	args := m.Called(ctx, record)
	return args.Bool(0)
}

func (m *MockValidator) ValidateCodeChange(ctx context.Context, newSource string, oldSource *string, perms component.Permissions) ports.ValidationResult {
	args := m.Called(ctx, newSource, oldSource, perms)
	return args.Get(0).(ports.ValidationResult)
}

// MockExecutor is a testify mock for the code-executor collaborator.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) ExecuteCodeChange(ctx context.Context, req ports.ExecutionRequest) (ports.ExecutionResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.ExecutionResult), args.Error(1)
}

// testHarness bundles the orchestrator with its collaborators for
// assertions against internal state.
type testHarness struct {
	service   *Service
	store     *memory.ComponentStore
	versions  *services.VersionManager
	graph     *relationship.Graph
	bus       *events.Bus
	validator *MockValidator
	executor  *MockExecutor
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	logger := zap.NewNop()

	store := memory.NewComponentStore()
	versions := services.NewVersionManager(store, logger)
	graph := relationship.NewGraph(logger)
	bus := events.NewBus(logger)
	t.Cleanup(bus.Close)

	validator := new(MockValidator)
	executor := new(MockExecutor)

	return &testHarness{
		service:   NewService(store, versions, graph, validator, executor, bus, observability.NewMetrics(), logger),
		store:     store,
		versions:  versions,
		graph:     graph,
		bus:       bus,
		validator: validator,
		executor:  executor,
	}
}

// acceptAll stubs the validator to approve everything.
func (h *testHarness) acceptAll() {
	h.validator.On("ValidateComponent", mock.Anything, mock.Anything).Return(true).Maybe()
	h.validator.On("ValidateCodeChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(ports.ValidationResult{IsValid: true}).Maybe()
}

// passThrough stubs the executor to echo the proposed source.
func (h *testHarness) passThrough() {
	h.executor.On("ExecuteCodeChange", mock.Anything, mock.Anything).
		Return(ports.ExecutionResult{Success: true}, nil).Maybe()
}
