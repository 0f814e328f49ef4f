package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"forge-backend/domain/component"
)

func strPtr(s string) *string { return &s }

func TestPermissionValidator_ValidateComponent(t *testing.T) {
	v := NewPermissionValidator(zap.NewNop())
	ctx := context.Background()

	assert.True(t, v.ValidateComponent(ctx, component.NewRecord("id", "Name")))
	assert.False(t, v.ValidateComponent(ctx, nil))
	assert.False(t, v.ValidateComponent(ctx, &component.Record{ID: "id"}))
	assert.False(t, v.ValidateComponent(ctx, &component.Record{Name: "name"}))
}

func TestPermissionValidator_AllowsPermittedChange(t *testing.T) {
	v := NewPermissionValidator(zap.NewNop())

	verdict := v.ValidateCodeChange(context.Background(), "new", strPtr("old"), component.DefaultPermissions())
	assert.True(t, verdict.IsValid)
}

func TestPermissionValidator_RejectsWhenNoChangePermissions(t *testing.T) {
	v := NewPermissionValidator(zap.NewNop())

	verdict := v.ValidateCodeChange(context.Background(), "new", strPtr("old"), component.Permissions{})
	assert.False(t, verdict.IsValid)
	assert.Contains(t, verdict.Error, "code changes")

	// Identical source is not a change, so nothing to forbid.
	verdict = v.ValidateCodeChange(context.Background(), "same", strPtr("same"), component.Permissions{})
	assert.True(t, verdict.IsValid)
}

func TestPermissionValidator_RejectsNewNetworkCalls(t *testing.T) {
	v := NewPermissionValidator(zap.NewNop())
	perms := component.DefaultPermissions() // network calls not allowed

	verdict := v.ValidateCodeChange(context.Background(), `fetch("https://x")`, strPtr("old"), perms)
	assert.False(t, verdict.IsValid)
	assert.Contains(t, verdict.Error, "network")

	// Pre-existing network calls are grandfathered; only new ones are
	// rejected.
	old := `fetch("https://x")`
	verdict = v.ValidateCodeChange(context.Background(), `fetch("https://x") // tweaked`, strPtr(old), perms)
	assert.True(t, verdict.IsValid)

	// With the capability granted, network calls pass.
	perms.AllowNetworkCalls = true
	verdict = v.ValidateCodeChange(context.Background(), `fetch("https://x")`, strPtr("old"), perms)
	assert.True(t, verdict.IsValid)
}

func TestPermissionValidator_FirstSourceHasNoOld(t *testing.T) {
	v := NewPermissionValidator(zap.NewNop())

	verdict := v.ValidateCodeChange(context.Background(), "initial", nil, component.DefaultPermissions())
	assert.True(t, verdict.IsValid)

	verdict = v.ValidateCodeChange(context.Background(), "new WebSocket(url)", nil, component.DefaultPermissions())
	assert.False(t, verdict.IsValid)
}
