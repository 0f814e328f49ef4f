package validation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"forge-backend/application/ports"
	"forge-backend/domain/component"
)

// networkTokens are source fragments that indicate a network call. The
// scan is deliberately coarse: the real validator runs out of process,
// this default only enforces the obvious cases.
var networkTokens = []string{
	"fetch(",
	"XMLHttpRequest",
	"new WebSocket",
	"navigator.sendBeacon",
	"axios.",
}

// PermissionValidator is the default in-process validator. It enforces
// the stored permission flags against the proposed source and accepts
// everything else.
type PermissionValidator struct {
	logger *zap.Logger
}

func NewPermissionValidator(logger *zap.Logger) *PermissionValidator {
	return &PermissionValidator{logger: logger}
}

var _ ports.Validator = (*PermissionValidator)(nil)

// ValidateComponent accepts any structurally valid record.
func (v *PermissionValidator) ValidateComponent(_ context.Context, record *component.Record) bool {
	return record != nil && record.ID != "" && record.Name != ""
}

// ValidateCodeChange rejects changes the permission flags forbid.
func (v *PermissionValidator) ValidateCodeChange(_ context.Context, newSource string, oldSource *string, perms component.Permissions) ports.ValidationResult {
	unchanged := oldSource != nil && *oldSource == newSource
	if !unchanged && !perms.AllowLogicChanges && !perms.AllowStyleChanges {
		return ports.ValidationResult{
			IsValid: false,
			Error:   "component permissions do not allow code changes",
		}
	}

	if !perms.AllowNetworkCalls {
		for _, token := range networkTokens {
			if strings.Contains(newSource, token) && !containsToken(oldSource, token) {
				return ports.ValidationResult{
					IsValid: false,
					Error:   "component permissions do not allow network calls",
				}
			}
		}
	}

	return ports.ValidationResult{IsValid: true}
}

func containsToken(source *string, token string) bool {
	return source != nil && strings.Contains(*source, token)
}
