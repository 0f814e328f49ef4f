package component

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "forge-backend/pkg/errors"
)

func TestNewRecord_GeneratesID(t *testing.T) {
	rec := NewRecord("", "Header")

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Header", rec.Name)
	assert.NotNil(t, rec.Path)
	assert.NotNil(t, rec.DeclaredDependencies)
	assert.NotNil(t, rec.Metadata)
	assert.Equal(t, DefaultPermissions(), rec.Permissions)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestNewRecord_KeepsCallerID(t *testing.T) {
	rec := NewRecord("header-1", "Header")
	assert.Equal(t, "header-1", rec.ID)
}

func TestRecord_Normalize(t *testing.T) {
	rec := &Record{ID: "x", Name: "X"}
	rec.Normalize()

	assert.NotNil(t, rec.Path)
	assert.NotNil(t, rec.DeclaredDependencies)
	assert.NotNil(t, rec.Metadata)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}

func TestRecord_Validate(t *testing.T) {
	assert.NoError(t, NewRecord("id", "name").Validate())

	err := (&Record{Name: "no id"}).Validate()
	assert.True(t, pkgerrors.IsValidation(err))

	err = (&Record{ID: "no-name"}).Validate()
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	rec := NewRecord("id", "name")
	rec.Path = []string{"app", "page"}
	rec.Metadata["k"] = "v"

	cp := rec.Clone()
	cp.Path[0] = "changed"
	cp.Metadata["k"] = "changed"
	cp.DeclaredDependencies = append(cp.DeclaredDependencies, "dep")

	assert.Equal(t, "app", rec.Path[0])
	assert.Equal(t, "v", rec.Metadata["k"])
	assert.Empty(t, rec.DeclaredDependencies)
}

func TestUpdateFields_ApplyTo(t *testing.T) {
	rec := NewRecord("id", "old")
	rec.SourceCode = "old source"
	before := rec.UpdatedAt
	time.Sleep(time.Millisecond)

	name := "new"
	source := ""
	perms := Permissions{AllowStyleChanges: true}
	fields := UpdateFields{
		Name:        &name,
		SourceCode:  &source,
		Permissions: &perms,
	}
	require.False(t, fields.IsEmpty())

	fields.ApplyTo(rec)

	assert.Equal(t, "new", rec.Name)
	// Explicit zero overwrites, unlike an omitted field.
	assert.Equal(t, "", rec.SourceCode)
	assert.Equal(t, perms, rec.Permissions)
	assert.True(t, rec.UpdatedAt.After(before))
}

func TestUpdateFields_IsEmpty(t *testing.T) {
	assert.True(t, UpdateFields{}.IsEmpty())

	name := "x"
	assert.False(t, UpdateFields{Name: &name}.IsEmpty())
}

func TestIsPathAncestor(t *testing.T) {
	assert.True(t, IsPathAncestor([]string{"app"}, []string{"app", "page"}))
	assert.True(t, IsPathAncestor([]string{"app", "page"}, []string{"app", "page", "widget"}))

	assert.False(t, IsPathAncestor([]string{"app", "page"}, []string{"app", "page"}), "equal paths are not ancestors")
	assert.False(t, IsPathAncestor([]string{"app", "other"}, []string{"app", "page", "widget"}))
	assert.False(t, IsPathAncestor([]string{}, []string{"app"}), "empty path is never an ancestor")
	assert.False(t, IsPathAncestor([]string{"app", "page", "widget"}, []string{"app"}))
}
