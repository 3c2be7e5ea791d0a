package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"newsrag/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the stored article format.
const CurrentSchemaVersion = 1

const keySchema = "vectorstore:schema"

// SchemaInfo records which embedding space the stored articles live in.
type SchemaInfo struct {
	Version   int    `json:"version"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// MigrationResult describes the result of a schema check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	Stored         SchemaInfo
	Current        SchemaInfo
	Reason         string
}

func (ix *VectorIndex) currentSchema() SchemaInfo {
	return SchemaInfo{Version: CurrentSchemaVersion, Model: ix.model, Dimension: ix.dimension}
}

// GetSchemaInfo reads the stored schema record. A missing record yields the
// zero SchemaInfo.
func (ix *VectorIndex) GetSchemaInfo(ctx context.Context) (SchemaInfo, error) {
	var info SchemaInfo
	data, err := ix.kv.Get(ctx, keySchema)
	if errors.Is(err, domain.ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return info, &domain.StorageError{Op: "get", Key: keySchema, Err: err}
	}
	if err := json.Unmarshal(data, &info); err != nil {
		// unreadable record counts as pre-versioned
		return SchemaInfo{}, nil
	}
	return info, nil
}

func (ix *VectorIndex) setSchemaInfo(ctx context.Context, info SchemaInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := ix.kv.Set(ctx, keySchema, data, 0); err != nil {
		return &domain.StorageError{Op: "set", Key: keySchema, Err: err}
	}
	return nil
}

// CheckMigration compares the stored schema with the configured one.
// Articles embedded by a different model or at a different dimension can
// never be compared with new queries, so any such change needs a rebuild.
func (ix *VectorIndex) CheckMigration(ctx context.Context) (*MigrationResult, error) {
	stored, err := ix.GetSchemaInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	current := ix.currentSchema()
	result := &MigrationResult{Stored: stored, Current: current}

	switch {
	case stored.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case stored.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("store written by newer version (v%d > v%d)", stored.Version, CurrentSchemaVersion)
	case stored.Model != current.Model:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding model changed from %q to %q", stored.Model, current.Model)
	case stored.Dimension != current.Dimension:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding dimension changed from %d to %d", stored.Dimension, current.Dimension)
	case stored.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", stored.Version, CurrentSchemaVersion)
	}

	return result, nil
}

// Migrate clears the durable articles when the schema requires a rebuild
// and records the current schema.
func (ix *VectorIndex) Migrate(ctx context.Context) error {
	result, err := ix.CheckMigration(ctx)
	if err != nil {
		return err
	}

	if result.NeedsRebuild {
		ix.log.Warn("clearing vector index", "reason", result.Reason)
		if err := ix.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear index for rebuild: %w", err)
		}
	} else if !result.NeedsMigration {
		return nil
	}

	return ix.setSchemaInfo(ctx, result.Current)
}
