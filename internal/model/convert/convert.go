// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/areduca/classbuilder/internal/model"
	"github.com/areduca/classbuilder/pkg/core"
	"gorm.io/datatypes"
)

// CoreToClassRecord converts a core.Class owned by ownerID to a GORM model.ClassRecord.
// The whole tree goes into Data as JSON.
func CoreToClassRecord(ownerID string, c core.Class) (model.ClassRecord, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return model.ClassRecord{}, fmt.Errorf("failed to encode class %s: %w", c.ID, err)
	}

	return model.ClassRecord{
		ClassID:     c.ID,
		OwnerID:     ownerID,
		Title:       c.Title,
		Description: c.Description,
		Thumbnail:   c.Thumbnail,
		MarkerCount: len(c.MarkerObjects),
		CreatedMs:   c.CreatedAt,
		UpdatedMs:   c.UpdatedAt,
		Data:        datatypes.JSON(data),
	}, nil
}

// ClassRecordToCore decodes the class tree held by r.
func ClassRecordToCore(r model.ClassRecord) (core.Class, error) {
	var c core.Class
	if err := json.Unmarshal(r.Data, &c); err != nil {
		return core.Class{}, fmt.Errorf("failed to decode class %s: %w", r.ClassID, err)
	}
	if c.ID != r.ClassID {
		return core.Class{}, fmt.Errorf("class record %s holds class %q", r.ClassID, c.ID)
	}
	return c, nil
}

// ClassRecordToSummary builds the list view from the record columns.
func ClassRecordToSummary(r model.ClassRecord) core.Summary {
	return core.Summary{
		ID:          r.ClassID,
		Title:       r.Title,
		Description: r.Description,
		Thumbnail:   r.Thumbnail,
		MarkerCount: r.MarkerCount,
		CreatedAt:   r.CreatedMs,
		UpdatedAt:   r.UpdatedMs,
	}
}
