// Package model holds the relational schema used by the GORM backends.
package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SchemaVersion is written to ServiceInfo when the schema is first created.
const SchemaVersion = 1

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ServiceInfo{},
	&ClassRecord{},
}

// ServiceInfo describes the instance that owns the database
type ServiceInfo struct {
	gorm.Model
	ServiceName   string `json:"serviceName" gorm:"size:127"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*ServiceInfo) TableName() string {
	return "service_infos"
}

// ClassRecord is one stored class. Seq fixes the storage order; the list view
// columns are copied out of Data so listing never decodes the whole tree.
// Timestamps are epoch milliseconds and deliberately not named CreatedAt and
// UpdatedAt, which GORM would overwrite.
type ClassRecord struct {
	Seq         uint           `json:"-" gorm:"primaryKey;autoIncrement"`
	ClassID     string         `json:"id" gorm:"size:64;uniqueIndex;not null"`
	OwnerID     string         `json:"ownerId" gorm:"size:128;index;not null"`
	Title       string         `json:"title" gorm:"size:255"`
	Description string         `json:"description"`
	Thumbnail   string         `json:"thumbnail"`
	MarkerCount int            `json:"markerCount"`
	CreatedMs   int64          `json:"createdAt"`
	UpdatedMs   int64          `json:"updatedAt"`
	Data        datatypes.JSON `json:"data"`
}

func (*ClassRecord) TableName() string {
	return "class_records"
}
