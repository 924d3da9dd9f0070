// internal/core/domain/schemas.go
package domain

import (
	"github.com/ammerola/finops-console/internal/core/dataview"
)

// Field names shared by the API, the exporters and the console
const (
	FieldID          = "id"
	FieldQueryText   = "query_text"
	FieldUser        = "user"
	FieldWarehouse   = "warehouse"
	FieldStatus      = "status"
	FieldDuration    = "duration_ms"
	FieldBytes       = "bytes_scanned"
	FieldCredits     = "credits"
	FieldCost        = "cost"
	FieldStartedAt   = "started_at"
	FieldName        = "name"
	FieldSize        = "size"
	FieldUtilization = "utilization"
	FieldLastActive  = "last_active"
	FieldTitle       = "title"
	FieldCategory    = "category"
	FieldSeverity    = "severity"
	FieldSavings     = "estimated_savings"
	FieldCreatedAt   = "created_at"
	FieldQueryID     = "query_id"
	FieldAssignee    = "assignee"
	FieldAssignedBy  = "assigned_by"
	FieldPriority    = "priority"
	FieldMessage     = "message"
	FieldAssignedAt  = "assigned_at"
	FieldUsername    = "username"
	FieldAction      = "action"
	FieldTimestamp   = "timestamp"
)

// QuerySchema describes the query history view
var QuerySchema = dataview.NewSchema(
	func(q Query) string { return q.ID },
	dataview.Field[Query]{Name: FieldID, Kind: dataview.KindString, Searchable: true,
		Get: func(q Query) dataview.Value { return dataview.String(q.ID) }},
	dataview.Field[Query]{Name: FieldQueryText, Kind: dataview.KindString, Searchable: true, FreeText: true,
		Get: func(q Query) dataview.Value { return dataview.String(q.Text) }},
	dataview.Field[Query]{Name: FieldUser, Kind: dataview.KindString, Searchable: true, Selectable: true,
		Get: func(q Query) dataview.Value { return dataview.String(q.User) }},
	dataview.Field[Query]{Name: FieldWarehouse, Kind: dataview.KindString, Selectable: true,
		Get: func(q Query) dataview.Value { return dataview.String(q.Warehouse) }},
	dataview.Field[Query]{Name: FieldStatus, Kind: dataview.KindEnum, Selectable: true,
		Get: func(q Query) dataview.Value { return dataview.Enum(q.Status) }},
	dataview.Field[Query]{Name: FieldDuration, Kind: dataview.KindNumber,
		Get: func(q Query) dataview.Value { return dataview.Int(q.DurationMs) }},
	dataview.Field[Query]{Name: FieldBytes, Kind: dataview.KindNumber,
		Get: func(q Query) dataview.Value { return dataview.Int(q.BytesScanned) }},
	dataview.Field[Query]{Name: FieldCredits, Kind: dataview.KindNumber,
		Get: func(q Query) dataview.Value { return dataview.Number(q.Credits) }},
	dataview.Field[Query]{Name: FieldCost, Kind: dataview.KindNumber,
		Get: func(q Query) dataview.Value { return dataview.Number(q.Cost) }},
	dataview.Field[Query]{Name: FieldStartedAt, Kind: dataview.KindTime,
		Get: func(q Query) dataview.Value { return dataview.Time(q.StartedAt) }},
)

// WarehouseSchema describes the warehouse view
var WarehouseSchema = dataview.NewSchema(
	func(w Warehouse) string { return w.Name },
	dataview.Field[Warehouse]{Name: FieldName, Kind: dataview.KindString, Searchable: true,
		Get: func(w Warehouse) dataview.Value { return dataview.String(w.Name) }},
	dataview.Field[Warehouse]{Name: FieldSize, Kind: dataview.KindEnum, Selectable: true,
		Get: func(w Warehouse) dataview.Value { return dataview.Enum(w.Size) }},
	dataview.Field[Warehouse]{Name: FieldStatus, Kind: dataview.KindEnum, Selectable: true, Mode: dataview.SelectSingle,
		Get: func(w Warehouse) dataview.Value { return dataview.Enum(w.Status) }},
	dataview.Field[Warehouse]{Name: FieldCredits, Kind: dataview.KindNumber,
		Get: func(w Warehouse) dataview.Value { return dataview.Number(w.Credits) }},
	dataview.Field[Warehouse]{Name: FieldCost, Kind: dataview.KindNumber,
		Get: func(w Warehouse) dataview.Value { return dataview.Number(w.Cost) }},
	dataview.Field[Warehouse]{Name: FieldUtilization, Kind: dataview.KindNumber,
		Get: func(w Warehouse) dataview.Value { return dataview.Number(w.Utilization) }},
	dataview.Field[Warehouse]{Name: FieldLastActive, Kind: dataview.KindTime,
		Get: func(w Warehouse) dataview.Value { return dataview.Time(w.LastActive) }},
)

// RecommendationSchema describes the recommendation view
var RecommendationSchema = dataview.NewSchema(
	func(r Recommendation) string { return r.ID },
	dataview.Field[Recommendation]{Name: FieldID, Kind: dataview.KindString, Searchable: true,
		Get: func(r Recommendation) dataview.Value { return dataview.String(r.ID) }},
	dataview.Field[Recommendation]{Name: FieldTitle, Kind: dataview.KindString, Searchable: true, FreeText: true,
		Get: func(r Recommendation) dataview.Value { return dataview.String(r.Title) }},
	dataview.Field[Recommendation]{Name: FieldCategory, Kind: dataview.KindEnum, Selectable: true,
		Get: func(r Recommendation) dataview.Value { return dataview.Enum(r.Category) }},
	dataview.Field[Recommendation]{Name: FieldSeverity, Kind: dataview.KindEnum, Selectable: true,
		Get: func(r Recommendation) dataview.Value { return dataview.Enum(r.Severity) }},
	dataview.Field[Recommendation]{Name: FieldWarehouse, Kind: dataview.KindString, Searchable: true, Selectable: true,
		Get: func(r Recommendation) dataview.Value { return dataview.String(r.Warehouse) }},
	dataview.Field[Recommendation]{Name: FieldSavings, Kind: dataview.KindNumber,
		Get: func(r Recommendation) dataview.Value { return dataview.Number(r.EstimatedSavings) }},
	dataview.Field[Recommendation]{Name: FieldStatus, Kind: dataview.KindEnum, Selectable: true,
		Get: func(r Recommendation) dataview.Value { return dataview.Enum(r.Status) }},
	dataview.Field[Recommendation]{Name: FieldCreatedAt, Kind: dataview.KindTime,
		Get: func(r Recommendation) dataview.Value { return dataview.Time(r.CreatedAt) }},
)

// AssignedQuerySchema describes the assigned queries view
var AssignedQuerySchema = dataview.NewSchema(
	func(a AssignedQuery) string { return a.ID },
	dataview.Field[AssignedQuery]{Name: FieldID, Kind: dataview.KindString, Searchable: true,
		Get: func(a AssignedQuery) dataview.Value { return dataview.String(a.ID) }},
	dataview.Field[AssignedQuery]{Name: FieldQueryID, Kind: dataview.KindString, Searchable: true,
		Get: func(a AssignedQuery) dataview.Value { return dataview.String(a.QueryID) }},
	dataview.Field[AssignedQuery]{Name: FieldAssignee, Kind: dataview.KindString, Searchable: true, Selectable: true,
		Get: func(a AssignedQuery) dataview.Value { return dataview.String(a.Assignee) }},
	dataview.Field[AssignedQuery]{Name: FieldAssignedBy, Kind: dataview.KindString, Selectable: true,
		Get: func(a AssignedQuery) dataview.Value { return dataview.String(a.AssignedBy) }},
	dataview.Field[AssignedQuery]{Name: FieldPriority, Kind: dataview.KindEnum, Selectable: true,
		Get: func(a AssignedQuery) dataview.Value { return dataview.Enum(a.Priority) }},
	dataview.Field[AssignedQuery]{Name: FieldStatus, Kind: dataview.KindEnum, Selectable: true,
		Get: func(a AssignedQuery) dataview.Value { return dataview.Enum(a.Status) }},
	dataview.Field[AssignedQuery]{Name: FieldMessage, Kind: dataview.KindString, Searchable: true, FreeText: true,
		Get: func(a AssignedQuery) dataview.Value { return dataview.String(a.Message) }},
	dataview.Field[AssignedQuery]{Name: FieldAssignedAt, Kind: dataview.KindTime,
		Get: func(a AssignedQuery) dataview.Value { return dataview.Time(a.AssignedAt) }},
)

// ActivityLogSchema describes the activity log view
var ActivityLogSchema = dataview.NewSchema(
	func(l ActivityLog) string { return l.ID },
	dataview.Field[ActivityLog]{Name: FieldUsername, Kind: dataview.KindString, Searchable: true, Selectable: true,
		Get: func(l ActivityLog) dataview.Value { return dataview.String(l.Username) }},
	dataview.Field[ActivityLog]{Name: FieldAction, Kind: dataview.KindString, Searchable: true, Selectable: true,
		Get: func(l ActivityLog) dataview.Value { return dataview.String(l.Action) }},
	dataview.Field[ActivityLog]{Name: FieldMessage, Kind: dataview.KindString, Searchable: true, FreeText: true,
		Get: func(l ActivityLog) dataview.Value { return dataview.String(l.Message) }},
	dataview.Field[ActivityLog]{Name: FieldTimestamp, Kind: dataview.KindTime,
		Get: func(l ActivityLog) dataview.Value { return dataview.Time(l.Timestamp) }},
)
