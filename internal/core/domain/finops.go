// internal/core/domain/finops.go
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a row id does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus is returned for a status transition that is not allowed
	ErrInvalidStatus = errors.New("invalid status transition")
	// ErrUnknownView is returned for a view name that is not served
	ErrUnknownView = errors.New("unknown view")
)

// View names a tabular page of the console
type View string

// View constants
const (
	ViewQueries         View = "queries"
	ViewWarehouses      View = "warehouses"
	ViewRecommendations View = "recommendations"
	ViewAssignedQueries View = "assigned-queries"
	ViewActivityLogs    View = "activity-logs"
)

// Views lists every view in menu order
var Views = []View{
	ViewQueries,
	ViewWarehouses,
	ViewRecommendations,
	ViewAssignedQueries,
	ViewActivityLogs,
}

// ParseView validates a view name
func ParseView(s string) (View, error) {
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// EmptyMessage is shown when a view has no rows after filtering
func (v View) EmptyMessage() string {
	switch v {
	case ViewQueries:
		return "No queries found"
	case ViewWarehouses:
		return "No warehouses found"
	case ViewRecommendations:
		return "No recommendations found"
	case ViewAssignedQueries:
		return "No assigned queries found"
	case ViewActivityLogs:
		return "No activity found"
	default:
		return "No results found"
	}
}

// QueryStatus represents the execution status of a query
type QueryStatus string

// Query status constants
const (
	QuerySucceeded QueryStatus = "Succeeded"
	QueryFailed    QueryStatus = "Failed"
	QueryRunning   QueryStatus = "Running"
	QueryQueued    QueryStatus = "Queued"
)

// Query is one row of the query history
type Query struct {
	ID           string          `json:"id"`
	Text         string          `json:"query_text"`
	User         string          `json:"user"`
	Warehouse    string          `json:"warehouse"`
	Status       QueryStatus     `json:"status"`
	DurationMs   int64           `json:"duration_ms"`
	BytesScanned int64           `json:"bytes_scanned"`
	Credits      decimal.Decimal `json:"credits"`
	Cost         decimal.Decimal `json:"cost"`
	StartedAt    time.Time       `json:"started_at"`
}

// WarehouseSize represents the t-shirt size of a warehouse
type WarehouseSize string

// Warehouse size constants
const (
	SizeXSmall  WarehouseSize = "X-Small"
	SizeSmall   WarehouseSize = "Small"
	SizeMedium  WarehouseSize = "Medium"
	SizeLarge   WarehouseSize = "Large"
	SizeXLarge  WarehouseSize = "X-Large"
	Size2XLarge WarehouseSize = "2X-Large"
)

// WarehouseStatus represents whether a warehouse is running
type WarehouseStatus string

// Warehouse status constants
const (
	WarehouseRunning   WarehouseStatus = "Running"
	WarehouseSuspended WarehouseStatus = "Suspended"
)

// Warehouse is one compute warehouse with its spend
type Warehouse struct {
	Name        string          `json:"name"`
	Size        WarehouseSize   `json:"size"`
	Status      WarehouseStatus `json:"status"`
	Credits     decimal.Decimal `json:"credits"`
	Cost        decimal.Decimal `json:"cost"`
	Utilization decimal.Decimal `json:"utilization"`
	LastActive  time.Time       `json:"last_active"`
}

// Severity ranks the impact of a recommendation
type Severity string

// Severity constants
const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// RecommendationStatus represents the lifecycle of a recommendation
type RecommendationStatus string

// Recommendation status constants
const (
	RecommendationOpen      RecommendationStatus = "Open"
	RecommendationResolved  RecommendationStatus = "Resolved"
	RecommendationDismissed RecommendationStatus = "Dismissed"
)

// Valid reports whether the status is known
func (s RecommendationStatus) Valid() bool {
	switch s {
	case RecommendationOpen, RecommendationResolved, RecommendationDismissed:
		return true
	}
	return false
}

// Recommendation is a cost-saving suggestion for a warehouse or query
type Recommendation struct {
	ID               string               `json:"id"`
	Title            string               `json:"title"`
	Description      string               `json:"description,omitempty"`
	Category         string               `json:"category"`
	Severity         Severity             `json:"severity"`
	Warehouse        string               `json:"warehouse"`
	EstimatedSavings decimal.Decimal      `json:"estimated_savings"`
	Status           RecommendationStatus `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
	ResolvedAt       *time.Time           `json:"resolved_at,omitempty"`
}

// Transition moves the recommendation to status. Open recommendations can be
// resolved or dismissed; closed ones can only be reopened.
func (r *Recommendation) Transition(to RecommendationStatus, at time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, to)
	}
	switch {
	case r.Status == RecommendationOpen && to != RecommendationOpen:
		t := at
		r.ResolvedAt = &t
	case r.Status != RecommendationOpen && to == RecommendationOpen:
		r.ResolvedAt = nil
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, r.Status, to)
	}
	r.Status = to
	return nil
}

// Priority of an assigned query
type Priority string

// Priority constants
const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// AssignmentStatus represents the progress of an assigned query
type AssignmentStatus string

// Assignment status constants
const (
	AssignmentPending    AssignmentStatus = "Pending"
	AssignmentInProgress AssignmentStatus = "In Progress"
	AssignmentDone       AssignmentStatus = "Done"
)

// AssignedQuery is a query handed to a teammate for optimisation
type AssignedQuery struct {
	ID         string           `json:"id"`
	QueryID    string           `json:"query_id"`
	Assignee   string           `json:"assignee"`
	AssignedBy string           `json:"assigned_by"`
	Priority   Priority         `json:"priority"`
	Status     AssignmentStatus `json:"status"`
	Message    string           `json:"message"`
	AssignedAt time.Time        `json:"assigned_at"`
}

// ActivityLog is one audit entry
type ActivityLog struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Dataset holds every fixture collection served by the console
type Dataset struct {
	Queries         []Query
	Warehouses      []Warehouse
	Recommendations []Recommendation
	AssignedQueries []AssignedQuery
	ActivityLogs    []ActivityLog
}

// WarehouseSpend is a dashboard line for one warehouse
type WarehouseSpend struct {
	Name    string          `json:"name"`
	Credits decimal.Decimal `json:"credits"`
	Cost    decimal.Decimal `json:"cost"`
}

// DashboardSummary aggregates the headline numbers of the console
type DashboardSummary struct {
	TotalCredits        decimal.Decimal  `json:"total_credits"`
	TotalCost           decimal.Decimal  `json:"total_cost"`
	QueryCount          int              `json:"query_count"`
	FailedQueries       int              `json:"failed_queries"`
	OpenRecommendations int              `json:"open_recommendations"`
	PotentialSavings    decimal.Decimal  `json:"potential_savings"`
	TopWarehouses       []WarehouseSpend `json:"top_warehouses"`
	RecentActivity      []ActivityLog    `json:"recent_activity"`
	GeneratedAt         time.Time        `json:"generated_at"`
}
