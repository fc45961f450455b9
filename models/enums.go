package models

import (
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
)

type MovementKind string

const (
	MovementKindInbound    MovementKind = "Inbound"
	MovementKindOutbound   MovementKind = "Outbound"
	MovementKindAdjustment MovementKind = "Adjustment"
)

func ParseMovementKind(s string) (MovementKind, error) {
	kinds := map[string]MovementKind{
		"Inbound":    MovementKindInbound,
		"Outbound":   MovementKindOutbound,
		"Adjustment": MovementKindAdjustment,
	}
	kind, ok := kinds[s]
	if !ok {
		return "", utils.InvalidArgumentf("invalid movement kind %q", s)
	}
	return kind, nil
}

type TaskState string

const (
	TaskStatePending TaskState = "Pending"
	TaskStateRunning TaskState = "Running"
	TaskStateDone    TaskState = "Done"
)

func ParseTaskState(s string) (TaskState, error) {
	states := map[string]TaskState{
		"Pending": TaskStatePending,
		"Running": TaskStateRunning,
		"Done":    TaskStateDone,
	}
	state, ok := states[s]
	if !ok {
		return "", utils.InvalidArgumentf("invalid task state %q", s)
	}
	return state, nil
}

// canTransitionTask reports whether a direct task move is legal. Done is
// terminal; Running -> Pending is the pause path.
func canTransitionTask(from, to TaskState) bool {
	if from == to {
		return true
	}
	switch from {
	case TaskStatePending:
		return to == TaskStateRunning || to == TaskStateDone
	case TaskStateRunning:
		return to == TaskStatePending || to == TaskStateDone
	case TaskStateDone:
		return false
	}
	return false
}

type OrderState string

const (
	OrderStateInProgress OrderState = "InProgress"
	OrderStateDone       OrderState = "Done"
	OrderStateCancelled  OrderState = "Cancelled"
)

func ParseOrderState(s string) (OrderState, error) {
	states := map[string]OrderState{
		"InProgress": OrderStateInProgress,
		"Done":       OrderStateDone,
		"Cancelled":  OrderStateCancelled,
	}
	state, ok := states[s]
	if !ok {
		return "", utils.InvalidArgumentf("invalid order state %q", s)
	}
	return state, nil
}

type IncidentState string

const (
	IncidentStatePending  IncidentState = "Pending"
	IncidentStateInReview IncidentState = "InReview"
	IncidentStateResolved IncidentState = "Resolved"
)

func ParseIncidentState(s string) (IncidentState, error) {
	states := map[string]IncidentState{
		"Pending":  IncidentStatePending,
		"InReview": IncidentStateInReview,
		"Resolved": IncidentStateResolved,
	}
	state, ok := states[s]
	if !ok {
		return "", utils.InvalidArgumentf("invalid incident state %q", s)
	}
	return state, nil
}

func incidentRank(s IncidentState) int {
	switch s {
	case IncidentStatePending:
		return 0
	case IncidentStateInReview:
		return 1
	case IncidentStateResolved:
		return 2
	}
	return -1
}

// canAdvanceIncident enforces the forward-only review workflow
// (Pending -> InReview -> Resolved, one step at a time).
func canAdvanceIncident(from, to IncidentState) bool {
	return incidentRank(to) == incidentRank(from)+1
}

type IncidentUrgency string

const (
	IncidentUrgencyLow    IncidentUrgency = "Low"
	IncidentUrgencyMedium IncidentUrgency = "Medium"
	IncidentUrgencyHigh   IncidentUrgency = "High"
)

func ParseIncidentUrgency(s string) (IncidentUrgency, error) {
	urgencies := map[string]IncidentUrgency{
		"Low":    IncidentUrgencyLow,
		"Medium": IncidentUrgencyMedium,
		"High":   IncidentUrgencyHigh,
	}
	urgency, ok := urgencies[s]
	if !ok {
		return "", utils.InvalidArgumentf("invalid incident urgency %q", s)
	}
	return urgency, nil
}

type UserRole string

const (
	UserRoleOperator   UserRole = "Operator"
	UserRoleSupervisor UserRole = "Supervisor"
	UserRoleAdmin      UserRole = "Admin"
)

func ParseUserRole(s string) (UserRole, error) {
	roles := map[string]UserRole{
		"Operator":   UserRoleOperator,
		"Supervisor": UserRoleSupervisor,
		"Admin":      UserRoleAdmin,
	}
	role, ok := roles[s]
	if !ok {
		return "", utils.InvalidArgumentf("invalid user role %q", s)
	}
	return role, nil
}

// StockStatus is the read-side tag on supply items; never stored.
type StockStatus string

const (
	StockStatusOK  StockStatus = "OK"
	StockStatusLow StockStatus = "LOW"
)
