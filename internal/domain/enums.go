package domain

// SplitStatus is the fulfillment status of an order split
type SplitStatus string

const (
	SplitStatusNew            SplitStatus = "new"
	SplitStatusConfirm        SplitStatus = "confirm"
	SplitStatusReadyForPickup SplitStatus = "ready_for_pickup"
	SplitStatusOutForDelivery SplitStatus = "out_for_delivery"
	SplitStatusDelivered      SplitStatus = "delivered"
	SplitStatusOnHold         SplitStatus = "on_hold"
	SplitStatusCancel         SplitStatus = "cancel"
)

// AllSplitStatuses lists every split status in lifecycle order.
var AllSplitStatuses = []SplitStatus{
	SplitStatusNew,
	SplitStatusConfirm,
	SplitStatusReadyForPickup,
	SplitStatusOutForDelivery,
	SplitStatusDelivered,
	SplitStatusOnHold,
	SplitStatusCancel,
}

// IsValid checks if the split status is valid
func (s SplitStatus) IsValid() bool {
	switch s {
	case SplitStatusNew,
		SplitStatusConfirm,
		SplitStatusReadyForPickup,
		SplitStatusOutForDelivery,
		SplitStatusDelivered,
		SplitStatusOnHold,
		SplitStatusCancel:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the standard flow has no outgoing transitions from s.
func (s SplitStatus) IsTerminal() bool {
	return s == SplitStatusCancel || s == SplitStatusDelivered
}

// Label is the human-readable name shown on the admin timeline.
func (s SplitStatus) Label() string {
	switch s {
	case SplitStatusNew:
		return "New"
	case SplitStatusConfirm:
		return "Confirmed"
	case SplitStatusReadyForPickup:
		return "Ready for pickup"
	case SplitStatusOutForDelivery:
		return "Out for delivery"
	case SplitStatusDelivered:
		return "Delivered"
	case SplitStatusOnHold:
		return "On hold"
	case SplitStatusCancel:
		return "Cancelled"
	default:
		return string(s)
	}
}

// TransitionPolicy selects which transition table applies.
type TransitionPolicy int

const (
	// PolicyStandard is the store/customer-facing lifecycle where cancel is terminal.
	PolicyStandard TransitionPolicy = iota
	// PolicyAdmin is the admin correction surface. It additionally lets a
	// cancelled split be moved back to any other status.
	PolicyAdmin
)

func (p TransitionPolicy) String() string {
	if p == PolicyAdmin {
		return "admin"
	}
	return "standard"
}

// CanTransitionTo checks if a status transition is valid under the standard policy
func (s SplitStatus) CanTransitionTo(newStatus SplitStatus) bool {
	return s.CanTransitionUnder(PolicyStandard, newStatus)
}

// CanTransitionUnder checks a transition against the table for the given policy.
func (s SplitStatus) CanTransitionUnder(policy TransitionPolicy, to SplitStatus) bool {
	if !to.IsValid() || s == to {
		return false
	}
	for _, next := range s.NextStatuses(policy) {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func (s SplitStatus) NextStatuses(policy TransitionPolicy) []SplitStatus {
	switch s {
	case SplitStatusNew:
		return []SplitStatus{SplitStatusConfirm, SplitStatusOnHold, SplitStatusCancel}
	case SplitStatusConfirm:
		return []SplitStatus{
			SplitStatusReadyForPickup,
			SplitStatusOutForDelivery,
			SplitStatusDelivered,
			SplitStatusOnHold,
			SplitStatusCancel,
		}
	case SplitStatusReadyForPickup:
		return []SplitStatus{SplitStatusOutForDelivery, SplitStatusDelivered, SplitStatusOnHold, SplitStatusCancel}
	case SplitStatusOutForDelivery:
		return []SplitStatus{SplitStatusDelivered, SplitStatusOnHold, SplitStatusCancel}
	case SplitStatusOnHold:
		return []SplitStatus{SplitStatusConfirm, SplitStatusCancel}
	case SplitStatusDelivered:
		return nil
	case SplitStatusCancel:
		if policy == PolicyAdmin {
			return []SplitStatus{
				SplitStatusNew,
				SplitStatusConfirm,
				SplitStatusReadyForPickup,
				SplitStatusOutForDelivery,
				SplitStatusDelivered,
				SplitStatusOnHold,
			}
		}
		return nil
	default:
		return nil
	}
}

// IsActiveDelivery reports whether the status starts a third-party-logistics dispatch.
func (s SplitStatus) IsActiveDelivery() bool {
	return s == SplitStatusReadyForPickup || s == SplitStatusOutForDelivery
}

// NotifiesCustomer reports whether entering s sends an email/SMS to the customer.
func (s SplitStatus) NotifiesCustomer() bool {
	return s == SplitStatusDelivered || s == SplitStatusOnHold || s == SplitStatusCancel
}

// OnHoldStatus is the support-queue triage state while a split is on hold
type OnHoldStatus string

const (
	OnHoldStatusOpen    OnHoldStatus = "open"
	OnHoldStatusPending OnHoldStatus = "pending"
	OnHoldStatusClosed  OnHoldStatus = "closed"
)

// IsValid checks if the on-hold status is valid
func (s OnHoldStatus) IsValid() bool {
	switch s {
	case OnHoldStatusOpen, OnHoldStatusPending, OnHoldStatusClosed:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks the on-hold triage table. Every state may move to
// either of the other two.
func (s OnHoldStatus) CanTransitionTo(newStatus OnHoldStatus) bool {
	if !s.IsValid() || !newStatus.IsValid() {
		return false
	}
	return s != newStatus
}

// SyncOverallStatus is the state of one price+inventory run
type SyncOverallStatus string

const (
	SyncOverallRunning   SyncOverallStatus = "running"
	SyncOverallCompleted SyncOverallStatus = "completed"
	SyncOverallFailed    SyncOverallStatus = "failed"
)

// SyncStageStatus is the state of one stage inside a run
type SyncStageStatus string

const (
	SyncStagePending   SyncStageStatus = "pending"
	SyncStageRunning   SyncStageStatus = "running"
	SyncStageCompleted SyncStageStatus = "completed"
	SyncStageFailed    SyncStageStatus = "failed"
)

// LogType is the severity of a notification log entry
type LogType string

const (
	LogTypeInfo  LogType = "info"
	LogTypeError LogType = "error"
)

// ViewStatus marks whether a notification was seen in the admin UI
type ViewStatus string

const (
	ViewStatusUnread ViewStatus = "unread"
	ViewStatusRead   ViewStatus = "read"
)

// StoreStatus is the activation state of a store
type StoreStatus string

const (
	StoreStatusActive   StoreStatus = "Active"
	StoreStatusInactive StoreStatus = "Inactive"
)
