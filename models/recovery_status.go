package models

// RecoveryStatus is the lifecycle state of a recovery event
type RecoveryStatus string

const (
	RecoveryStatusFound           RecoveryStatus = "found"
	RecoveryStatusMeetupProposed  RecoveryStatus = "meetup_proposed"
	RecoveryStatusMeetupConfirmed RecoveryStatus = "meetup_confirmed"
	RecoveryStatusAbandoned       RecoveryStatus = "abandoned"
	RecoveryStatusRecovered       RecoveryStatus = "recovered"
)

// ActiveRecoveryStatuses are the statuses of a recovery still in progress
var ActiveRecoveryStatuses = []RecoveryStatus{
	RecoveryStatusFound,
	RecoveryStatusMeetupProposed,
	RecoveryStatusMeetupConfirmed,
}

var recoveryTransitions = map[RecoveryStatus][]RecoveryStatus{
	RecoveryStatusFound:           {RecoveryStatusMeetupProposed, RecoveryStatusAbandoned, RecoveryStatusRecovered},
	RecoveryStatusMeetupProposed:  {RecoveryStatusMeetupConfirmed, RecoveryStatusFound, RecoveryStatusAbandoned, RecoveryStatusRecovered},
	RecoveryStatusMeetupConfirmed: {RecoveryStatusAbandoned, RecoveryStatusRecovered},
	// an abandoned disc is closed out when someone claims it
	RecoveryStatusAbandoned: {RecoveryStatusRecovered},
	RecoveryStatusRecovered: {},
}

// IsActive reports whether the recovery is still in progress
func (s RecoveryStatus) IsActive() bool {
	for _, status := range ActiveRecoveryStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the recovery may move from s to next
func (s RecoveryStatus) CanTransitionTo(next RecoveryStatus) bool {
	for _, allowed := range recoveryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
