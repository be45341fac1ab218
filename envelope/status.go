// Package envelope defines the on-wire RequestEnvelope, its RequestStatus
// lifecycle and the deterministic fingerprint/tally-hash computation that
// lets peers agree on identity without a shared clock.
package envelope

// RequestStatus is the lifecycle state of a RequestEnvelope as it moves
// through propose/corroborate/commit. Canonical string form doubles as the
// gossip topic name for every status except the votes, which all publish
// on CORROBORATE.
type RequestStatus string

const (
	StatusPropose     RequestStatus = "PROPOSE"
	StatusCorroborate RequestStatus = "CORROBORATE"
	StatusValid       RequestStatus = "VALID"
	StatusInvalid     RequestStatus = "INVALID"
	StatusIgnored     RequestStatus = "IGNORED"
	StatusValidated   RequestStatus = "VALIDATED"
	StatusFailed      RequestStatus = "FAILED"
	StatusNotFound    RequestStatus = "NOTFOUND"
	StatusLoad        RequestStatus = "LOAD"
	StatusNew         RequestStatus = "NEW"
	StatusFetch       RequestStatus = "FETCH"
	StatusResponse    RequestStatus = "RESPONSE"
)

// Terminal reports whether status ends a PendingEvent's wait.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusValidated, StatusFailed, StatusResponse, StatusLoad:
		return true
	default:
		return false
	}
}

// IsVote reports whether status is one of the corroboration votes, all of
// which publish on the CORROBORATE topic rather than their own name.
func (s RequestStatus) IsVote() bool {
	switch s {
	case StatusValid, StatusInvalid, StatusIgnored, StatusNotFound:
		return true
	default:
		return false
	}
}

// Topic returns the gossip topic status publishes on.
func (s RequestStatus) Topic() string {
	if s.IsVote() {
		return string(StatusCorroborate)
	}
	return string(s)
}
