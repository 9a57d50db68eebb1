// internal/coordinator/events.go
package coordinator

import "time"

// Event is a lifecycle announcement emitted after a successful commit.
// Announcements are advisory; the store is the source of truth.
type Event struct {
	Type      string    `json:"type"`
	Namespace string    `json:"namespace"`
	TaskID    string    `json:"task_id,omitempty"`
	HunterID  string    `json:"hunter_id,omitempty"`
	ReportID  string    `json:"report_id,omitempty"`
	At        time.Time `json:"at"`
}

// Event types
const (
	EventHunterRegistered = "hunter.registered"
	EventTaskPublished    = "task.published"
	EventTaskClaimed      = "task.claimed"
	EventTaskStarted      = "task.started"
	EventTaskCompleted    = "task.completed"
	EventTaskFailed       = "task.failed"
	EventTaskArchived     = "task.archived"
	EventReportSubmitted  = "report.submitted"
	EventReportEvaluated  = "report.evaluated"
	EventMessagePosted    = "discussion.posted"
)

// Announcer fans events out to listeners. Implementations must not
// block; the coordinator calls Announce on the request path.
type Announcer interface {
	Announce(ev Event)
}

// multiAnnouncer broadcasts to several announcers
type multiAnnouncer []Announcer

func (m multiAnnouncer) Announce(ev Event) {
	for _, a := range m {
		a.Announce(ev)
	}
}

// MultiAnnouncer combines announcers, skipping nils
func MultiAnnouncer(announcers ...Announcer) Announcer {
	var out multiAnnouncer
	for _, a := range announcers {
		if a != nil {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
