package portal

import (
	"github.com/rpms/rpms/internal/domain/careplan"
	"github.com/rpms/rpms/internal/domain/dailylog"
	"github.com/rpms/rpms/internal/domain/identity"
	"github.com/rpms/rpms/internal/domain/messaging"
)

// Dashboard is what a patient sees: the active plan with today's logs and
// the care team's messages. ActivePlan is nil when the patient has none.
type Dashboard struct {
	ActivePlan *careplan.View       `json:"active_plan"`
	TodayLogs  []dailylog.View      `json:"today_logs"`
	Messages   []*messaging.Message `json:"messages"`
}

// PlanHistory is one plan of a patient with its logs and messages.
type PlanHistory struct {
	Plan     careplan.View        `json:"plan"`
	Logs     []dailylog.View      `json:"logs"`
	Messages []*messaging.Message `json:"messages"`
}

// Overview is a doctor's view of one patient.
type Overview struct {
	Patient    *identity.User `json:"patient"`
	ActivePlan *careplan.View `json:"active_plan"`
	Plans      []PlanHistory  `json:"plans"`
}

// RosterEntry is one patient with their latest ACTIVE plan, if any.
type RosterEntry struct {
	Patient    *identity.User     `json:"patient"`
	ActivePlan *careplan.CarePlan `json:"active_plan"`
}

func planView(cp *careplan.CarePlan) *careplan.View {
	if cp == nil {
		return nil
	}
	v := careplan.NewView(cp)
	return &v
}

func nonNilMessages(msgs []*messaging.Message) []*messaging.Message {
	if msgs == nil {
		return []*messaging.Message{}
	}
	return msgs
}
