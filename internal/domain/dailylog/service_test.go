package dailylog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpms/rpms/internal/domain/careplan"
	"github.com/rpms/rpms/internal/domain/schedule"
	"github.com/rpms/rpms/internal/platform/apperr"
	"github.com/rpms/rpms/internal/platform/auth"
	"github.com/rpms/rpms/internal/platform/db"
)

type mockDailyLogRepo struct {
	store []*DailyLog
	clock time.Time
}

func newMockDailyLogRepo() *mockDailyLogRepo {
	return &mockDailyLogRepo{clock: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)}
}

func (m *mockDailyLogRepo) Create(_ context.Context, l *DailyLog) error {
	m.clock = m.clock.Add(time.Minute)
	l.ID = uuid.New()
	l.CreatedAt = m.clock
	m.store = append(m.store, l)
	return nil
}

func (m *mockDailyLogRepo) newestFirst(keep func(*DailyLog) bool) []*DailyLog {
	var out []*DailyLog
	for _, l := range m.store {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockDailyLogRepo) ListByPlan(_ context.Context, planID uuid.UUID, limit, offset int) ([]*DailyLog, int, error) {
	all := m.newestFirst(func(l *DailyLog) bool { return l.CarePlanID == planID })
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *mockDailyLogRepo) ListByPlanSince(_ context.Context, planID uuid.UUID, since time.Time) ([]*DailyLog, error) {
	return m.newestFirst(func(l *DailyLog) bool {
		return l.CarePlanID == planID && !l.CreatedAt.Before(since)
	}), nil
}

func (m *mockDailyLogRepo) ListByPlans(_ context.Context, planIDs []uuid.UUID) (map[uuid.UUID][]*DailyLog, error) {
	out := make(map[uuid.UUID][]*DailyLog)
	for _, id := range planIDs {
		id := id
		if logs := m.newestFirst(func(l *DailyLog) bool { return l.CarePlanID == id }); len(logs) > 0 {
			out[id] = logs
		}
	}
	return out, nil
}

func (m *mockDailyLogRepo) RecentPending(_ context.Context, limit int) ([]*DailyLog, error) {
	all := m.newestFirst(func(l *DailyLog) bool { return l.Status == StatusPending })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type mockPlanReader struct {
	plans map[uuid.UUID]*careplan.CarePlan
}

func (m *mockPlanReader) GetPlan(_ context.Context, caller auth.Caller, planID uuid.UUID) (*careplan.CarePlan, error) {
	cp, ok := m.plans[planID]
	if !ok {
		return nil, apperr.NotFound("care plan %s not found", planID)
	}
	if err := caller.RequirePatientAccess(cp.PatientID); err != nil {
		return nil, err
	}
	return cp, nil
}

type stubExtractor struct {
	result *Extraction
	err    error
	calls  int
	last   []Response
}

func (s *stubExtractor) Extract(_ context.Context, responses []Response) (*Extraction, error) {
	s.calls++
	s.last = responses
	return s.result, s.err
}

func idx(i int) *int { return &i }

func bpPlanJSON(t *testing.T) string {
	t.Helper()
	raw, err := schedule.Encode(&schedule.Schedule{
		Summary:      "Track your blood pressure.",
		DurationDays: 7,
		DailyTasks: []schedule.Task{
			{Type: schedule.TaskVitalCheck, Label: "What is your BP?", Frequency: "daily"},
			{Type: schedule.TaskQuestion, Label: "Any headache?", Frequency: "daily"},
			{Type: schedule.TaskMedication, Label: "Did you take your medication?", Frequency: "daily"},
		},
	})
	if err != nil {
		t.Fatalf("encode schedule: %v", err)
	}
	return raw
}

type fixture struct {
	svc       *Service
	repo      *mockDailyLogRepo
	extractor *stubExtractor
	plan      *careplan.CarePlan
	patient   auth.Caller
	doctor    auth.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	patient := auth.Caller{ID: uuid.New(), Role: auth.RolePatient}
	doctor := auth.Caller{ID: uuid.New(), Role: auth.RoleDoctor}
	plan := &careplan.CarePlan{
		ID:        uuid.New(),
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		Schedule:  bpPlanJSON(t),
		Status:    careplan.StatusActive,
	}
	repo := newMockDailyLogRepo()
	ext := &stubExtractor{result: &Extraction{
		StructuredData:        schedule.StructuredData{"bp": "150/95", "headache": true},
		RiskLevel:             RiskMedium,
		Sentiment:             "worried",
		UrgentAttentionNeeded: false,
	}}
	plans := &mockPlanReader{plans: map[uuid.UUID]*careplan.CarePlan{plan.ID: plan}}
	svc := NewService(repo, plans, ext, db.NoTx{}, zerolog.Nop())
	return &fixture{svc: svc, repo: repo, extractor: ext, plan: plan, patient: patient, doctor: doctor}
}

func TestRenderRawInput(t *testing.T) {
	got := RenderRawInput([]Response{
		{Question: "What is your BP?", Answer: "150/95"},
		{Question: "Any headache?", Answer: "ndio kidogo"},
	})
	want := "Q: What is your BP?\nA: 150/95\n\nQ: Any headache?\nA: ndio kidogo"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if RenderRawInput(nil) != "" {
		t.Error("expected empty rendering for no pairs")
	}
}

func TestResolveAnswers_OrdersAndDrops(t *testing.T) {
	sched, _ := schedule.Decode(bpPlanJSON(t))
	got := ResolveAnswers(sched, []Answer{
		{QuestionIndex: idx(2), Answer: "yes"},
		{QuestionIndex: idx(0), Answer: " 150/95 "},
		{QuestionIndex: idx(1), Answer: "   "},
		{QuestionIndex: idx(7), Answer: "orphan"},
		{QuestionIndex: idx(-1), Answer: "negative"},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %+v", len(got), got)
	}
	if got[0].Question != "What is your BP?" || got[0].Answer != "150/95" {
		t.Errorf("unexpected first pair %+v", got[0])
	}
	if got[1].Question != "Did you take your medication?" || got[1].Answer != "yes" {
		t.Errorf("unexpected second pair %+v", got[1])
	}
}

func TestResolveAnswers_MissingIndexIsDropped(t *testing.T) {
	sched, _ := schedule.Decode(bpPlanJSON(t))
	got := ResolveAnswers(sched, []Answer{
		{QuestionIndex: idx(0), Answer: "120/80"},
		{Answer: "yes I took it"},
	})
	if len(got) != 1 || got[0].Question != "What is your BP?" || got[0].Answer != "120/80" {
		t.Errorf("expected only the indexed answer, got %+v", got)
	}
}

func TestSubmitLog_MissingQuestionIndex(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitLog(context.Background(), f.patient, f.plan.ID, "", []Answer{
		{Answer: "120/80"},
		{Answer: "yes I took it"},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.extractor.calls != 0 || len(f.repo.store) != 0 {
		t.Errorf("expected no extraction and no log, got calls=%d logs=%d", f.extractor.calls, len(f.repo.store))
	}
}

func TestSubmitLog_Success(t *testing.T) {
	f := newFixture(t)
	sub, err := f.svc.SubmitLog(context.Background(), f.patient, f.plan.ID, " feeling tired ", []Answer{
		{QuestionIndex: idx(1), Answer: "yes"},
		{QuestionIndex: idx(0), Answer: "150/95"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.extractor.calls != 1 {
		t.Errorf("expected one extraction call, got %d", f.extractor.calls)
	}
	if len(f.repo.store) != 1 {
		t.Fatalf("expected one stored log, got %d", len(f.repo.store))
	}
	l := f.repo.store[0]
	if l.Status != StatusPending || l.RiskLevel != RiskMedium || l.CarePlanID != f.plan.ID {
		t.Errorf("unexpected log %+v", l)
	}
	if l.PatientRawInput != "Q: What is your BP?\nA: 150/95\n\nQ: Any headache?\nA: yes" {
		t.Errorf("unexpected raw input %q", l.PatientRawInput)
	}
	if l.PatientNote == nil || *l.PatientNote != "feeling tired" {
		t.Errorf("unexpected note %v", l.PatientNote)
	}
	data, err := schedule.DecodeData(l.StructuredData)
	if err != nil || data["bp"] != "150/95" {
		t.Errorf("unexpected structured data %q (%v)", l.StructuredData, err)
	}
	if sub.Sentiment != "worried" || sub.UrgentAttentionNeeded {
		t.Errorf("unexpected submission metadata %+v", sub)
	}
}

func TestSubmitLog_BlankNoteIsAbsent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.SubmitLog(context.Background(), f.patient, f.plan.ID, "  ", []Answer{{QuestionIndex: idx(0), Answer: "120/80"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.store[0].PatientNote != nil {
		t.Error("expected blank note to be stored as absent")
	}
}

func TestSubmitLog_AllEmptyAnswers(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitLog(context.Background(), f.patient, f.plan.ID, "note", []Answer{
		{QuestionIndex: idx(0), Answer: ""},
		{QuestionIndex: idx(1), Answer: "  "},
		{QuestionIndex: idx(9), Answer: "unknown question"},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.extractor.calls != 0 || len(f.repo.store) != 0 {
		t.Errorf("expected no extraction and no log, got calls=%d logs=%d", f.extractor.calls, len(f.repo.store))
	}
}

func TestSubmitLog_ExtractionFailureLeavesNoLog(t *testing.T) {
	f := newFixture(t)
	f.extractor.result = nil
	f.extractor.err = apperr.Collaborator(errors.New("timeout"), "extraction failed")

	_, err := f.svc.SubmitLog(context.Background(), f.patient, f.plan.ID, "", []Answer{{QuestionIndex: idx(0), Answer: "150/95"}})
	if !errors.Is(err, apperr.ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if len(f.repo.store) != 0 {
		t.Errorf("expected no log, got %d", len(f.repo.store))
	}
}

func TestSubmitLog_CompletedPlan(t *testing.T) {
	f := newFixture(t)
	f.plan.Status = careplan.StatusCompleted
	_, err := f.svc.SubmitLog(context.Background(), f.patient, f.plan.ID, "", []Answer{{QuestionIndex: idx(0), Answer: "150/95"}})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.extractor.calls != 0 {
		t.Error("extractor must not run for a completed plan")
	}
}

func TestSubmitLog_Authorization(t *testing.T) {
	f := newFixture(t)
	answers := []Answer{{QuestionIndex: idx(0), Answer: "150/95"}}

	other := auth.Caller{ID: uuid.New(), Role: auth.RolePatient}
	if _, err := f.svc.SubmitLog(context.Background(), other, f.plan.ID, "", answers); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("expected authorization error for another patient, got %v", err)
	}
	if _, err := f.svc.SubmitLog(context.Background(), f.doctor, f.plan.ID, "", answers); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("expected authorization error for a doctor, got %v", err)
	}
	if _, err := f.svc.SubmitLog(context.Background(), f.patient, uuid.New(), "", answers); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for unknown plan, got %v", err)
	}
	if len(f.repo.store) != 0 {
		t.Errorf("expected no logs, got %d", len(f.repo.store))
	}
}

func TestListByPlan_NewestFirst(t *testing.T) {
	f := newFixture(t)
	for _, bp := range []string{"120/80", "130/85", "140/90"} {
		if _, err := f.svc.SubmitLog(context.Background(), f.patient, f.plan.ID, "", []Answer{{QuestionIndex: idx(0), Answer: bp}}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	logs, total, err := f.svc.ListByPlan(context.Background(), f.doctor, f.plan.ID, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(logs) != 2 {
		t.Fatalf("expected 2 of 3, got %d of %d", len(logs), total)
	}
	if !strings.Contains(logs[0].PatientRawInput, "140/90") {
		t.Errorf("expected newest first, got %q", logs[0].PatientRawInput)
	}
}

func TestListSince(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.svc.SubmitLog(context.Background(), f.patient, f.plan.ID, "", []Answer{{QuestionIndex: idx(0), Answer: "120/80"}})
	}
	since := f.repo.store[1].CreatedAt
	logs, err := f.svc.ListSince(context.Background(), f.patient, f.plan.ID, since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 2 || logs[0].ID != f.repo.store[2].ID {
		t.Errorf("expected the two newest logs, got %d", len(logs))
	}
}
