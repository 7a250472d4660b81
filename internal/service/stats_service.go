package service

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	statsWindowDays     = 7
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100

	historyDateLayout   = "Mon, Jan 2"
	formattedDateLayout = "Monday, January 2, 2006"
	isoDateLayout       = "2006-01-02"
)

// HistoryItem is one session of a stats window.
type HistoryItem struct {
	Date        time.Time
	DisplayDate string // "Mon, Oct 19"
	Completed   int
	Total       int
	Ratio       string // "completed/total"
	EntryCount  int
	PainLevel   float64 // as stored on the session
}

// StatsReport is a 7-day series ending at End, oldest day first.
type StatsReport struct {
	End     time.Time
	Labels  []string
	Values  []float64
	Average float64
	History []HistoryItem
}

type ExerciseDetail struct {
	Name          string
	CompletedSets int
	CompletedReps int
	PainLevel     int
}

// ExerciseHistoryItem is one past session with its per-exercise outcomes.
type ExerciseHistoryItem struct {
	Date          string // "2006-01-02"
	FormattedDate string // "Monday, October 19, 2026"
	Exercises     []ExerciseDetail
	PainLevel     float64
	Notes         string
}

type StatsService interface {
	// GetAdherenceStats and GetPainStats cover [end-6, end]; a nil end means today.
	GetAdherenceStats(ctx context.Context, userID primitive.ObjectID, end *time.Time) (*StatsReport, error)
	GetPainStats(ctx context.Context, userID primitive.ObjectID, end *time.Time) (*StatsReport, error)
	GetExerciseHistory(ctx context.Context, userID primitive.ObjectID, limit int) ([]ExerciseHistoryItem, error)
}

type statsService struct {
	assignmentRepo repository.AssignmentRepository
	sessionRepo    repository.SessionRepository
	variantRepo    repository.VariantRepository
	clock          clock.Clock
}

// NewStatsService creates a new instance of statsService.
func NewStatsService(
	assignmentRepo repository.AssignmentRepository,
	sessionRepo repository.SessionRepository,
	variantRepo repository.VariantRepository,
	clk clock.Clock,
) StatsService {
	return &statsService{
		assignmentRepo: assignmentRepo,
		sessionRepo:    sessionRepo,
		variantRepo:    variantRepo,
		clock:          clk,
	}
}

// window holds everything a 7-day report is computed from.
type window struct {
	days        []time.Time
	assignments []domain.Assignment
	sessions    []domain.Session // newest first
	entries     map[primitive.ObjectID][]domain.SessionEntry
}

func (s *statsService) loadWindow(ctx context.Context, userID primitive.ObjectID, end *time.Time) (*window, error) {
	last := clock.Today(s.clock)
	if end != nil {
		last = clock.Day(*end, time.UTC)
	}
	first := last.AddDate(0, 0, -(statsWindowDays - 1))

	w := &window{entries: map[primitive.ObjectID][]domain.SessionEntry{}}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		w.days = append(w.days, d)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		w.assignments, err = s.assignmentRepo.ListByUser(gctx, userID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		w.sessions, err = s.sessionRepo.ListInRange(gctx, userID, first, last)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(w.sessions))
	for i, sess := range w.sessions {
		ids[i] = sess.ID
	}
	entries, err := s.sessionRepo.ListEntriesForSessions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		w.entries[e.SessionID] = append(w.entries[e.SessionID], e)
	}
	return w, nil
}

func (w *window) sessionOn(day time.Time) *domain.Session {
	for i := range w.sessions {
		if w.sessions[i].Date.Equal(day) {
			return &w.sessions[i]
		}
	}
	return nil
}

// adherenceOn returns the completed and total counts of a day.
func (w *window) adherenceOn(day time.Time) (completed, total int) {
	active := make(map[primitive.ObjectID]bool, len(w.assignments))
	for i := range w.assignments {
		if w.assignments[i].ActiveOn(day) {
			active[w.assignments[i].ID] = true
			total++
		}
	}
	if sess := w.sessionOn(day); sess != nil {
		for _, e := range w.entries[sess.ID] {
			if active[e.AssignmentID] {
				completed++
			}
		}
	}
	return completed, total
}

func (s *statsService) GetAdherenceStats(ctx context.Context, userID primitive.ObjectID, end *time.Time) (*StatsReport, error) {
	w, err := s.loadWindow(ctx, userID, end)
	if err != nil {
		return nil, err
	}

	report := newReport(w)
	var sumCompleted, sumTotal int
	for _, day := range w.days {
		completed, total := w.adherenceOn(day)
		sumCompleted += completed
		sumTotal += total
		report.Values = append(report.Values, percent(completed, total))
	}
	report.Average = percent(sumCompleted, sumTotal)

	for _, sess := range w.sessions {
		completed, total := w.adherenceOn(sess.Date)
		item := historyItem(sess, len(w.entries[sess.ID]))
		item.Completed, item.Total = completed, total
		item.Ratio = fmt.Sprintf("%d/%d", completed, total)
		report.History = append(report.History, item)
	}
	return report, nil
}

func (s *statsService) GetPainStats(ctx context.Context, userID primitive.ObjectID, end *time.Time) (*StatsReport, error) {
	w, err := s.loadWindow(ctx, userID, end)
	if err != nil {
		return nil, err
	}

	report := newReport(w)
	var sumPain, count int
	for _, day := range w.days {
		var entries []domain.SessionEntry
		if sess := w.sessionOn(day); sess != nil {
			entries = w.entries[sess.ID]
		}
		for _, e := range entries {
			sumPain += e.PainLevel
		}
		count += len(entries)
		report.Values = append(report.Values, round1(domain.MeanPain(entries)))
	}
	if count > 0 {
		report.Average = round1(float64(sumPain) / float64(count))
	}

	for _, sess := range w.sessions {
		report.History = append(report.History, historyItem(sess, len(w.entries[sess.ID])))
	}
	return report, nil
}

func (s *statsService) GetExerciseHistory(ctx context.Context, userID primitive.ObjectID, limit int) ([]ExerciseHistoryItem, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var (
		sessions    []domain.Session
		assignments []domain.Assignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = s.sessionRepo.ListRecent(gctx, userID, limit)
		return err
	})
	g.Go(func() error {
		var err error
		assignments, err = s.assignmentRepo.ListByUser(gctx, userID, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	entries, err := s.sessionRepo.ListEntriesForSessions(ctx, ids)
	if err != nil {
		return nil, err
	}

	variantOf := make(map[primitive.ObjectID]primitive.ObjectID, len(assignments))
	variantIDs := make([]primitive.ObjectID, 0, len(assignments))
	for _, a := range assignments {
		variantOf[a.ID] = a.VariantID
		variantIDs = append(variantIDs, a.VariantID)
	}
	variants, err := s.variantRepo.GetByIDs(ctx, uniqueIDs(variantIDs))
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(variants))
	for _, v := range variants {
		names[v.ID] = v.Name
	}

	bySession := map[primitive.ObjectID][]ExerciseDetail{}
	for _, e := range entries {
		name, ok := names[variantOf[e.AssignmentID]]
		if !ok {
			name = "Unknown exercise"
		}
		bySession[e.SessionID] = append(bySession[e.SessionID], ExerciseDetail{
			Name:          name,
			CompletedSets: e.CompletedSets,
			CompletedReps: e.CompletedReps,
			PainLevel:     e.PainLevel,
		})
	}

	out := make([]ExerciseHistoryItem, 0, len(sessions))
	for _, sess := range sessions {
		exercises := bySession[sess.ID]
		if exercises == nil {
			exercises = []ExerciseDetail{}
		}
		out = append(out, ExerciseHistoryItem{
			Date:          sess.Date.Format(isoDateLayout),
			FormattedDate: sess.Date.Format(formattedDateLayout),
			Exercises:     exercises,
			PainLevel:     sess.PainLevel,
			Notes:         sess.Notes,
		})
	}
	return out, nil
}

func newReport(w *window) *StatsReport {
	report := &StatsReport{
		End:     w.days[len(w.days)-1],
		Labels:  make([]string, 0, len(w.days)),
		Values:  make([]float64, 0, len(w.days)),
		History: []HistoryItem{},
	}
	for _, day := range w.days {
		report.Labels = append(report.Labels, day.Format("Mon"))
	}
	return report
}

func historyItem(sess domain.Session, entryCount int) HistoryItem {
	return HistoryItem{
		Date:        sess.Date,
		DisplayDate: sess.Date.Format(historyDateLayout),
		EntryCount:  entryCount,
		PainLevel:   sess.PainLevel,
	}
}

// percent is 100*part/whole rounded to an integer, capped at 100, 0 for an
// empty whole.
func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Min(100, math.Round(100*float64(part)/float64(whole)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
