package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"opd-room-tracker/internal/domain/entity"
	"opd-room-tracker/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitCreate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	visit, err := f.visits.Create(ctx, NewVisit{
		PatientID: 7,
		DoctorID:  1,
		Room:      "206",
		Date:      f.clock.Today(),
		Type:      entity.VisitTypeFirst,
		Notes:     "walk-in",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.VisitStatusScheduled, visit.VisitStatus)
	assert.Equal(t, "206", *visit.RoomNo)
	assert.Equal(t, int64(1), *visit.AssignedDoctorID)

	unassigned, err := f.visits.Create(ctx, NewVisit{PatientID: 8, Date: f.clock.Today(), Type: entity.VisitTypeFollowUp})
	require.NoError(t, err)
	assert.Nil(t, unassigned.RoomNo)
	assert.Nil(t, unassigned.AssignedDoctorID)

	_, err = f.visits.Create(ctx, NewVisit{PatientID: 7, Date: f.clock.Today(), Type: "walk_in"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.visits.Create(ctx, NewVisit{PatientID: 0, Type: entity.VisitTypeFirst})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	f.store.failOn["visit.create"] = true
	_, err = f.visits.Create(ctx, NewVisit{PatientID: 9, Date: f.clock.Today(), Type: entity.VisitTypeFirst})
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, errStorage)
}

func TestGetVisitCount(t *testing.T) {
	f := newFixture()
	f.addVisit(entity.Visit{PatientID: 7, VisitDate: clock.NewDate(2026, 10, 1), VisitStatus: entity.VisitStatusCompleted})
	f.addVisit(entity.Visit{PatientID: 7, VisitDate: clock.NewDate(2026, 10, 9), VisitStatus: entity.VisitStatusCompleted})
	f.addVisit(entity.Visit{PatientID: 8, VisitDate: clock.NewDate(2026, 10, 9), VisitStatus: entity.VisitStatusCompleted})

	count, err := f.visits.GetVisitCount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = f.visits.GetVisitCount(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFindForPatientOnDate_MostRecentRowWins(t *testing.T) {
	f := newFixture()
	today := f.clock.Today()
	base := f.clock.Now().Add(-2 * time.Hour)

	f.addVisit(entity.Visit{PatientID: 7, VisitDate: today, RoomNo: strPtr("211"), CreatedAt: base})
	latest := f.addVisit(entity.Visit{PatientID: 7, VisitDate: today, RoomNo: strPtr("206"), CreatedAt: base.Add(time.Hour)})
	f.addVisit(entity.Visit{PatientID: 7, VisitDate: clock.NewDate(2026, 10, 16), CreatedAt: base.Add(2 * time.Hour)})

	for i := 0; i < 3; i++ {
		visit, err := f.visits.FindForPatientOnDate(context.Background(), 7, today)
		require.NoError(t, err)
		require.NotNil(t, visit)
		assert.Equal(t, latest.ID, visit.ID)
	}

	none, err := f.visits.FindForPatientOnDate(context.Background(), 8, today)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMarkCompletedToday_CreatesCompletedVisitThenNoop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	today := f.clock.Today()

	visit, err := f.visits.MarkCompletedToday(ctx, 7, today, int64Ptr(1), strPtr("206"))
	require.NoError(t, err)
	require.NotNil(t, visit)
	assert.Equal(t, entity.VisitStatusCompleted, visit.VisitStatus)
	assert.Equal(t, "206", *visit.RoomNo)
	assert.Equal(t, int64(1), *visit.AssignedDoctorID)
	assert.Equal(t, entity.VisitTypeFirst, visit.VisitType)

	again, err := f.visits.MarkCompletedToday(ctx, 7, today, int64Ptr(1), strPtr("206"))
	require.NoError(t, err)
	assert.Nil(t, again, "already completed means nothing to do")
	assert.Equal(t, 1, f.visitCount(7))
}

func TestMarkCompletedToday_CompletesExistingVisit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	today := f.clock.Today()
	existing := f.addVisit(entity.Visit{
		PatientID:        7,
		VisitDate:        today,
		RoomNo:           strPtr("211"),
		AssignedDoctorID: int64Ptr(2),
		VisitType:        entity.VisitTypeFollowUp,
		VisitStatus:      entity.VisitStatusInProgress,
	})

	visit, err := f.visits.MarkCompletedToday(ctx, 7, today, int64Ptr(1), strPtr("206"))
	require.NoError(t, err)
	require.NotNil(t, visit)
	assert.Equal(t, existing.ID, visit.ID)
	assert.Equal(t, "211", *visit.RoomNo, "fallbacks only apply to new visits")
	assert.Equal(t, entity.VisitStatusCompleted, f.visit(existing.ID).VisitStatus)
}

func TestAutoCompleteStale_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	yesterday := clock.NewDate(2026, 10, 16)

	a := f.addVisit(entity.Visit{PatientID: 1, VisitDate: yesterday, VisitStatus: entity.VisitStatusScheduled})
	b := f.addVisit(entity.Visit{PatientID: 2, VisitDate: clock.NewDate(2026, 9, 30), VisitStatus: entity.VisitStatusInProgress})
	c := f.addVisit(entity.Visit{PatientID: 3, VisitDate: yesterday, VisitStatus: entity.VisitStatusCompleted})
	d := f.addVisit(entity.Visit{PatientID: 4, VisitDate: f.clock.Today(), VisitStatus: entity.VisitStatusScheduled})

	n, err := f.visits.AutoCompleteStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.visits.AutoCompleteStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "second run reports zero transitions")

	assert.Equal(t, entity.VisitStatusCompleted, f.visit(a.ID).VisitStatus)
	assert.Equal(t, entity.VisitStatusCompleted, f.visit(b.ID).VisitStatus)
	assert.Equal(t, entity.VisitStatusCompleted, f.visit(c.ID).VisitStatus)
	assert.Equal(t, entity.VisitStatusScheduled, f.visit(d.ID).VisitStatus, "today's visits stay open")

	assert.Equal(t, []string{"visit.auto_complete"}, f.store.auditActions())
}

func TestAutoCompleteStale_NothingToDo(t *testing.T) {
	f := newFixture()

	n, err := f.visits.AutoCompleteStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.store.auditActions())
}

func TestAutoCompleteStale_StorageFailure(t *testing.T) {
	f := newFixture()
	f.store.failOn["visit.sweep"] = true

	_, err := f.visits.AutoCompleteStale(context.Background())
	assert.ErrorIs(t, err, ErrInternal)
}

func TestAutoCompleteStale_Concurrent(t *testing.T) {
	f := newFixture()
	for i := int64(1); i <= 20; i++ {
		f.addVisit(entity.Visit{PatientID: i, VisitDate: clock.NewDate(2026, 10, 16), VisitStatus: entity.VisitStatusScheduled})
	}

	results := make(chan int64, 5)
	for i := 0; i < 5; i++ {
		go func() {
			n, err := f.visits.AutoCompleteStale(context.Background())
			assert.NoError(t, err)
			results <- n
		}()
	}

	var total int64
	for i := 0; i < 5; i++ {
		total += <-results
	}
	assert.Equal(t, int64(20), total, "each stale visit is transitioned exactly once")
}

func TestStartVisit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	today := f.clock.Today()
	v := f.addVisit(entity.Visit{PatientID: 7, VisitDate: today, VisitStatus: entity.VisitStatusScheduled})

	started, err := f.visits.StartVisit(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.VisitStatusInProgress, started.VisitStatus)
	assert.Equal(t, entity.VisitStatusInProgress, f.visit(v.ID).VisitStatus)

	again, err := f.visits.StartVisit(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.VisitStatusInProgress, again.VisitStatus)

	_, err = f.visits.MarkCompletedToday(ctx, 7, today, nil, nil)
	require.NoError(t, err)

	_, err = f.visits.StartVisit(ctx, 7)
	assert.ErrorIs(t, err, ErrVisitAlreadyCompleted)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.visits.StartVisit(ctx, 8)
	assert.ErrorIs(t, err, ErrVisitNotFound)
}

func TestListToday_SweepsAndDeduplicates(t *testing.T) {
	f := newFixture()
	today := f.clock.Today()
	base := f.clock.Now().Add(-3 * time.Hour)

	stale := f.addVisit(entity.Visit{PatientID: 1, VisitDate: clock.NewDate(2026, 10, 16), VisitStatus: entity.VisitStatusScheduled})
	f.addVisit(entity.Visit{PatientID: 2, VisitDate: today, RoomNo: strPtr("211"), CreatedAt: base})
	f.addVisit(entity.Visit{PatientID: 3, VisitDate: today, RoomNo: strPtr("206"), CreatedAt: base.Add(time.Minute)})
	latest := f.addVisit(entity.Visit{PatientID: 2, VisitDate: today, RoomNo: strPtr("206"), CreatedAt: base.Add(time.Hour)})

	visits, err := f.visits.ListToday(context.Background())
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, latest.ID, visits[0].ID)
	assert.Equal(t, int64(3), visits[1].PatientID)

	assert.Equal(t, entity.VisitStatusCompleted, f.visit(stale.ID).VisitStatus)
}

func TestSlotLockFailureIsInternal(t *testing.T) {
	f := newFixture()
	f.slots.err = errors.New("redis: connection refused")

	_, err := f.visits.StartVisit(context.Background(), 7)
	assert.ErrorIs(t, err, ErrInternal)
}
