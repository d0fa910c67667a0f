package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

var planT0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func dueCard(id int64, dueAt time.Time) domain.Card {
	card := domain.NewCard(domain.CardID(id), 1, "front", "back", dueAt.Add(-30*24*time.Hour))
	card.Phase = domain.PhaseReviewing
	card.ReviewCount = 1
	card.Memory = &domain.MemoryState{Stability: 5, Difficulty: 5}
	card.NextReviewAt = dueAt
	return card
}

func newCard(id int64, createdAt time.Time) domain.Card {
	return domain.NewCard(domain.CardID(id), 1, "front", "back", createdAt)
}

func planIDs(p Plan) []int64 {
	ids := make([]int64, 0, len(p.Cards))
	for _, c := range p.Cards {
		ids = append(ids, int64(c.ID))
	}
	return ids
}

func TestPlannerDueBeforeNew(t *testing.T) {
	settings := domain.DefaultSettings()
	pl := NewPlanner(settings)

	due := []domain.Card{dueCard(10, planT0.Add(-time.Hour))}
	fresh := []domain.Card{newCard(20, planT0.Add(-time.Minute))}

	plan := pl.Build(due, fresh)

	want := []int64{10, 20}
	got := planIDs(plan)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected plan %v, got %v", want, got)
	}
	if plan.DueSelected != 1 || plan.NewSelected != 1 || plan.FutureSelected != 0 {
		t.Errorf("Unexpected selection counts: %+v", plan)
	}
}

func TestPlannerSortsDueByDueTimeThenID(t *testing.T) {
	settings := domain.DefaultSettings()
	pl := NewPlanner(settings)

	sameTime := planT0.Add(-2 * time.Hour)
	due := []domain.Card{
		dueCard(3, planT0.Add(-time.Hour)),
		dueCard(2, sameTime),
		dueCard(1, sameTime),
	}

	plan := pl.Build(due, nil)

	want := []int64{1, 2, 3}
	got := planIDs(plan)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected due order %v, got %v", want, got)
		}
	}
}

func TestPlannerMicroCapAlwaysApplies(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.MicroSessionSize = 3
	settings.ProtectOverload = false
	pl := NewPlanner(settings)

	var due []domain.Card
	for i := int64(1); i <= 10; i++ {
		due = append(due, dueCard(i, planT0.Add(-time.Duration(i)*time.Minute)))
	}

	plan := pl.Build(due, nil)
	if plan.Total() != 3 {
		t.Errorf("Expected the micro-session cap of 3 even without overload protection, got %d", plan.Total())
	}
}

func TestPlannerOverloadProtectionCapsDue(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.MicroSessionSize = 5
	settings.ReviewLimitPerDay = 2
	settings.ProtectOverload = true
	pl := NewPlanner(settings)

	var due []domain.Card
	for i := int64(1); i <= 4; i++ {
		due = append(due, dueCard(i, planT0.Add(-time.Duration(i)*time.Minute)))
	}
	fresh := []domain.Card{newCard(100, planT0), newCard(101, planT0)}

	plan := pl.Build(due, fresh)

	if plan.DueSelected != 2 {
		t.Errorf("Expected the review limit to cap due cards at 2, got %d", plan.DueSelected)
	}
	if plan.NewSelected != 2 {
		t.Errorf("Expected new cards to fill the remaining slots, got %d", plan.NewSelected)
	}
}

func TestPlannerNewCardCap(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.MicroSessionSize = 5
	settings.NewCardsPerDay = 1
	pl := NewPlanner(settings)

	fresh := []domain.Card{
		newCard(1, planT0),
		newCard(2, planT0.Add(time.Minute)),
		newCard(3, planT0.Add(2*time.Minute)),
	}

	plan := pl.Build(nil, fresh)
	if plan.NewSelected != 1 {
		t.Errorf("Expected the daily new-card cap of 1, got %d", plan.NewSelected)
	}
	if int64(plan.Cards[0].ID) != 1 {
		t.Errorf("Expected the oldest new card first, got %d", plan.Cards[0].ID)
	}
}

func TestPlannerDeduplicatesByID(t *testing.T) {
	settings := domain.DefaultSettings()
	pl := NewPlanner(settings)

	due := []domain.Card{dueCard(7, planT0.Add(-time.Hour))}
	// The same id appearing in the new pool must not be selected twice.
	fresh := []domain.Card{newCard(7, planT0), newCard(8, planT0)}

	plan := pl.Build(due, fresh)

	seen := make(map[int64]int)
	for _, id := range planIDs(plan) {
		seen[id]++
	}
	if seen[7] != 1 {
		t.Errorf("Expected card 7 exactly once, got %d occurrences", seen[7])
	}
	if seen[8] != 1 {
		t.Errorf("Expected card 8 selected, got %d occurrences", seen[8])
	}
}

func TestPlannerShuffleIsSeedDeterministic(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.MicroSessionSize = 10
	settings.NewCardsPerDay = 10

	var fresh []domain.Card
	for i := int64(1); i <= 10; i++ {
		fresh = append(fresh, newCard(i, planT0))
	}

	planA := NewPlanner(settings).WithShuffleNew(true).WithRand(rand.New(rand.NewSource(1))).Build(nil, fresh)
	planB := NewPlanner(settings).WithShuffleNew(true).WithRand(rand.New(rand.NewSource(1))).Build(nil, fresh)

	idsA := planIDs(planA)
	idsB := planIDs(planB)
	if len(idsA) != 10 || len(idsB) != 10 {
		t.Fatalf("Expected both plans to select all 10 cards, got %d and %d", len(idsA), len(idsB))
	}
	for i := range idsA {
		if idsA[i] != idsB[i] {
			t.Fatalf("Expected identical seeds to produce identical order:\n%v\n%v", idsA, idsB)
		}
	}
}

func TestPlannerEmptyPools(t *testing.T) {
	plan := NewPlanner(domain.DefaultSettings()).Build(nil, nil)
	if !plan.IsEmpty() {
		t.Errorf("Expected an empty plan, got %d cards", plan.Total())
	}
}
