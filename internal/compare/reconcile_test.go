package compare

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ciridae/scopematch/internal/models"
	"github.com/ciridae/scopematch/internal/oracle"
)

type matcherFunc func(source, target []oracle.ItemSummary) ([]oracle.IndexPair, error)

func (f matcherFunc) MatchItems(_ context.Context, source, target []oracle.ItemSummary) ([]oracle.IndexPair, error) {
	return f(source, target)
}

type pairerFunc func(sourceRooms, targetRooms []string) ([]oracle.RoomGroup, error)

func (f pairerFunc) PairRooms(_ context.Context, sourceRooms, targetRooms []string) ([]oracle.RoomGroup, error) {
	return f(sourceRooms, targetRooms)
}

func namedItem(id, desc string) *models.LineItem {
	return &models.LineItem{ID: id, Description: desc, Quantity: models.Float(1), Unit: "EA"}
}

func doc(source string, rooms ...*models.Room) *models.ParsedDocument {
	return &models.ParsedDocument{Source: source, Rooms: rooms}
}

func TestFilterPairs(t *testing.T) {
	pairs := []oracle.IndexPair{
		{Source: 0, Target: 0},
		{Source: 1, Target: 0}, // target 0 already claimed
		{Source: 0, Target: 1}, // source 0 already claimed
		{Source: 1, Target: 1},
		{Source: 7, Target: 1}, // out of range
		{Source: -1, Target: 1},
		{Source: 1, Target: 9},
	}
	got := FilterPairs(pairs, 3, 3)
	want := []oracle.IndexPair{{Source: 0, Target: 0}, {Source: 1, Target: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterPairs = %+v, want %+v", got, want)
	}

	// Filtering is idempotent.
	again := FilterPairs(got, 3, 3)
	if !reflect.DeepEqual(again, got) {
		t.Errorf("second filter changed result: %+v vs %+v", again, got)
	}
}

func TestCompareRoomScoped(t *testing.T) {
	source := doc(models.SourceContractor,
		&models.Room{Name: "Bathroom", Items: []*models.LineItem{
			namedItem("s1", "R&R drywall"),
			namedItem("s2", "Paint walls"),
		}},
	)
	target := doc(models.SourceInsurance,
		&models.Room{Name: "Hall Bathroom", Items: []*models.LineItem{
			namedItem("t1", "Drywall replacement"),
		}},
	)

	pairer := pairerFunc(func(src, tgt []string) ([]oracle.RoomGroup, error) {
		if !reflect.DeepEqual(src, []string{"Bathroom"}) || !reflect.DeepEqual(tgt, []string{"Hall Bathroom"}) {
			t.Errorf("pairer saw %v / %v", src, tgt)
		}
		return []oracle.RoomGroup{{SourceRooms: []string{"Bathroom"}, TargetRooms: []string{"Hall Bathroom"}}}, nil
	})
	matcher := matcherFunc(func(src, tgt []oracle.ItemSummary) ([]oracle.IndexPair, error) {
		// A duplicate claim and an out-of-range proposal ride along; both
		// must be dropped silently.
		return []oracle.IndexPair{
			{Source: 0, Target: 0},
			{Source: 1, Target: 0},
			{Source: 5, Target: 0},
		}, nil
	})

	r := NewReconciler(matcher, pairer)
	result, err := r.Compare(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(result.Rooms) != 1 {
		t.Fatalf("rooms = %d", len(result.Rooms))
	}
	comp := result.Rooms[0]
	if len(comp.Matched) != 1 || comp.Matched[0].Source.ID != "s1" || comp.Matched[0].Target.ID != "t1" {
		t.Errorf("matched = %+v", comp.Matched)
	}
	if len(comp.UnmatchedSource) != 1 || comp.UnmatchedSource[0].ID != "s2" {
		t.Errorf("unmatched source = %+v", comp.UnmatchedSource)
	}
	if len(comp.UnmatchedTarget) != 0 {
		t.Errorf("unmatched target = %+v", comp.UnmatchedTarget)
	}
}

func TestCompareOrphanCrossRoomFallback(t *testing.T) {
	source := doc(models.SourceContractor,
		&models.Room{Name: "Bathroom", Items: []*models.LineItem{namedItem("s1", "R&R drywall")}},
		&models.Room{Name: "Garage", Items: []*models.LineItem{
			namedItem("s2", "Haul debris"),
			namedItem("s3", "Pressure wash"),
		}},
	)
	target := doc(models.SourceInsurance,
		&models.Room{Name: "Bathroom", Items: []*models.LineItem{
			namedItem("t1", "Drywall replacement"),
			namedItem("t2", "Debris removal"),
		}},
	)

	pairer := pairerFunc(func(_, _ []string) ([]oracle.RoomGroup, error) {
		return []oracle.RoomGroup{
			{SourceRooms: []string{"Bathroom"}, TargetRooms: []string{"Bathroom"}},
			{SourceRooms: []string{"Garage"}, TargetRooms: []string{}},
		}, nil
	})
	calls := 0
	matcher := matcherFunc(func(src, tgt []oracle.ItemSummary) ([]oracle.IndexPair, error) {
		calls++
		switch src[0].Description {
		case "R&R drywall":
			// Phase 1: bathroom group, t2 left over.
			return []oracle.IndexPair{{Source: 0, Target: 0}}, nil
		case "Haul debris":
			// Phase 2: orphans vs leftover targets.
			if len(tgt) != 1 || tgt[0].Description != "Debris removal" {
				t.Errorf("phase 2 targets = %+v", tgt)
			}
			return []oracle.IndexPair{{Source: 0, Target: 0}}, nil
		}
		t.Errorf("unexpected matcher call with %+v", src)
		return nil, nil
	})

	r := NewReconciler(matcher, pairer)
	result, err := r.Compare(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if calls != 2 {
		t.Errorf("matcher calls = %d, want 2 (orphan group deferred to one global pass)", calls)
	}
	if len(result.Rooms) != 3 {
		t.Fatalf("rooms = %d, want 2 groups + cross-room", len(result.Rooms))
	}

	bathroom := result.Rooms[0]
	if len(bathroom.UnmatchedTarget) != 0 {
		t.Errorf("t2 should have been recovered cross-room, still in %+v", bathroom.UnmatchedTarget)
	}

	garage := result.Rooms[1]
	if len(garage.UnmatchedSource) != 1 || garage.UnmatchedSource[0].ID != "s3" {
		t.Errorf("garage unmatched = %+v, want only s3", garage.UnmatchedSource)
	}

	cross := result.Rooms[2]
	if cross.SourceRooms[0] != models.CrossRoomLabel || cross.TargetRooms[0] != models.CrossRoomLabel {
		t.Errorf("cross-room labels = %v / %v", cross.SourceRooms, cross.TargetRooms)
	}
	if len(cross.Matched) != 1 || cross.Matched[0].Source.ID != "s2" || cross.Matched[0].Target.ID != "t2" {
		t.Errorf("cross-room matched = %+v", cross.Matched)
	}
}

func TestCompareOrphanWithoutLeftovers(t *testing.T) {
	source := doc(models.SourceContractor,
		&models.Room{Name: "Garage", Items: []*models.LineItem{namedItem("s1", "Haul debris")}},
	)
	target := doc(models.SourceInsurance)

	pairer := pairerFunc(func(_, _ []string) ([]oracle.RoomGroup, error) {
		return []oracle.RoomGroup{{SourceRooms: []string{"Garage"}, TargetRooms: []string{}}}, nil
	})
	matcher := matcherFunc(func(_, _ []oracle.ItemSummary) ([]oracle.IndexPair, error) {
		t.Error("matcher should not be called without leftover targets")
		return nil, nil
	})

	r := NewReconciler(matcher, pairer)
	result, err := r.Compare(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(result.Rooms) != 1 {
		t.Fatalf("rooms = %d, want 1 (no cross-room group)", len(result.Rooms))
	}
	if len(result.Rooms[0].UnmatchedSource) != 1 {
		t.Errorf("unmatched source = %+v", result.Rooms[0].UnmatchedSource)
	}
}

func TestCompareOracleFailures(t *testing.T) {
	source := doc(models.SourceContractor,
		&models.Room{Name: "Bathroom", Items: []*models.LineItem{namedItem("s1", "R&R drywall")}},
	)
	target := doc(models.SourceInsurance,
		&models.Room{Name: "Bathroom", Items: []*models.LineItem{namedItem("t1", "Drywall replacement")}},
	)

	t.Run("pairer failure", func(t *testing.T) {
		pairer := pairerFunc(func(_, _ []string) ([]oracle.RoomGroup, error) {
			return nil, errors.New("gateway down")
		})
		r := NewReconciler(matcherFunc(func(_, _ []oracle.ItemSummary) ([]oracle.IndexPair, error) {
			return nil, nil
		}), pairer)
		if _, err := r.Compare(context.Background(), source, target); err == nil {
			t.Error("want error when room pairing fails")
		}
	})

	t.Run("matcher failure", func(t *testing.T) {
		pairer := pairerFunc(func(_, _ []string) ([]oracle.RoomGroup, error) {
			return []oracle.RoomGroup{{SourceRooms: []string{"Bathroom"}, TargetRooms: []string{"Bathroom"}}}, nil
		})
		r := NewReconciler(matcherFunc(func(_, _ []oracle.ItemSummary) ([]oracle.IndexPair, error) {
			return nil, errors.New("gateway down")
		}), pairer)
		if _, err := r.Compare(context.Background(), source, target); err == nil {
			t.Error("want error when matching fails")
		}
	})
}

func TestCompareSummary(t *testing.T) {
	source := doc(models.SourceContractor,
		&models.Room{Name: "Bathroom", Items: []*models.LineItem{
			namedItem("s1", "R&R drywall"),
			{ID: "s2", Description: "Paint walls", Quantity: models.Float(100), Unit: "SF"},
		}},
	)
	target := doc(models.SourceInsurance,
		&models.Room{Name: "Bathroom", Items: []*models.LineItem{
			namedItem("t1", "Drywall replacement"),
			{ID: "t2", Description: "Wall painting", Quantity: models.Float(103), Unit: "SF"},
		}},
	)

	pairer := pairerFunc(func(_, _ []string) ([]oracle.RoomGroup, error) {
		return []oracle.RoomGroup{{SourceRooms: []string{"Bathroom"}, TargetRooms: []string{"Bathroom"}}}, nil
	})
	matcher := matcherFunc(func(_, _ []oracle.ItemSummary) ([]oracle.IndexPair, error) {
		return []oracle.IndexPair{{Source: 0, Target: 0}, {Source: 1, Target: 1}}, nil
	})

	r := NewReconciler(matcher, pairer)
	result, err := r.Compare(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	s := result.Summarize()
	want := models.Summary{
		TotalSourceItems: 2,
		TotalTargetItems: 2,
		MatchedGreen:     1,
		MatchedOrange:    1,
	}
	if s != want {
		t.Errorf("summary = %+v, want %+v", s, want)
	}
}
