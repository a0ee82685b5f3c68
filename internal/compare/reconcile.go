package compare

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/models"
	"github.com/ciridae/scopematch/internal/oracle"
)

// DefaultWorkers bounds how many matching calls run at once.
const DefaultWorkers = 8

// Reconciler compares two parsed documents room by room, with a cross-room
// fallback pass for contractor rooms the insurance estimate never covers.
type Reconciler struct {
	matcher oracle.Matching
	pairer  oracle.RoomPairing
	logger  *zap.Logger
	workers int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler's logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWorkers sets the matching concurrency bound. Values below 1 keep the
// default.
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n >= 1 {
			r.workers = n
		}
	}
}

// NewReconciler creates a reconciler using the given matching and
// room-pairing oracles.
func NewReconciler(matcher oracle.Matching, pairer oracle.RoomPairing, opts ...Option) *Reconciler {
	r := &Reconciler{
		matcher: matcher,
		pairer:  pairer,
		logger:  zap.NewNop(),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FilterPairs drops proposals with out-of-range indexes and enforces
// injectivity: when several proposals claim the same source or target index,
// the first proposal wins. Filtering an already filtered list changes
// nothing.
func FilterPairs(pairs []oracle.IndexPair, numSource, numTarget int) []oracle.IndexPair {
	usedSource := make(map[int]bool, len(pairs))
	usedTarget := make(map[int]bool, len(pairs))
	kept := make([]oracle.IndexPair, 0, len(pairs))
	for _, pr := range pairs {
		if pr.Source < 0 || pr.Source >= numSource || pr.Target < 0 || pr.Target >= numTarget {
			continue
		}
		if usedSource[pr.Source] || usedTarget[pr.Target] {
			continue
		}
		usedSource[pr.Source] = true
		usedTarget[pr.Target] = true
		kept = append(kept, pr)
	}
	return kept
}

// matchOutcome is the result of matching one group of items.
type matchOutcome struct {
	matched         []*models.MatchedPair
	unmatchedSource []*models.LineItem
	unmatchedTarget []*models.LineItem
}

// matchItems runs one matching oracle call over two item lists and applies
// validation, injectivity, and classification to the proposals. Either side
// empty short-circuits without an oracle call.
func (r *Reconciler) matchItems(ctx context.Context, source, target []*models.LineItem) (*matchOutcome, error) {
	if len(source) == 0 || len(target) == 0 {
		return &matchOutcome{
			unmatchedSource: append([]*models.LineItem(nil), source...),
			unmatchedTarget: append([]*models.LineItem(nil), target...),
		}, nil
	}

	proposals, err := r.matcher.MatchItems(ctx, summarize(source), summarize(target))
	if err != nil {
		return nil, fmt.Errorf("match items: %w", err)
	}
	kept := FilterPairs(proposals, len(source), len(target))
	if dropped := len(proposals) - len(kept); dropped > 0 {
		r.logger.Debug("dropped invalid match proposals", zap.Int("dropped", dropped))
	}

	out := &matchOutcome{}
	usedSource := make(map[int]bool, len(kept))
	usedTarget := make(map[int]bool, len(kept))
	for _, pr := range kept {
		s, t := source[pr.Source], target[pr.Target]
		color, diffs := Classify(s, t)
		out.matched = append(out.matched, &models.MatchedPair{
			Source:    s,
			Target:    t,
			Color:     color,
			DiffNotes: diffs,
		})
		usedSource[pr.Source] = true
		usedTarget[pr.Target] = true
	}
	for i, item := range source {
		if !usedSource[i] {
			out.unmatchedSource = append(out.unmatchedSource, item)
		}
	}
	for j, item := range target {
		if !usedTarget[j] {
			out.unmatchedTarget = append(out.unmatchedTarget, item)
		}
	}
	return out, nil
}

// summarize converts items to the value view the matching oracle sees.
func summarize(items []*models.LineItem) []oracle.ItemSummary {
	out := make([]oracle.ItemSummary, len(items))
	for i, item := range items {
		out[i] = oracle.ItemSummary{
			Index:       i,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		}
	}
	return out
}

// groupItems flattens the items of the named rooms in room order. Names
// without a corresponding room are skipped.
func groupItems(names []string, rooms map[string]*models.Room) []*models.LineItem {
	var items []*models.LineItem
	for _, name := range names {
		if room, ok := rooms[name]; ok {
			items = append(items, room.Items...)
		}
	}
	return items
}

// Compare reconciles the two documents. Phase 1 matches items within each
// room group concurrently; contractor groups with no insurance counterpart
// are deferred. Phase 2 then gives the deferred items one global pass against
// every still-unmatched insurance item, and any recovered matches move into a
// synthetic cross-room group appended last.
func (r *Reconciler) Compare(ctx context.Context, source, target *models.ParsedDocument) (*models.ComparisonResult, error) {
	groups, err := r.pairer.PairRooms(ctx, source.RoomNames(), target.RoomNames())
	if err != nil {
		return nil, fmt.Errorf("pair rooms: %w", err)
	}

	sourceRooms := roomsByName(source)
	targetRooms := roomsByName(target)

	comparisons := make([]*models.RoomComparison, len(groups))
	var orphanSources []*models.LineItem

	// Orphan groups are decided up front so Phase 1 only spends oracle calls
	// on groups with both sides present.
	type pending struct {
		index          int
		source, target []*models.LineItem
	}
	var work []pending
	for i, g := range groups {
		srcItems := groupItems(g.SourceRooms, sourceRooms)
		tgtItems := groupItems(g.TargetRooms, targetRooms)
		if len(srcItems) > 0 && len(tgtItems) == 0 {
			orphanSources = append(orphanSources, srcItems...)
			comparisons[i] = &models.RoomComparison{
				SourceRooms:     g.SourceRooms,
				TargetRooms:     g.TargetRooms,
				UnmatchedSource: srcItems,
			}
			continue
		}
		work = append(work, pending{index: i, source: srcItems, target: tgtItems})
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)
	errChan := make(chan error, len(work))
	for _, w := range work {
		wg.Add(1)
		go func(w pending) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				errChan <- err
				return
			}
			out, err := r.matchItems(ctx, w.source, w.target)
			if err != nil {
				errChan <- err
				return
			}
			comparisons[w.index] = &models.RoomComparison{
				SourceRooms:     groups[w.index].SourceRooms,
				TargetRooms:     groups[w.index].TargetRooms,
				Matched:         out.matched,
				UnmatchedSource: out.unmatchedSource,
				UnmatchedTarget: out.unmatchedTarget,
			}
		}(w)
	}
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	result := &models.ComparisonResult{Rooms: comparisons}
	if err := r.crossRoomPass(ctx, result, orphanSources); err != nil {
		return nil, err
	}
	return result, nil
}

// crossRoomPass matches deferred orphan items against all leftover insurance
// items in one oracle call and relocates recovered matches into the
// cross-room group. Items are removed from their origin groups by ID.
func (r *Reconciler) crossRoomPass(ctx context.Context, result *models.ComparisonResult, orphans []*models.LineItem) error {
	if len(orphans) == 0 {
		return nil
	}
	var leftoverTargets []*models.LineItem
	for _, comp := range result.Rooms {
		leftoverTargets = append(leftoverTargets, comp.UnmatchedTarget...)
	}
	if len(leftoverTargets) == 0 {
		return nil
	}

	out, err := r.matchItems(ctx, orphans, leftoverTargets)
	if err != nil {
		return fmt.Errorf("cross-room pass: %w", err)
	}
	if len(out.matched) == 0 {
		return nil
	}

	matchedSource := make(map[string]bool, len(out.matched))
	matchedTarget := make(map[string]bool, len(out.matched))
	for _, pair := range out.matched {
		matchedSource[pair.Source.ID] = true
		matchedTarget[pair.Target.ID] = true
	}
	for _, comp := range result.Rooms {
		comp.UnmatchedSource = withoutIDs(comp.UnmatchedSource, matchedSource)
		comp.UnmatchedTarget = withoutIDs(comp.UnmatchedTarget, matchedTarget)
	}

	r.logger.Info("cross-room matches recovered", zap.Int("pairs", len(out.matched)))
	result.Rooms = append(result.Rooms, &models.RoomComparison{
		SourceRooms: []string{models.CrossRoomLabel},
		TargetRooms: []string{models.CrossRoomLabel},
		Matched:     out.matched,
	})
	return nil
}

func withoutIDs(items []*models.LineItem, drop map[string]bool) []*models.LineItem {
	kept := items[:0]
	for _, item := range items {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	return kept
}

func roomsByName(doc *models.ParsedDocument) map[string]*models.Room {
	out := make(map[string]*models.Room, len(doc.Rooms))
	for _, room := range doc.Rooms {
		out[room.Name] = room
	}
	return out
}
