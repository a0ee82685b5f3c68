package models

// MatchColor classifies how well a matched pair agrees.
type MatchColor string

// Match colors. Green means every compared field is within tolerance; orange
// means the pair matched but at least one field differs.
const (
	ColorGreen  MatchColor = "green"
	ColorOrange MatchColor = "orange"
)

// DiffNote records one field that differs between a matched pair.
type DiffNote struct {
	Field       string `json:"field"`
	SourceValue string `json:"source_value"`
	TargetValue string `json:"target_value"`
}

// MatchedPair joins a source item with its target counterpart. Both sides are
// references into the owning ParsedDocuments, not copies. Color is derived:
// green iff DiffNotes is empty.
type MatchedPair struct {
	Source    *LineItem  `json:"source_item"`
	Target    *LineItem  `json:"target_item"`
	Color     MatchColor `json:"color"`
	DiffNotes []DiffNote `json:"diff_notes"`
}

// RoomComparison is the reconciliation outcome for one room group.
type RoomComparison struct {
	SourceRooms     []string       `json:"source_rooms"`
	TargetRooms     []string       `json:"target_rooms"`
	Matched         []*MatchedPair `json:"matched"`
	UnmatchedSource []*LineItem    `json:"unmatched_source"`
	UnmatchedTarget []*LineItem    `json:"unmatched_target"`
}

// CrossRoomLabel names the synthetic group holding matches recovered by the
// global fallback pass.
const CrossRoomLabel = "(cross-room)"

// ComparisonResult is the full outcome of reconciling two documents, in room
// group order, with the synthetic cross-room group (if any) last.
type ComparisonResult struct {
	Rooms []*RoomComparison `json:"rooms"`
}

// Summary aggregates headline counts from a comparison result.
type Summary struct {
	TotalSourceItems int `json:"total_source_items"`
	TotalTargetItems int `json:"total_target_items"`
	MatchedGreen     int `json:"matched_green"`
	MatchedOrange    int `json:"matched_orange"`
	UnmatchedSource  int `json:"unmatched_source"`
	UnmatchedTarget  int `json:"unmatched_target"`
}

// Summarize computes headline counts across all room comparisons.
func (r *ComparisonResult) Summarize() Summary {
	var s Summary
	for _, room := range r.Rooms {
		for _, pair := range room.Matched {
			if pair.Color == ColorGreen {
				s.MatchedGreen++
			} else {
				s.MatchedOrange++
			}
		}
		s.TotalSourceItems += len(room.Matched) + len(room.UnmatchedSource)
		s.TotalTargetItems += len(room.Matched) + len(room.UnmatchedTarget)
		s.UnmatchedSource += len(room.UnmatchedSource)
		s.UnmatchedTarget += len(room.UnmatchedTarget)
	}
	return s
}
