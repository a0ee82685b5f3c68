package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ciridae/scopematch/internal/oracle"
)

// PairRooms groups contractor and insurance rooms that cover the same
// physical space.
func (c *Client) PairRooms(ctx context.Context, sourceRooms, targetRooms []string) ([]oracle.RoomGroup, error) {
	src, _ := json.Marshal(sourceRooms)
	tgt, _ := json.Marshal(targetRooms)
	user := fmt.Sprintf("Contractor rooms: %s\nInsurance rooms: %s", src, tgt)
	out, err := c.completeText(ctx, roomPairingPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("pair rooms: %w", err)
	}
	var resp struct {
		Groups []oracle.RoomGroup `json:"groups"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, fmt.Errorf("pair rooms: bad JSON: %w", err)
	}
	return resp.Groups, nil
}
