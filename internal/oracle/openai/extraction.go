package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/oracle"
)

// RoomSections identifies the room headings visible on a rendered page.
func (c *Client) RoomSections(ctx context.Context, pageImage []byte, pageNumber int) ([]oracle.RoomSection, error) {
	out, err := c.completeVision(ctx, roomSplitPrompt, pageImage)
	if err != nil {
		return nil, fmt.Errorf("room sections for page %d: %w", pageNumber, err)
	}
	var resp struct {
		Rooms []oracle.RoomSection `json:"rooms"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, fmt.Errorf("room sections for page %d: bad JSON: %w", pageNumber, err)
	}
	c.logger.Debug("room sections extracted",
		zap.Int("page", pageNumber),
		zap.Int("rooms", len(resp.Rooms)))
	return resp.Rooms, nil
}

// LineItems extracts the line items on a rendered page, scoped to the room
// names known to appear on it.
func (c *Client) LineItems(ctx context.Context, pageImage []byte, rooms []string) ([]oracle.RawLineItem, error) {
	prompt := fmt.Sprintf(extractionPromptTemplate, strings.Join(rooms, ", "))
	out, err := c.completeVision(ctx, prompt, pageImage)
	if err != nil {
		return nil, fmt.Errorf("line items: %w", err)
	}
	var resp struct {
		LineItems []oracle.RawLineItem `json:"line_items"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, fmt.Errorf("line items: bad JSON: %w", err)
	}
	return resp.LineItems, nil
}
