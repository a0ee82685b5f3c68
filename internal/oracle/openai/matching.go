package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/models"
	"github.com/ciridae/scopematch/internal/oracle"
)

// MatchItems proposes correspondences between contractor and insurance line
// items. Proposals are positional indexes; the caller validates them.
func (c *Client) MatchItems(ctx context.Context, source, target []oracle.ItemSummary) ([]oracle.IndexPair, error) {
	user := fmt.Sprintf("Contractor items (%d):\n%s\n\nInsurance items (%d):\n%s",
		len(source), formatItemList(source),
		len(target), formatItemList(target))
	out, err := c.completeText(ctx, matchingPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("match items: %w", err)
	}
	var resp struct {
		Matches []oracle.IndexPair `json:"matches"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, fmt.Errorf("match items: bad JSON: %w", err)
	}
	c.logger.Debug("items matched",
		zap.Int("source", len(source)),
		zap.Int("target", len(target)),
		zap.Int("proposals", len(resp.Matches)))
	return resp.Matches, nil
}

// formatItemList renders items as a numbered list the matching prompt refers
// to by index. Unknown values render as "?".
func formatItemList(items []oracle.ItemSummary) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		qty := "?"
		if item.Quantity != nil {
			qty = models.FormatValue(item.Quantity)
		}
		unit := item.Unit
		if unit == "" {
			unit = "?"
		}
		price := "$?"
		if item.UnitPrice != nil {
			price = "$" + models.FormatValue(item.UnitPrice)
		}
		lines = append(lines, fmt.Sprintf("  [%d] %s | qty=%s %s | price=%s",
			item.Index, item.Description, qty, unit, price))
	}
	return strings.Join(lines, "\n")
}
