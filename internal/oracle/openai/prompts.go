package openai

// Prompts mirror the document formats the pipeline handles: Xactimate-style
// contractor proposals and carrier estimates. Each prompt pins the exact JSON
// object shape since the gateway runs in json_object mode without a schema.

const roomSplitPrompt = `Identify all room sections on this Xactimate PDF proposal page.
For each room section, return:
- name: the canonical room name (e.g. "Bathroom", NOT "CONTINUED - Bathroom")
- is_continuation: true if the room continues from a previous page

Rules:
- Subsection headers (WALLS, TRIM/DOORS, FLOORS, CARPET, BATHTUB, MISCELLANEOUS) are NOT rooms.
- "Main Level", "Debris Removal", "Labor Minimums Applied" are room-level sections.
- If the page has no room sections (cover page, summary, photos), return an empty list.

Respond with a JSON object of the form:
{"rooms": [{"name": "Bathroom", "is_continuation": false}]}`

const extractionPromptTemplate = `Extract all line items from this Xactimate PDF proposal page.
The rooms on this page are: %[1]s

For each line item extract:
- description: the item description text (without the leading line number)
- quantity: numeric quantity
- unit: unit of measure (SF, LF, EA, HR, DA, SY, etc.)
- unit_price: per-unit cost. For contractor proposals this is the REPLACE column. For insurance estimates this is the UNIT PRICE column.
- total: the line item total. For contractor proposals this is the TOTAL column. For insurance estimates this is the RCV column (Replacement Cost Value), NOT the ACV column.
- room_name: which of the rooms above this item belongs to. Must be one of: %[1]s

Rules:
- Only extract numbered line items, not subtotals or room totals.
- Some insurance formats show quantity and unit price on a separate line below the description. Combine them into one line item.
- Items marked as "Bid Item" or "OPEN ITEM" with no pricing should still be extracted with null values for unit_price and total.

Respond with a JSON object of the form:
{"line_items": [{"description": "...", "quantity": 120.0, "unit": "SF", "unit_price": 2.15, "total": 258.0, "room_name": "Bathroom"}]}`

const matchingPrompt = `You are comparing line items from two construction repair proposals for the same job.
Match items from the contractor list to items from the insurance list that refer to the same work.

Rules:
- Match items that describe the same type of work, even if wording differs significantly.
- Each item can appear in at most one match. Do not double-match.
- When two contractor items could match the same insurance item, prefer the one whose units/quantities are more compatible (e.g. both in SF rather than LF vs SF).
- Match items even when methodology or materials differ if they serve the same purpose:
  - "Mortar bed for tile floors" <-> "Floor leveling cement" (both floor prep for tile)
  - "Concrete grinding" <-> "Floor leveling cement" (both substrate preparation)
  - "Tile tub surround - 60 to 75 SF" <-> "Ceramic/porcelain tile (Tub Surround)"
  - "Tandem axle dump trailer" <-> "Haul debris - per pickup truck load" (both debris removal)
  - "Content Manipulation (Bid Item)" <-> "Contents - move out then reset" (both content handling)
  - "Seal/prime (1 coat) then paint (2 coats)" <-> "Paint the walls - one coat" (both wall painting)
  - "Seal (1 coat) & paint (1 coat) baseboard" <-> "Paint baseboard - one coat" (both baseboard painting)
  - "R&R Carpet pad" <-> "Carpet pad - per specs from independent pad analysis"
- Match even if quantities or pricing differ substantially; classification handles that separately.
- Only leave items unmatched if you cannot identify any corresponding work on the other side.
- Return indices as 0-based integers referring to the numbered lists provided.

Respond with a JSON object of the form:
{"matches": [{"source_index": 0, "target_index": 3}]}`

const roomPairingPrompt = `You are comparing two construction repair proposals for the same property.
Match rooms from the contractor proposal to rooms from the insurance estimate.

Rules:
- Group rooms that refer to the same physical space (e.g. "Bathroom" <-> "Hall Bathroom", "Bedroom 1" <-> "Bedroom").
- Each room appears in exactly one group. A group normally has one contractor room and one insurance room, but may hold several when one document splits a space the other combines.
- If a room has no match on the other side, include it alone with an empty list for the missing side.
- Use exact room names as provided; do not rename them.

Respond with a JSON object of the form:
{"groups": [{"source_rooms": ["Bathroom"], "target_rooms": ["Hall Bathroom"]}]}`
