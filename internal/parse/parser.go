// Package parse turns a PDF proposal into a ParsedDocument: rendered pages go
// through the extraction oracle, and extracted items are anchored back to
// page geometry through the word index.
package parse

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/fileid"
	"github.com/ciridae/scopematch/internal/locate"
	"github.com/ciridae/scopematch/internal/models"
	"github.com/ciridae/scopematch/internal/oracle"
	"github.com/ciridae/scopematch/internal/pagetext"
	"github.com/ciridae/scopematch/internal/render"
	"github.com/ciridae/scopematch/internal/storage"
)

// DefaultWorkers bounds how many oracle calls run at once per document.
const DefaultWorkers = 8

// Progress receives completed and total step counts as a parse advances.
// Callbacks may arrive from multiple goroutines but never concurrently.
type Progress func(done, total int)

// wordDocument is the slice of pagetext.Document the parser needs, split out
// so tests can supply synthetic word indexes.
type wordDocument interface {
	NumPages() int
	Page(n int) (*pagetext.Page, error)
	Close() error
}

// Parser extracts structured line items from PDF proposals.
type Parser struct {
	renderer  render.Renderer
	extractor oracle.Extraction
	store     storage.Storage
	logger    *zap.Logger
	workers   int
	openIndex func(path string) (wordDocument, error)
}

// Option configures a Parser.
type Option func(*Parser)

// WithStorage enables the parse cache: documents already parsed (by content
// hash) are returned without touching the renderer or the oracle.
func WithStorage(s storage.Storage) Option {
	return func(p *Parser) { p.store = s }
}

// WithLogger sets the parser's logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithWorkers sets the oracle concurrency bound. Values below 1 keep the
// default.
func WithWorkers(n int) Option {
	return func(p *Parser) {
		if n >= 1 {
			p.workers = n
		}
	}
}

// NewParser creates a parser using the given renderer and extraction oracle.
func NewParser(renderer render.Renderer, extractor oracle.Extraction, opts ...Option) *Parser {
	p := &Parser{
		renderer:  renderer,
		extractor: extractor,
		logger:    zap.NewNop(),
		workers:   DefaultWorkers,
		openIndex: func(path string) (wordDocument, error) {
			return pagetext.Open(path)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// progressCounter serializes progress callbacks from concurrent workers.
type progressCounter struct {
	mu    sync.Mutex
	done  int
	total int
	fn    Progress
}

func (c *progressCounter) step() {
	if c.fn == nil {
		return
	}
	c.mu.Lock()
	c.done++
	c.fn(c.done, c.total)
	c.mu.Unlock()
}

// ParseDocument parses the PDF at pdfPath as the given source. Page renders
// are sequential; oracle calls fan out through a bounded worker pool; results
// are applied sequentially in page order so geometry claims stay
// deterministic. Oracle failures abort the parse.
func (p *Parser) ParseDocument(ctx context.Context, pdfPath, source string, progress Progress) (*models.ParsedDocument, error) {
	var docHash string
	if p.store != nil {
		h, err := fileid.HashFile(pdfPath)
		if err != nil {
			return nil, err
		}
		docHash = h
		if doc, err := p.store.GetParsedDocument(ctx, docHash, source); err == nil {
			p.logger.Info("parse cache hit",
				zap.String("source", source),
				zap.String("doc_hash", docHash))
			return doc, nil
		} else if !storage.IsNotFound(err) {
			p.logger.Warn("parse cache read failed", zap.Error(err))
		}
	}

	words, err := p.openIndex(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer words.Close()

	numPages := words.NumPages()
	if numPages < 1 {
		return nil, fmt.Errorf("%s has no pages", pdfPath)
	}

	counter := &progressCounter{total: 3 * numPages, fn: progress}

	images, err := p.renderPages(ctx, pdfPath, numPages, counter)
	if err != nil {
		return nil, err
	}

	pageRooms, err := p.roomSections(ctx, images, counter)
	if err != nil {
		return nil, err
	}

	pageItems, err := p.lineItems(ctx, images, pageRooms, counter)
	if err != nil {
		return nil, err
	}

	doc := p.assemble(source, words, pageRooms, pageItems)

	if p.store != nil && docHash != "" {
		if err := p.store.PutParsedDocument(ctx, docHash, doc); err != nil {
			p.logger.Warn("parse cache write failed", zap.Error(err))
		}
	}
	return doc, nil
}

// renderPages renders every page in order. Rendering is sequential; the
// rasterizer is the cheap part and ordering keeps memory bounded.
func (p *Parser) renderPages(ctx context.Context, pdfPath string, numPages int, counter *progressCounter) ([][]byte, error) {
	images := make([][]byte, numPages)
	for i := 0; i < numPages; i++ {
		img, err := p.renderer.RenderPage(ctx, pdfPath, i+1)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		images[i] = img
		counter.step()
	}
	return images, nil
}

// roomSections asks the oracle which rooms appear on each page, fanning the
// calls out through the worker pool.
func (p *Parser) roomSections(ctx context.Context, images [][]byte, counter *progressCounter) ([][]oracle.RoomSection, error) {
	rooms := make([][]oracle.RoomSection, len(images))
	err := p.forEachPage(ctx, len(images), func(i int) error {
		secs, err := p.extractor.RoomSections(ctx, images[i], i+1)
		if err != nil {
			return fmt.Errorf("room sections on page %d: %w", i+1, err)
		}
		rooms[i] = secs
		counter.step()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// lineItems extracts items from every page that has at least one room
// section. Pages without rooms (covers, summaries, photo sheets) are skipped.
func (p *Parser) lineItems(ctx context.Context, images [][]byte, pageRooms [][]oracle.RoomSection, counter *progressCounter) ([][]oracle.RawLineItem, error) {
	items := make([][]oracle.RawLineItem, len(images))
	err := p.forEachPage(ctx, len(images), func(i int) error {
		if len(pageRooms[i]) == 0 {
			counter.step()
			return nil
		}
		raw, err := p.extractor.LineItems(ctx, images[i], roomNames(pageRooms[i]))
		if err != nil {
			return fmt.Errorf("line items on page %d: %w", i+1, err)
		}
		items[i] = raw
		counter.step()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// forEachPage runs fn for every page index through the bounded worker pool
// and returns the first error.
func (p *Parser) forEachPage(ctx context.Context, numPages int, fn func(i int) error) error {
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.workers)
	errChan := make(chan error, numPages)
	for i := 0; i < numPages; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				errChan <- err
				return
			}
			if err := fn(i); err != nil {
				errChan <- err
			}
		}(i)
	}
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// assemble walks pages in order, assigns item identities, resolves geometry
// through the claim arena, and groups items into rooms in first-seen order.
// An item naming a room not on its page lands in the page's first room.
func (p *Parser) assemble(source string, words wordDocument, pageRooms [][]oracle.RoomSection, pageItems [][]oracle.RawLineItem) *models.ParsedDocument {
	arena := locate.NewArena()
	roomIndex := make(map[string]*models.Room)
	var roomOrder []*models.Room

	for i := range pageItems {
		names := roomNames(pageRooms[i])
		if len(names) == 0 {
			continue
		}
		var page *pagetext.Page
		if words != nil && source == models.SourceContractor {
			var err error
			page, err = words.Page(i + 1)
			if err != nil {
				p.logger.Warn("word index page unavailable",
					zap.Int("page", i+1), zap.Error(err))
				page = nil
			}
		}

		for _, raw := range pageItems[i] {
			item := &models.LineItem{
				ID:          uuid.NewString(),
				Description: raw.Description,
				Quantity:    raw.Quantity,
				Unit:        raw.Unit,
				UnitPrice:   raw.UnitPrice,
				Total:       raw.Total,
				PageNumber:  i + 1,
			}
			if page != nil {
				item.Boxes = locate.Locate(page, item, arena.Claimed(i+1))
				if item.Boxes.Description != nil {
					arena.Claim(i+1, *item.Boxes.Description)
				}
			}

			name := raw.RoomName
			if !contains(names, name) {
				name = names[0]
			}
			room, ok := roomIndex[name]
			if !ok {
				room = &models.Room{Name: name}
				roomIndex[name] = room
				roomOrder = append(roomOrder, room)
			}
			room.Items = append(room.Items, item)
		}
	}

	return &models.ParsedDocument{Source: source, Rooms: roomOrder}
}

func roomNames(sections []oracle.RoomSection) []string {
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
	}
	return names
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
