package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samvad-hq/notion-blocks/internal/clipper"
	"github.com/samvad-hq/notion-blocks/internal/config"
	"github.com/samvad-hq/notion-blocks/internal/logger"
	"github.com/samvad-hq/notion-blocks/internal/storage"
	"github.com/samvad-hq/notion-blocks/pkg/notion"
	"github.com/samvad-hq/notion-blocks/pkg/publishers"
)

// Editor performs block edits through the Notion client, records the blocks it
// creates in the local ledger and announces every change to the configured
// publishers.
type Editor struct {
	client    *notion.Client
	store     storage.Store
	publisher EventPublisher
	clipper   PageClipper
	log       logger.Logger
}

// NewEditor builds an editor runtime from config.
func NewEditor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Editor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := notion.New(cfg.NotionToken,
		notion.WithBaseURL(cfg.NotionBaseURL),
		notion.WithVersion(cfg.NotionVersion),
		notion.WithTimeout(cfg.HTTPTimeout),
		notion.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("init notion client: %w", err)
	}

	var publisher EventPublisher
	if cfg.PublishersFile != "" {
		fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
		if err != nil {
			return nil, err
		}
		publisher = fanout
	}

	storeOpts := storage.Options{
		EntryTTL:        cfg.LedgerTTL,
		CleanupInterval: cfg.LedgerCleanupInterval,
	}
	store, err := storage.NewStore(cfg.LedgerType, cfg.LedgerPath, storeOpts)
	if err != nil {
		if publisher != nil {
			_ = publisher.Close()
		}
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	log.DebugObj("ledger initialized", "ledger_config", map[string]any{
		"type":                     cfg.LedgerType,
		"path":                     cfg.LedgerPath,
		"entry_ttl_seconds":        int(cfg.LedgerTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.LedgerCleanupInterval.Seconds()),
	})

	return newEditor(client, store, publisher, clipper.New(nil, cfg.ClipUserAgent), log), nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, p := range enabled {
		summaries = append(summaries, map[string]string{"id": p.ID, "type": p.Type})
	}
	log.DebugObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

func newEditor(client *notion.Client, store storage.Store, pub EventPublisher, clip PageClipper, log logger.Logger) *Editor {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	return &Editor{
		client:    client,
		store:     store,
		publisher: pub,
		clipper:   clip,
		log:       log,
	}
}

// Client exposes the underlying Notion client for read-only calls.
func (e *Editor) Client() *notion.Client { return e.client }

// AppendText appends a paragraph under parentID.
func (e *Editor) AppendText(ctx context.Context, parentID, text string) (notion.Envelope, error) {
	return e.appendAndRecord(ctx, parentID, 1, func() (notion.Envelope, error) {
		return e.client.TextAppend(ctx, parentID, text)
	})
}

// AddImage appends an external image block under parentID.
func (e *Editor) AddImage(ctx context.Context, parentID, imageURL string) (notion.Envelope, error) {
	return e.appendAndRecord(ctx, parentID, 1, func() (notion.Envelope, error) {
		return e.client.ImageAdd(ctx, parentID, imageURL)
	})
}

// AppendBlocks appends arbitrary blocks under parentID.
func (e *Editor) AppendBlocks(ctx context.Context, parentID string, blocks []notion.Block) (notion.Envelope, error) {
	return e.appendAndRecord(ctx, parentID, len(blocks), func() (notion.Envelope, error) {
		return e.client.AppendChildBlocks(ctx, parentID, blocks)
	})
}

// SetText rewrites the text of a text block.
func (e *Editor) SetText(ctx context.Context, blockID, text string) (notion.Envelope, error) {
	env, err := e.client.TextSet(ctx, blockID, text)
	if err != nil || !env.OK() {
		return env, err
	}
	block, _ := env.Block()
	e.publish(ctx, publishers.NewEvent(publishers.ActionUpdated, blockID, parentOf(block), block.Type()))
	return env, nil
}

// Delete archives a block and drops it from the ledger.
func (e *Editor) Delete(ctx context.Context, blockID string) (notion.Envelope, error) {
	env, err := e.client.DeleteBlock(ctx, blockID)
	if err != nil || !env.OK() {
		return env, err
	}
	e.forget(blockID)
	block, _ := env.Block()
	e.publish(ctx, publishers.NewEvent(publishers.ActionDeleted, blockID, parentOf(block), block.Type()))
	return env, nil
}

// ReplaceImage swaps an image block for a new one under parentID. Image
// blocks cannot be updated in place, so the old block is deleted and a new
// one appended at the end of the parent.
func (e *Editor) ReplaceImage(ctx context.Context, parentID, oldBlockID, imageURL string) (notion.Envelope, error) {
	env, err := e.client.GetBlock(ctx, oldBlockID)
	if err != nil || !env.OK() {
		return env, err
	}
	block, _ := env.Block()
	if _, ok := notion.ImageGetURL(block); !ok {
		return notion.Envelope{Failure: NotImageBlock()}, nil
	}

	env, err = e.Delete(ctx, oldBlockID)
	if err != nil || !env.OK() {
		return env, err
	}
	return e.AddImage(ctx, parentID, imageURL)
}

// Cleanup deletes every block the ledger recorded under parentID. Blocks that
// are already gone remotely are dropped from the ledger. It returns how many
// blocks were deleted.
func (e *Editor) Cleanup(ctx context.Context, parentID string) (int, error) {
	ids, err := e.store.Created(parentID)
	if err != nil {
		return 0, fmt.Errorf("read ledger: %w", err)
	}

	var errs []error
	deleted := 0
	for _, id := range ids {
		env, err := e.Delete(ctx, id)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
		case !env.OK() && env.Failure.Code == http.StatusNotFound:
			e.forget(id)
		case !env.OK():
			errs = append(errs, fmt.Errorf("delete %s: %w", id, env.Err()))
		default:
			deleted++
		}
	}

	e.log.InfoObj("cleanup completed", "cleanup_result", map[string]any{
		"parent_id": parentID,
		"recorded":  len(ids),
		"deleted":   deleted,
		"failed":    len(errs),
	})
	return deleted, errors.Join(errs...)
}

// Clip fetches pageURL and appends its title, description and preview image
// under parentID.
func (e *Editor) Clip(ctx context.Context, parentID, pageURL string) (notion.Envelope, error) {
	if e.clipper == nil {
		return notion.Envelope{}, fmt.Errorf("clipper is not configured")
	}
	clip, err := e.clipper.Fetch(ctx, pageURL)
	if err != nil {
		return notion.Envelope{}, fmt.Errorf("clip %s: %w", pageURL, err)
	}

	var blocks []notion.Block
	for _, text := range []string{clip.Title, clip.Description} {
		if text != "" {
			blocks = append(blocks, e.client.Paragraph(text))
		}
	}
	if len(blocks) == 0 {
		blocks = append(blocks, e.client.Paragraph(clip.URL))
	}
	if clip.ImageURL != "" {
		blocks = append(blocks, notion.NewExternalImage(clip.ImageURL))
	}
	return e.AppendBlocks(ctx, parentID, blocks)
}

// Close releases the ledger and publishers.
func (e *Editor) Close() error {
	var errs []error
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
	}
	return errors.Join(errs...)
}

// errIncompleteListing means a children listing may not hold every child.
var errIncompleteListing = errors.New("children listing may be truncated")

// childSnapshot is one listing of a parent's children. complete is false when
// the listing failed or filled a whole page.
type childSnapshot struct {
	ids      map[string]struct{}
	blocks   []notion.Block
	complete bool
}

// without returns the blocks not present in the snapshot. A failed snapshot
// excludes nothing.
func (s childSnapshot) without(blocks []notion.Block) []notion.Block {
	var out []notion.Block
	for _, b := range blocks {
		if _, seen := s.ids[b.ID()]; !seen {
			out = append(out, b)
		}
	}
	return out
}

// appendAndRecord snapshots the children of parentID, runs the append and
// records the children that the append created.
func (e *Editor) appendAndRecord(ctx context.Context, parentID string, n int, appendFn func() (notion.Envelope, error)) (notion.Envelope, error) {
	before, err := e.listChildren(ctx, parentID)
	if err != nil {
		e.log.DebugObj("children snapshot failed", "append_snapshot_error", map[string]any{
			"parent_id": parentID,
			"error":     err.Error(),
		})
	}

	env, err := appendFn()
	if err != nil || !env.OK() {
		return env, err
	}
	e.afterAppend(ctx, parentID, env, before, n)
	return env, nil
}

// afterAppend records the newly created children of parentID and publishes
// an event per child. Ledger and publish failures are logged only.
func (e *Editor) afterAppend(ctx context.Context, parentID string, env notion.Envelope, before childSnapshot, n int) {
	if n <= 0 {
		return
	}
	created, err := e.createdChildren(ctx, parentID, env, before, n)
	if err != nil {
		e.log.WarnObj("appended blocks not recorded", "append_lookup_error", map[string]any{
			"parent_id": parentID,
			"error":     err.Error(),
		})
		return
	}

	for _, block := range created {
		id := block.ID()
		if err := e.store.Record(parentID, id); err != nil {
			e.log.WarnObj("ledger record failed", "ledger_error", map[string]any{
				"block_id": id,
				"error":    err.Error(),
			})
		}
		e.publish(ctx, publishers.NewEvent(publishers.ActionAppended, id, parentID, block.Type()))
	}
}

// createdChildren works out which children the append created. Newer API
// versions answer with the created children. Older ones return the parent
// block, so the children are listed again and compared with the snapshot
// taken before the append. Nothing is returned unless both listings are
// complete and exactly n new children appeared.
func (e *Editor) createdChildren(ctx context.Context, parentID string, env notion.Envelope, before childSnapshot, n int) ([]notion.Block, error) {
	if obj, ok := env.Block(); ok && obj["object"] == "list" {
		if results, ok := (notion.Envelope{Value: obj["results"]}).Blocks(); ok {
			return before.without(results), nil
		}
	}

	if !before.complete {
		return nil, errIncompleteListing
	}
	after, err := e.listChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if !after.complete {
		return nil, errIncompleteListing
	}
	created := before.without(after.blocks)
	if len(created) != n {
		return nil, fmt.Errorf("expected %d new children, found %d", n, len(created))
	}
	return created, nil
}

// listChildren reads the first page of children of parentID.
func (e *Editor) listChildren(ctx context.Context, parentID string) (childSnapshot, error) {
	listed, err := e.client.GetBlockChildren(ctx, parentID)
	if err != nil {
		return childSnapshot{}, err
	}
	if !listed.OK() {
		return childSnapshot{}, listed.Err()
	}
	blocks, ok := listed.Blocks()
	if !ok {
		return childSnapshot{}, fmt.Errorf("children of %s: response is not a list", parentID)
	}

	ids := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		ids[b.ID()] = struct{}{}
	}
	return childSnapshot{
		ids:      ids,
		blocks:   blocks,
		complete: len(blocks) < notion.MaxPageSize,
	}, nil
}

func (e *Editor) forget(blockID string) {
	if err := e.store.Forget(blockID); err != nil {
		e.log.WarnObj("ledger forget failed", "ledger_error", map[string]any{
			"block_id": blockID,
			"error":    err.Error(),
		})
	}
}

func (e *Editor) publish(ctx context.Context, evt publishers.Event) {
	if e.publisher == nil {
		return
	}
	if _, err := e.publisher.Publish(ctx, evt); err != nil {
		e.log.ErrorObj("change event publish failed", "publish_error", map[string]any{
			"action":   evt.Action,
			"block_id": evt.BlockID,
			"error":    err.Error(),
		})
	}
}

// NotImageBlock is the local failure record for image-only operations.
func NotImageBlock() *notion.APIError {
	return &notion.APIError{Code: 0, Message: "Not an image block"}
}

// parentOf reads the parent id of a block, if the API version exposes it.
func parentOf(b notion.Block) string {
	parent, ok := b["parent"].(map[string]any)
	if !ok {
		return ""
	}
	typ, _ := parent["type"].(string)
	id, _ := parent[typ].(string)
	return id
}
