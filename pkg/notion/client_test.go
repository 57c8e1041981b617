package notion_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/samvad-hq/notion-blocks/pkg/httpclient"
	"github.com/samvad-hq/notion-blocks/pkg/notion"
	"github.com/samvad-hq/notion-blocks/pkg/notion/notiontest"
)

const token = "secret_test"

func newClient(t *testing.T, srv *notiontest.Server, opts ...notion.Option) *notion.Client {
	t.Helper()
	opts = append([]notion.Option{notion.WithBaseURL(srv.BaseURL())}, opts...)
	c, err := notion.New(token, opts...)
	if err != nil {
		t.Fatalf("notion.New: %v", err)
	}
	return c
}

func TestNewRejectsEmptyToken(t *testing.T) {
	if _, err := notion.New("  "); !errors.Is(err, notion.ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestUnauthorizedIsFailureEnvelope(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()

	c, err := notion.New("secret_wrong", notion.WithBaseURL(srv.BaseURL()))
	if err != nil {
		t.Fatalf("notion.New: %v", err)
	}

	env, err := c.GetBlockChildren(context.Background(), "anything")
	if err != nil {
		t.Fatalf("GetBlockChildren: %v", err)
	}
	if env.OK() || env.Failure.Code != http.StatusUnauthorized || env.Failure.Message != "API token is invalid." {
		t.Fatalf("unexpected envelope %#v", env)
	}
}

func TestSearchPagesSendsTitleAsQueryParam(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	srv.AddPage("Daily notes")
	srv.AddPage("Reading list")
	c := newClient(t, srv)

	env, err := c.SearchPages(context.Background(), "")
	if err != nil {
		t.Fatalf("SearchPages: %v", err)
	}
	all, ok := env.Value.(map[string]any)["results"].([]any)
	if !ok || len(all) != 2 {
		t.Fatalf("expected 2 pages, got %#v", env.Value)
	}

	env, err = c.SearchPages(context.Background(), "daily")
	if err != nil {
		t.Fatalf("SearchPages: %v", err)
	}
	filtered := env.Value.(map[string]any)["results"].([]any)
	if len(filtered) != 1 {
		t.Fatalf("expected 1 page, got %d", len(filtered))
	}

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Method != http.MethodPost || last.Path != "/v1/search" || last.Query.Get("query") != "daily" {
		t.Fatalf("unexpected search request %#v", last)
	}
	if reqs[0].Query.Has("query") {
		t.Fatalf("empty title should not send a query param")
	}

	if _, err := c.SearchPages(context.Background(), "  "); err != nil {
		t.Fatalf("SearchPages: %v", err)
	}
	reqs = srv.Requests()
	if got := reqs[len(reqs)-1].Query; !got.Has("query") || got.Get("query") != "  " {
		t.Fatalf("whitespace title should be sent unchanged, got %#v", got)
	}
}

func TestGetPageAndBlock(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	c := newClient(t, srv)

	env, err := c.GetPage(context.Background(), pageID)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	page, ok := env.Page()
	if !ok || page.ID() != pageID {
		t.Fatalf("unexpected page %#v", env)
	}

	env, err = c.GetBlock(context.Background(), pageID)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	block, ok := env.Block()
	if !ok || block.ID() != pageID {
		t.Fatalf("unexpected block %#v", env)
	}

	env, err = c.GetPage(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetPage missing: %v", err)
	}
	if env.OK() || env.Failure.Code != http.StatusNotFound {
		t.Fatalf("expected 404 failure, got %#v", env)
	}
}

func TestGetBlockChildrenAlwaysSequence(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	c := newClient(t, srv)

	env, err := c.GetPageChildren(context.Background(), pageID)
	if err != nil {
		t.Fatalf("GetPageChildren: %v", err)
	}
	children, ok := env.Blocks()
	if !ok || len(children) != 0 {
		t.Fatalf("expected empty sequence, got %#v", env.Value)
	}

	srv.AddBlock(pageID, notion.NewParagraph("one"))
	srv.AddBlock(pageID, notion.NewParagraph("two"))

	env, err = c.GetBlockChildren(context.Background(), pageID)
	if err != nil {
		t.Fatalf("GetBlockChildren: %v", err)
	}
	children, ok = env.Blocks()
	if !ok || len(children) != 2 {
		t.Fatalf("expected 2 children, got %#v", env.Value)
	}
	if got, _ := notion.TextGet(children[1]); got != "two" {
		t.Fatalf("second child text = %q", got)
	}
}

func TestGetBlockChildrenReturnsFirstPage(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Long")
	for i := 0; i <= notion.MaxPageSize; i++ {
		srv.AddBlock(pageID, notion.NewParagraph("line"))
	}
	c := newClient(t, srv)

	env, err := c.GetBlockChildren(context.Background(), pageID)
	if err != nil {
		t.Fatalf("GetBlockChildren: %v", err)
	}
	children, ok := env.Blocks()
	if !ok || len(children) != notion.MaxPageSize {
		t.Fatalf("expected one full page, got %d", len(children))
	}
}

func TestUpdateBlock(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	blockID := srv.AddBlock(pageID, notion.NewParagraph("30 minutes ago"))
	c := newClient(t, srv)

	env, err := c.GetBlock(context.Background(), blockID)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	block, _ := env.Block()
	block["paragraph"].(map[string]any)["text"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"] = "31 minutes ago"

	env, err = c.UpdateBlock(context.Background(), blockID, block)
	if err != nil {
		t.Fatalf("UpdateBlock: %v", err)
	}
	updated, ok := env.Block()
	if !ok {
		t.Fatalf("unexpected envelope %#v", env)
	}
	if got, _ := notion.TextGet(updated); got != "31 minutes ago" {
		t.Fatalf("updated text = %q", got)
	}
}

func TestAppendThenDeleteRestoresChildCount(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	blockID := srv.AddBlock(pageID, notion.NewParagraph("30 minutes ago"))
	c := newClient(t, srv)
	ctx := context.Background()

	env, _ := c.GetBlock(ctx, blockID)
	block, _ := env.Block()
	if block.HasChildren() {
		t.Fatalf("fresh block should have no children")
	}

	env, err := c.AppendChildBlocks(ctx, blockID, []notion.Block{block})
	if err != nil {
		t.Fatalf("AppendChildBlocks: %v", err)
	}
	parent, ok := env.Block()
	if !ok || !parent.HasChildren() {
		t.Fatalf("expected parent with children, got %#v", env)
	}

	env, _ = c.GetBlockChildren(ctx, blockID)
	children, _ := env.Blocks()
	if len(children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(children))
	}

	env, err = c.DeleteBlock(ctx, children[0].ID())
	if err != nil || !env.OK() {
		t.Fatalf("DeleteBlock: %v %#v", err, env)
	}

	env, _ = c.GetBlockChildren(ctx, blockID)
	children, _ = env.Blocks()
	if len(children) != 0 {
		t.Fatalf("expected original child count 0, got %d", len(children))
	}
}

func TestAppendValidationFailure(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	c := newClient(t, srv)

	env, err := c.AppendChildBlocks(context.Background(), pageID, []notion.Block{{"paragraph": map[string]any{}}})
	if err != nil {
		t.Fatalf("AppendChildBlocks: %v", err)
	}
	if env.OK() || env.Failure.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 failure, got %#v", env)
	}
}

func TestTextAppendRoundTrip(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	c := newClient(t, srv)
	ctx := context.Background()

	env, err := c.TextAppend(ctx, pageID, "remember the milk")
	if err != nil || !env.OK() {
		t.Fatalf("TextAppend: %v %#v", err, env)
	}

	env, _ = c.GetBlockChildren(ctx, pageID)
	children, _ := env.Blocks()
	if len(children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(children))
	}
	if got, ok := notion.TextGet(children[0]); !ok || got != "remember the milk" {
		t.Fatalf("TextGet = %q, %v", got, ok)
	}
}

func TestTextAppendUsesRichTextForNewerVersions(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	c := newClient(t, srv, notion.WithVersion("2022-06-28"))
	ctx := context.Background()

	if _, err := c.TextAppend(ctx, pageID, "modern"); err != nil {
		t.Fatalf("TextAppend: %v", err)
	}
	env, _ := c.GetBlockChildren(ctx, pageID)
	children, _ := env.Blocks()
	content := children[0]["paragraph"].(map[string]any)
	if _, ok := content["rich_text"]; !ok {
		t.Fatalf("expected rich_text key, got %#v", content)
	}
	if got, _ := notion.TextGet(children[0]); got != "modern" {
		t.Fatalf("TextGet = %q", got)
	}
}

func TestTextSetUpdatesTextBlock(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	blockID := srv.AddBlock(pageID, notion.NewParagraph("30 minutes ago"))
	c := newClient(t, srv)

	env, err := c.TextSet(context.Background(), blockID, "test")
	if err != nil {
		t.Fatalf("TextSet: %v", err)
	}
	block, ok := env.Block()
	if !ok {
		t.Fatalf("unexpected envelope %#v", env)
	}
	if got, ok := notion.TextGet(block); !ok || got != "test" {
		t.Fatalf("TextGet = %q, %v", got, ok)
	}
	if srv.Count(http.MethodPatch) != 1 {
		t.Fatalf("expected one PATCH, got %d", srv.Count(http.MethodPatch))
	}
}

func TestTextSetRejectsNonTextBlockWithoutUpdate(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	imageID := srv.AddBlock(pageID, notion.NewExternalImage("https://example.com/a.png"))
	c := newClient(t, srv)

	env, err := c.TextSet(context.Background(), imageID, "nope")
	if err != nil {
		t.Fatalf("TextSet: %v", err)
	}
	if env.OK() || env.Failure.Code != 0 || env.Failure.Message != "Not a text block" {
		t.Fatalf("unexpected envelope %#v", env)
	}
	if n := srv.Count(http.MethodPatch); n != 0 {
		t.Fatalf("expected no update request, got %d", n)
	}
}

func TestTextSetPassesThroughFetchFailure(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	c := newClient(t, srv)

	env, err := c.TextSet(context.Background(), "missing", "x")
	if err != nil {
		t.Fatalf("TextSet: %v", err)
	}
	if env.OK() || env.Failure.Code != http.StatusNotFound {
		t.Fatalf("expected 404 failure, got %#v", env)
	}
}

func TestImageAddAndGetURL(t *testing.T) {
	srv := notiontest.NewServer(token)
	defer srv.Close()
	pageID := srv.AddPage("Home")
	parentID := srv.AddBlock(pageID, notion.NewParagraph("image goes here"))
	c := newClient(t, srv)
	ctx := context.Background()

	const imageURL = "https://cdn-icons-png.flaticon.com/512/1753/1753962.png"
	env, err := c.ImageAdd(ctx, parentID, imageURL)
	if err != nil {
		t.Fatalf("ImageAdd: %v", err)
	}
	parent, ok := env.Block()
	if !ok || !parent.HasChildren() {
		t.Fatalf("expected parent with children, got %#v", env)
	}

	env, _ = c.GetBlockChildren(ctx, parentID)
	children, _ := env.Blocks()
	if got, ok := notion.ImageGetURL(children[0]); !ok || got != imageURL {
		t.Fatalf("ImageGetURL = %q, %v", got, ok)
	}
	if _, ok := notion.TextGet(children[0]); ok {
		t.Fatalf("TextGet on image should be absent")
	}

	if _, err := c.DeleteBlock(ctx, children[0].ID()); err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
}

type failingRequester struct{}

func (failingRequester) Do(context.Context, httpclient.Request) (httpclient.Response, error) {
	return nil, errors.New("connection refused")
}

func TestTransportErrorIsReturnedAsError(t *testing.T) {
	c, err := notion.New(token, notion.WithRequester(failingRequester{}))
	if err != nil {
		t.Fatalf("notion.New: %v", err)
	}
	if _, err := c.GetBlock(context.Background(), "b1"); err == nil {
		t.Fatalf("expected transport error")
	}
}

type recordingRequester struct {
	reqs []httpclient.Request
}

type staticResponse struct {
	status int
	body   string
}

func (s staticResponse) Body() []byte    { return []byte(s.body) }
func (s staticResponse) StatusCode() int { return s.status }

func (r *recordingRequester) Do(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	r.reqs = append(r.reqs, req)
	return staticResponse{status: 200, body: `{"object":"list","results":[]}`}, nil
}

func TestHeadersAreFixedAndPathsEscaped(t *testing.T) {
	rec := &recordingRequester{}
	c, err := notion.New(token, notion.WithRequester(rec), notion.WithBaseURL("https://api.example.com/v1/"))
	if err != nil {
		t.Fatalf("notion.New: %v", err)
	}

	ctx := context.Background()
	_, _ = c.GetBlockChildren(ctx, "a/b")
	rec.reqs[0].Headers["Authorization"] = "tampered"
	_, _ = c.AppendChildBlocks(ctx, "p1", nil)

	if got := rec.reqs[0].URL; got != "https://api.example.com/v1/blocks/a%2Fb/children" {
		t.Fatalf("url = %s", got)
	}
	second := rec.reqs[1]
	if second.Headers["Authorization"] != "Bearer "+token {
		t.Fatalf("headers were mutated across calls: %#v", second.Headers)
	}
	if second.Headers["Notion-Version"] != notion.DefaultVersion || second.Headers["Content-Type"] != "application/json" {
		t.Fatalf("unexpected headers %#v", second.Headers)
	}
	body, ok := second.Body.(map[string]any)
	if !ok {
		t.Fatalf("unexpected body %#v", second.Body)
	}
	if children, ok := body["children"].([]notion.Block); !ok || len(children) != 0 {
		t.Fatalf("expected empty children slice, got %#v", body["children"])
	}
}
