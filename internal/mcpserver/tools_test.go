package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"scribe/internal/logging"
	"scribe/internal/manifest"
	"scribe/internal/services"
	"scribe/internal/session"
	"scribe/internal/store"
	"scribe/internal/transcribe"
	"scribe/internal/ytdlp"
)

const sampleVTT = "WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nHello <00:00:01.400>world\n\n00:00:03.000 --> 00:00:05.000\nSecond line\n"

const testURL = "https://www.youtube.com/watch?v=abc123"

type fakeFetcher struct {
	info ytdlp.Info
	subs ytdlp.Subtitles
}

func (f *fakeFetcher) FetchInfo(ctx context.Context, url string) (ytdlp.Info, error) {
	return f.info, nil
}

func (f *fakeFetcher) FetchSubtitles(ctx context.Context, url string) (ytdlp.Subtitles, error) {
	return f.subs, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.New(t.TempDir())
	repo := manifest.NewRepository(st, logging.NewNop(), manifest.Options{DefaultTTL: time.Hour})
	fetcher := &fakeFetcher{
		info: ytdlp.Info{Title: "Talk", Duration: 93, DurationString: "1:33"},
		subs: ytdlp.Subtitles{VTT: []byte(sampleVTT), PickedFile: "Talk.en.vtt"},
	}
	transcriber := transcribe.NewService(fetcher, st, repo, nil, logging.NewNop(), transcribe.Options{})
	sessions := session.NewService(st, repo, logging.NewNop())
	return New(transcriber, sessions, logging.NewNop(), Options{DefaultSessionID: "default"})
}

func decodeToolError(t *testing.T, res *mcpsdk.CallToolResult) map[string]string {
	t.Helper()
	if res == nil || !res.IsError {
		t.Fatalf("expected tool error, got %+v", res)
	}
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("error payload not JSON: %v", err)
	}
	return payload
}

func TestTranscribeTool(t *testing.T) {
	s := newTestServer(t)
	res, out, err := s.handleTranscribe(context.Background(), nil, transcribeArgs{URL: testURL})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res != nil {
		t.Fatalf("unexpected tool error: %+v", res)
	}
	if out.Transcript != "Hello world\nSecond line" || out.Bytes != len(out.Transcript) {
		t.Fatalf("out = %+v", out)
	}
}

func TestTranscribeToolInvalidURL(t *testing.T) {
	s := newTestServer(t)
	res, _, err := s.handleTranscribe(context.Background(), nil, transcribeArgs{URL: "https://example.com/x"})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	payload := decodeToolError(t, res)
	if payload["code"] != services.CodeInvalidInput {
		t.Fatalf("code = %q, want %q", payload["code"], services.CodeInvalidInput)
	}
}

func TestTranscribeToFileAndReadBack(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, out, err := s.handleTranscribeToFile(ctx, nil, transcribeToFileArgs{URL: testURL})
	if err != nil || res != nil {
		t.Fatalf("handler = (%+v, %v)", res, err)
	}
	if out.Item.Format != manifest.FormatTxt || !strings.HasPrefix(out.Item.RelPath, "transcripts/") {
		t.Fatalf("item = %+v", out.Item)
	}

	infoRes, info, err := s.handleReadFileInfo(ctx, nil, fileTargetArgs{ItemID: out.Item.ID})
	if err != nil || infoRes != nil {
		t.Fatalf("read info = (%+v, %v)", infoRes, err)
	}
	if info.ID != out.Item.ID || info.SessionID != "default" || info.Size != out.Item.Size {
		t.Fatalf("info = %+v", info)
	}
	if info.ExpiresAt == "" || info.Pinned == nil || *info.Pinned {
		t.Fatalf("expiry fields = %+v", info)
	}

	chunkRes, chunk, err := s.handleReadFileChunk(ctx, nil, readChunkArgs{ItemID: out.Item.ID, MaxBytes: 5})
	if err != nil || chunkRes != nil {
		t.Fatalf("read chunk = (%+v, %v)", chunkRes, err)
	}
	if chunk.Data != "Hello" || chunk.NextOffset != 5 || chunk.EOF {
		t.Fatalf("chunk = %+v", chunk)
	}
}

func TestGetDurationTool(t *testing.T) {
	s := newTestServer(t)
	res, meta, err := s.handleGetDuration(context.Background(), nil, durationArgs{URL: testURL})
	if err != nil || res != nil {
		t.Fatalf("handler = (%+v, %v)", res, err)
	}
	if meta.Duration != 93 || meta.Title != "Talk" {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestTranscribeAutoToolInline(t *testing.T) {
	s := newTestServer(t)
	res, out, err := s.handleTranscribeAuto(context.Background(), nil, transcribeAutoArgs{URL: testURL})
	if err != nil || res != nil {
		t.Fatalf("handler = (%+v, %v)", res, err)
	}
	if out.Kind != "text" || out.Item != nil || out.Info.Title != "Talk" {
		t.Fatalf("out = %+v", out)
	}
}

func TestTranscribeAutoToolFile(t *testing.T) {
	s := newTestServer(t)
	res, out, err := s.handleTranscribeAuto(context.Background(), nil, transcribeAutoArgs{URL: testURL, MaxTextBytes: 3})
	if err != nil || res != nil {
		t.Fatalf("handler = (%+v, %v)", res, err)
	}
	if out.Kind != "file" || out.Item == nil {
		t.Fatalf("out = %+v", out)
	}
}

func TestItemManagementTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, created, err := s.handleWriteTextFile(ctx, nil, writeTextFileArgs{RelPath: "notes.txt", Content: "note"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	id := created.Item.ID

	if res, out, err := s.handlePinItem(ctx, nil, itemArgs{ItemID: id}); err != nil || res != nil || !out.Item.Pinned {
		t.Fatalf("pin = (%+v, %+v, %v)", res, out, err)
	}
	if res, out, err := s.handleUnpinItem(ctx, nil, itemArgs{ItemID: id}); err != nil || res != nil || out.Item.Pinned {
		t.Fatalf("unpin = (%+v, %+v, %v)", res, out, err)
	}
	if res, out, err := s.handleSetItemTTL(ctx, nil, setTTLArgs{ItemID: id, TTLSeconds: 60}); err != nil || res != nil || out.Item.ExpiresAt == nil {
		t.Fatalf("set ttl = (%+v, %+v, %v)", res, out, err)
	}

	_, listOut, err := s.handleListItems(ctx, nil, listItemsArgs{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listOut.Items) != 1 || listOut.SessionID != "default" {
		t.Fatalf("list = %+v", listOut)
	}

	if res, out, err := s.handleDeleteItem(ctx, nil, itemArgs{ItemID: id}); err != nil || res != nil || !out.Deleted {
		t.Fatalf("delete = (%+v, %+v, %v)", res, out, err)
	}

	res, _, err := s.handleDeleteItem(ctx, nil, itemArgs{ItemID: id})
	if err != nil {
		t.Fatalf("second delete handler error: %v", err)
	}
	payload := decodeToolError(t, res)
	if payload["code"] != services.CodeNotFound {
		t.Fatalf("code = %q, want %q", payload["code"], services.CodeNotFound)
	}
}

func TestSessionIDResolution(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if _, _, err := s.handleWriteTextFile(ctx, nil, writeTextFileArgs{RelPath: "a.txt", Content: "x", SessionID: "other"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, defaultList, err := s.handleListItems(ctx, nil, listItemsArgs{})
	if err != nil {
		t.Fatalf("list default: %v", err)
	}
	if len(defaultList.Items) != 0 {
		t.Fatalf("default session sees other session's items: %+v", defaultList.Items)
	}

	_, otherList, err := s.handleListItems(ctx, nil, listItemsArgs{SessionID: "other"})
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(otherList.Items) != 1 {
		t.Fatalf("other = %+v", otherList.Items)
	}
}
