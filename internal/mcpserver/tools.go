package mcpserver

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"scribe/internal/logging"
	"scribe/internal/manifest"
	"scribe/internal/session"
	"scribe/internal/transcribe"
)

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "youtube_transcribe",
		Description: "Download subtitles for a YouTube URL and return the normalized transcript as text.",
	}, s.handleTranscribe)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "youtube_transcribe_to_file",
		Description: "Transcribe a YouTube URL into a session file (txt, vtt, or jsonl) and register it as an item.",
	}, s.handleTranscribeToFile)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "youtube_get_duration",
		Description: "Return duration, title, and liveness metadata for a YouTube URL without downloading.",
	}, s.handleGetDuration)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "youtube_transcribe_auto",
		Description: "Transcribe a YouTube URL, returning inline text when it fits max_text_bytes and a session file otherwise. Metadata is included either way.",
	}, s.handleTranscribeAuto)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "list_session_items",
		Description: "List the session's items, optionally filtered by kind, format, or pinned state. Expired items are cleaned up first.",
	}, s.handleListItems)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "pin_item",
		Description: "Pin an item so it never expires.",
	}, s.handlePinItem)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "unpin_item",
		Description: "Unpin an item, restoring the default TTL from now.",
	}, s.handleUnpinItem)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "set_item_ttl",
		Description: "Set a custom TTL in seconds for an item. The item is unpinned.",
	}, s.handleSetItemTTL)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "delete_item",
		Description: "Delete an item and its backing file.",
	}, s.handleDeleteItem)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "write_text_file",
		Description: "Write text content under the session's derived directory and register it as an item.",
	}, s.handleWriteTextFile)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "read_file_info",
		Description: "Return metadata for a session file addressed by item_id or relpath.",
	}, s.handleReadFileInfo)
	mcpsdk.AddTool(s.mcp, &mcpsdk.Tool{
		Name:        "read_file_chunk",
		Description: "Read up to max_bytes of a session file starting at offset, decoded as UTF-8 with replacement.",
	}, s.handleReadFileChunk)
}

type transcribeArgs struct {
	URL string `json:"url" jsonschema:"YouTube video URL"`
}

type transcribeResult struct {
	Transcript string `json:"transcript"`
	Bytes      int    `json:"bytes"`
}

func (s *Server) handleTranscribe(ctx context.Context, _ *mcpsdk.CallToolRequest, args transcribeArgs) (*mcpsdk.CallToolResult, transcribeResult, error) {
	text, err := s.transcriber.Text(ctx, args.URL)
	if err != nil {
		return errResult(err), transcribeResult{}, nil
	}
	return nil, transcribeResult{Transcript: text, Bytes: len(text)}, nil
}

type transcribeToFileArgs struct {
	URL       string `json:"url" jsonschema:"YouTube video URL"`
	Format    string `json:"format,omitempty" jsonschema:"Output format: txt, vtt, or jsonl"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Target session; defaults to the server session"`
}

type itemResult struct {
	Item manifest.Item `json:"item"`
}

func (s *Server) handleTranscribeToFile(ctx context.Context, _ *mcpsdk.CallToolRequest, args transcribeToFileArgs) (*mcpsdk.CallToolResult, itemResult, error) {
	item, err := s.transcriber.ToFile(ctx, args.URL, s.resolveSession(args.SessionID), s.resolveFormat(args.Format))
	if err != nil {
		return errResult(err), itemResult{}, nil
	}
	s.logger.Info("tool stored transcript",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("url", args.URL))
	return nil, itemResult{Item: item}, nil
}

type durationArgs struct {
	URL string `json:"url" jsonschema:"YouTube video URL"`
}

func (s *Server) handleGetDuration(ctx context.Context, _ *mcpsdk.CallToolRequest, args durationArgs) (*mcpsdk.CallToolResult, transcribe.Metadata, error) {
	meta, err := s.transcriber.Duration(ctx, args.URL)
	if err != nil {
		return errResult(err), transcribe.Metadata{}, nil
	}
	return nil, meta, nil
}

type transcribeAutoArgs struct {
	URL          string `json:"url" jsonschema:"YouTube video URL"`
	Format       string `json:"format,omitempty" jsonschema:"File output format when the transcript is too large: txt, vtt, or jsonl"`
	MaxTextBytes int    `json:"max_text_bytes,omitempty" jsonschema:"Inline text threshold in bytes"`
	SessionID    string `json:"session_id,omitempty" jsonschema:"Target session; defaults to the server session"`
}

type autoResult struct {
	Kind  string              `json:"kind"`
	Text  string              `json:"text,omitempty"`
	Item  *manifest.Item      `json:"item,omitempty"`
	Bytes int                 `json:"bytes"`
	Info  transcribe.Metadata `json:"info"`
}

func (s *Server) handleTranscribeAuto(ctx context.Context, _ *mcpsdk.CallToolRequest, args transcribeAutoArgs) (*mcpsdk.CallToolResult, autoResult, error) {
	maxBytes := args.MaxTextBytes
	if maxBytes == 0 {
		maxBytes = s.opts.AutoTextMaxBytes
	}
	res, err := s.transcriber.AutoWithLimit(ctx, args.URL, s.resolveSession(args.SessionID), s.resolveFormat(args.Format), maxBytes)
	if err != nil {
		return errResult(err), autoResult{}, nil
	}
	return nil, autoResult{
		Kind:  res.Kind,
		Text:  res.Text,
		Item:  res.Item,
		Bytes: res.Bytes,
		Info:  res.Info,
	}, nil
}

type listItemsArgs struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Session to list; defaults to the server session"`
	Kind      string `json:"kind,omitempty" jsonschema:"Filter by item kind: transcript or derived"`
	Format    string `json:"format,omitempty" jsonschema:"Filter by format"`
	Pinned    *bool  `json:"pinned,omitempty" jsonschema:"Filter by pinned state"`
}

type listItemsResult struct {
	SessionID string          `json:"session_id"`
	Items     []manifest.Item `json:"items"`
}

func (s *Server) handleListItems(ctx context.Context, _ *mcpsdk.CallToolRequest, args listItemsArgs) (*mcpsdk.CallToolResult, listItemsResult, error) {
	sid := s.resolveSession(args.SessionID)
	filter := manifest.Filter{Pinned: args.Pinned}
	if args.Kind != "" {
		kind := manifest.Kind(args.Kind)
		filter.Kind = &kind
	}
	if args.Format != "" {
		format := manifest.Format(args.Format)
		filter.Format = &format
	}

	items, err := s.sessions.ListItems(sid, filter)
	if err != nil {
		return errResult(err), listItemsResult{}, nil
	}
	return nil, listItemsResult{SessionID: sid, Items: items}, nil
}

type itemArgs struct {
	ItemID    string `json:"item_id" jsonschema:"Item identifier"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Session holding the item; defaults to the server session"`
}

func (s *Server) handlePinItem(ctx context.Context, _ *mcpsdk.CallToolRequest, args itemArgs) (*mcpsdk.CallToolResult, itemResult, error) {
	item, err := s.sessions.Pin(s.resolveSession(args.SessionID), args.ItemID)
	if err != nil {
		return errResult(err), itemResult{}, nil
	}
	return nil, itemResult{Item: item}, nil
}

func (s *Server) handleUnpinItem(ctx context.Context, _ *mcpsdk.CallToolRequest, args itemArgs) (*mcpsdk.CallToolResult, itemResult, error) {
	item, err := s.sessions.Unpin(s.resolveSession(args.SessionID), args.ItemID)
	if err != nil {
		return errResult(err), itemResult{}, nil
	}
	return nil, itemResult{Item: item}, nil
}

type setTTLArgs struct {
	ItemID     string `json:"item_id" jsonschema:"Item identifier"`
	TTLSeconds int64  `json:"ttl_seconds" jsonschema:"New time to live in seconds, at least 1"`
	SessionID  string `json:"session_id,omitempty" jsonschema:"Session holding the item; defaults to the server session"`
}

func (s *Server) handleSetItemTTL(ctx context.Context, _ *mcpsdk.CallToolRequest, args setTTLArgs) (*mcpsdk.CallToolResult, itemResult, error) {
	item, err := s.sessions.SetTTL(s.resolveSession(args.SessionID), args.ItemID, args.TTLSeconds)
	if err != nil {
		return errResult(err), itemResult{}, nil
	}
	return nil, itemResult{Item: item}, nil
}

type deleteItemResult struct {
	Deleted bool   `json:"deleted"`
	ItemID  string `json:"item_id"`
}

func (s *Server) handleDeleteItem(ctx context.Context, _ *mcpsdk.CallToolRequest, args itemArgs) (*mcpsdk.CallToolResult, deleteItemResult, error) {
	if err := s.sessions.Delete(s.resolveSession(args.SessionID), args.ItemID); err != nil {
		return errResult(err), deleteItemResult{}, nil
	}
	return nil, deleteItemResult{Deleted: true, ItemID: args.ItemID}, nil
}

type writeTextFileArgs struct {
	RelPath   string `json:"relpath" jsonschema:"Path relative to the session's derived directory"`
	Content   string `json:"content" jsonschema:"Text content to write"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"Replace an existing file"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Target session; defaults to the server session"`
}

func (s *Server) handleWriteTextFile(ctx context.Context, _ *mcpsdk.CallToolRequest, args writeTextFileArgs) (*mcpsdk.CallToolResult, itemResult, error) {
	item, err := s.sessions.WriteTextFile(s.resolveSession(args.SessionID), args.RelPath, args.Content, args.Overwrite)
	if err != nil {
		return errResult(err), itemResult{}, nil
	}
	return nil, itemResult{Item: item}, nil
}

type fileTargetArgs struct {
	ItemID    string `json:"item_id,omitempty" jsonschema:"Item identifier; preferred over relpath"`
	RelPath   string `json:"relpath,omitempty" jsonschema:"Path relative to the session root"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Session holding the file; defaults to the server session"`
}

type fileInfoResult struct {
	ID        string `json:"id,omitempty"`
	SessionID string `json:"session_id"`
	RelPath   string `json:"relpath"`
	Size      int64  `json:"size"`
	Pinned    *bool  `json:"pinned,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Format    string `json:"format,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

func (s *Server) handleReadFileInfo(ctx context.Context, _ *mcpsdk.CallToolRequest, args fileTargetArgs) (*mcpsdk.CallToolResult, fileInfoResult, error) {
	sid := s.resolveSession(args.SessionID)
	info, err := s.sessions.ReadFileInfo(sid, args.ItemID, args.RelPath)
	if err != nil {
		return errResult(err), fileInfoResult{}, nil
	}

	out := fileInfoResult{
		ID:        info.ID,
		SessionID: sid,
		RelPath:   info.RelPath,
		Size:      info.Size,
		Pinned:    info.Pinned,
		Format:    string(info.Format),
		Kind:      string(info.Kind),
	}
	if info.ExpiresAt != nil {
		out.ExpiresAt = info.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	return nil, out, nil
}

type readChunkArgs struct {
	ItemID    string `json:"item_id,omitempty" jsonschema:"Item identifier; preferred over relpath"`
	RelPath   string `json:"relpath,omitempty" jsonschema:"Path relative to the session root"`
	Offset    int64  `json:"offset,omitempty" jsonschema:"Byte offset to start reading at"`
	MaxBytes  int    `json:"max_bytes,omitempty" jsonschema:"Maximum bytes to read, clamped to [1, 200000]"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Session holding the file; defaults to the server session"`
}

type fileChunkResult struct {
	Data       string `json:"data"`
	NextOffset int64  `json:"next_offset"`
	EOF        bool   `json:"eof"`
	Size       int64  `json:"size"`
	ID         string `json:"id,omitempty"`
}

func (s *Server) handleReadFileChunk(ctx context.Context, _ *mcpsdk.CallToolRequest, args readChunkArgs) (*mcpsdk.CallToolResult, fileChunkResult, error) {
	maxBytes := args.MaxBytes
	if maxBytes == 0 {
		maxBytes = session.MaxChunkBytes
	}
	chunk, err := s.sessions.ReadFileChunk(s.resolveSession(args.SessionID), args.ItemID, args.RelPath, args.Offset, maxBytes)
	if err != nil {
		return errResult(err), fileChunkResult{}, nil
	}
	return nil, fileChunkResult{
		Data:       chunk.Data,
		NextOffset: chunk.NextOffset,
		EOF:        chunk.EOF,
		Size:       chunk.Size,
		ID:         chunk.ID,
	}, nil
}
