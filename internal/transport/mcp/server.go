// Package mcp exposes recall and extraction as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/core"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/internal/service/memory"
	"github.com/VolodkaGitHub/AITestAssistantBack-sub001/pkg/log"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ToolRecallContext   = "recall_context"
	ToolExtractMemories = "extract_memories"
)

type Server struct {
	pipeline *memory.Pipeline
	mcp      *server.MCPServer
	in       io.Reader
	out      io.Writer
}

func NewServer(pipeline *memory.Pipeline, in io.Reader, out io.Writer) *Server {
	s := &Server{
		pipeline: pipeline,
		mcp:      server.NewMCPServer(core.AppName, core.AppVersion, server.WithToolCapabilities(false)),
		in:       in,
		out:      out,
	}

	s.mcp.AddTool(mcpproto.NewTool(ToolRecallContext,
		mcpproto.WithDescription("Returns what is known about a user's health: symptoms, medications, history, concerns and more. With a query, returns the stored memories most related to it."),
		mcpproto.WithString("user_id", mcpproto.Required(), mcpproto.Description("User whose memory to read")),
		mcpproto.WithString("query", mcpproto.Description("Optional question or topic to focus the recall on")),
		mcpproto.WithString("symptoms", mcpproto.Description("Optional comma separated symptoms related to the query")),
	), s.recallContext)

	s.mcp.AddTool(mcpproto.NewTool(ToolExtractMemories,
		mcpproto.WithDescription("Extracts durable health memories from a conversation transcript and stores them for the user."),
		mcpproto.WithString("user_id", mcpproto.Required(), mcpproto.Description("User the conversation belongs to")),
		mcpproto.WithString("session_id", mcpproto.Required(), mcpproto.Description("Conversation session identifier")),
		mcpproto.WithString("messages_json", mcpproto.Required(),
			mcpproto.Description(`JSON array of {"role","content"} messages, or {"messages":[...]}`)),
	), s.extractMemories)

	return s
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting mcp stdio server")
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, s.in, s.out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(context.Context) error {
	return nil
}

func (s *Server) recallContext(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	query := req.GetString("query", "")
	symptoms := splitList(req.GetString("symptoms", ""))

	summary, err := s.pipeline.Aggregator().GenerateContextualSummary(ctx, userID, query, symptoms)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("user_id", userID).Msg("recall failed")
		return mcpproto.NewToolResultError(fmt.Sprintf("recall failed: %v", err)), nil
	}
	if summary == "" {
		return mcpproto.NewToolResultText("No stored context for this user."), nil
	}
	return mcpproto.NewToolResultText(summary), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type extractResult struct {
	Entries         int    `json:"entries"`
	Candidates      int    `json:"candidates"`
	ChunksTotal     int    `json:"chunks_total"`
	ChunksProcessed int    `json:"chunks_processed"`
	ChunksFailed    int    `json:"chunks_failed"`
	Interrupted     bool   `json:"interrupted"`
	Summary         string `json:"summary"`
}

func (s *Server) extractMemories(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("messages_json")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	msgs, err := core.DecodeTranscript([]byte(raw))
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	res, err := s.pipeline.Run(ctx, memory.RunRequest{UserID: userID, SessionID: sessionID, Messages: msgs})
	if err != nil {
		return mcpproto.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
	}

	out, err := json.MarshalIndent(extractResult{
		Entries:         len(res.Entries),
		Candidates:      res.CandidateCount,
		ChunksTotal:     res.ChunksTotal,
		ChunksProcessed: res.ChunksProcessed,
		ChunksFailed:    res.ChunksFailed,
		Interrupted:     res.Interrupted,
		Summary:         res.Summary,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcpproto.NewToolResultText(string(out)), nil
}
