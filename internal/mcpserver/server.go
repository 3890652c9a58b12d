// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Proxyforge tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jponter/proxyforge/internal/apperr"
	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/importer"
)

// Server wraps the MCP server with Proxyforge tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *importer.Service
	store catalog.Store
}

// New creates a new MCP server with all Proxyforge tools registered.
func New(svc *importer.Service, store catalog.Store) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Proxyforge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("import_order",
		mcp.WithDescription("Import a print order XML file and resolve every card image. "+
			"The file MUST follow the order format contract. Read it first via the "+
			"get_order_contract tool or the proxyforge://order-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the order XML file on disk")),
	), s.importOrder)

	s.mcp.AddTool(mcp.NewTool("list_orders",
		mcp.WithDescription("List imported orders, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of orders to return (default 50)")),
	), s.listOrders)

	s.mcp.AddTool(mcp.NewTool("get_order",
		mcp.WithDescription("Read one imported order with all of its cards and their resolution status."),
		mcp.WithNumber("order_id", mcp.Required(), mcp.Description("Numeric id of the order")),
	), s.getOrder)

	s.mcp.AddTool(mcp.NewTool("card_status",
		mcp.WithDescription("Look up the resolution status of a single card inside an order."),
		mcp.WithNumber("order_id", mcp.Required(), mcp.Description("Numeric id of the order")),
		mcp.WithString("card_id", mcp.Required(), mcp.Description("Card id within the order (case-insensitive)")),
	), s.cardStatus)

	s.mcp.AddTool(mcp.NewTool("get_order_contract",
		mcp.WithDescription("Returns the canonical order XML format contract. "+
			"Call this before building order documents to ensure correct structure."),
	), s.getOrderContract)

	// Resource: order format contract.
	s.mcp.AddResource(
		mcp.NewResource("proxyforge://order-format", "Order Format Contract",
			mcp.WithResourceDescription("Canonical order XML format that all imports must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOrderFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) importOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read order file: %v", err)), nil
	}
	res, err := s.svc.ImportXML(ctx, path, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"order_id": res.OrderID,
		"outcome":  res.Report.Outcome,
		"resolved": res.Report.Resolved,
		"failed":   res.Report.Failed,
		"skipped":  res.Report.Skipped,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listOrders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 50)
	rows, total, err := s.store.ListOrders(limit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"orders": rows,
		"total":  total,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getOrder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orderID, err := req.RequireInt("order_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, cards, err := s.store.GetOrder(int64(orderID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("order not found: %d", orderID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"order": row,
		"cards": cards,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) cardStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orderID, err := req.RequireInt("order_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cardID, err := req.RequireString("card_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := s.store.CardStatus(int64(orderID), cardID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("card not found: %s", cardID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(row, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getOrderContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(OrderFormatContract), nil
}

func (s *Server) readOrderFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "proxyforge://order-format",
			MIMEType: "text/markdown",
			Text:     OrderFormatContract,
		},
	}, nil
}
