// Package mcpserver exposes the CRM operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sugarcrm-client/internal/adapter/payload"
	"sugarcrm-client/internal/domain"
)

// CRM is the session client the tools drive.
type CRM interface {
	LoadBean(ctx context.Context, module, id string) (domain.Bean, bool, error)
	LoadBeans(ctx context.Context, module string, options domain.Args) ([]domain.Bean, error)
	LoadBeansByIDs(ctx context.Context, module string, ids []string) ([]domain.Bean, error)
	SaveBeanID(ctx context.Context, module string, fields any) (string, bool)
	Call(ctx context.Context, method string, args domain.Args) (domain.Value, error)
}

// Server registers the CRM tools on an MCP server. The CRM client holds one
// session and is not safe for concurrent use, so tool calls are serialized.
type Server struct {
	mu     sync.Mutex
	crm    CRM
	mcp    *server.MCPServer
	logger *slog.Logger
}

// New creates the tool server.
func New(crm CRM, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		crm:    crm,
		mcp:    server.NewMCPServer("sugarcrm", version, server.WithToolCapabilities(false)),
		logger: logger,
	}
	s.registerTools()
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves tools on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	module := mcp.WithString("module", mcp.Required(), mcp.Description("Module name, e.g. Contacts, Accounts, Meetings"))

	s.mcp.AddTool(mcp.NewTool("crm_load_bean",
		mcp.WithDescription("Load one record by id. Soft-deleted records are reported as not found."),
		module,
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.loadBean)

	s.mcp.AddTool(mcp.NewTool("crm_load_beans",
		mcp.WithDescription("List records of a module."),
		module,
		mcp.WithString("options", mcp.Description(`JSON object of list options, e.g. {"query":"contacts.last_name = 'Doe'","max_results":20}`)),
	), s.loadBeans)

	s.mcp.AddTool(mcp.NewTool("crm_load_beans_by_ids",
		mcp.WithDescription("Load records by id. Deleted records are included."),
		module,
		mcp.WithString("ids", mcp.Required(), mcp.Description(`JSON array of ids or a comma-separated list`)),
	), s.loadBeansByIDs)

	s.mcp.AddTool(mcp.NewTool("crm_save_bean",
		mcp.WithDescription("Create or update a record. Include an id field to update."),
		module,
		mcp.WithString("fields", mcp.Required(), mcp.Description(`JSON object of field values, e.g. {"last_name":"Doe"}`)),
	), s.saveBean)

	s.mcp.AddTool(mcp.NewTool("crm_call",
		mcp.WithDescription("Call any REST method. The session is attached automatically."),
		mcp.WithString("method", mcp.Required(), mcp.Description("REST method name, e.g. get_server_info")),
		mcp.WithString("args", mcp.Description("JSON object of method arguments, in the order the method expects")),
	), s.call)
}

func (s *Server) loadBean(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module, id := req.GetString("module", ""), req.GetString("id", "")
	if module == "" || id == "" {
		return mcp.NewToolResultError("module and id are required"), nil
	}

	s.mu.Lock()
	bean, found, err := s.crm.LoadBean(ctx, module, id)
	s.mu.Unlock()

	if err != nil {
		return s.fail("crm_load_bean", err), nil
	}
	if !found {
		return mcp.NewToolResultText(fmt.Sprintf("%s %s not found", module, id)), nil
	}
	return jsonResult(bean)
}

func (s *Server) loadBeans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module := req.GetString("module", "")
	if module == "" {
		return mcp.NewToolResultError("module is required"), nil
	}
	options, err := payload.ParseOptions(req.GetString("options", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	beans, err := s.crm.LoadBeans(ctx, module, options)
	s.mu.Unlock()

	if err != nil {
		return s.fail("crm_load_beans", err), nil
	}
	return jsonResult(beans)
}

func (s *Server) loadBeansByIDs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module := req.GetString("module", "")
	if module == "" {
		return mcp.NewToolResultError("module is required"), nil
	}
	ids, err := payload.ParseIDs(req.GetString("ids", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	beans, err := s.crm.LoadBeansByIDs(ctx, module, ids)
	s.mu.Unlock()

	if err != nil {
		return s.fail("crm_load_beans_by_ids", err), nil
	}
	return jsonResult(beans)
}

func (s *Server) saveBean(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module := req.GetString("module", "")
	if module == "" {
		return mcp.NewToolResultError("module is required"), nil
	}
	fields, err := payload.ParseFields(req.GetString("fields", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	id, ok := s.crm.SaveBeanID(ctx, module, fields)
	s.mu.Unlock()

	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("saving %s failed", module)), nil
	}
	return jsonResult(map[string]string{"id": id})
}

func (s *Server) call(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	method := req.GetString("method", "")
	if method == "" {
		return mcp.NewToolResultError("method is required"), nil
	}
	if method == domain.MethodLogin || method == domain.MethodLogout {
		return mcp.NewToolResultError(fmt.Sprintf("%s is managed by the server", method)), nil
	}
	args, err := payload.ParseArgs(req.GetString("args", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	v, err := s.crm.Call(ctx, method, args)
	s.mu.Unlock()

	if err != nil {
		return s.fail("crm_call", err), nil
	}
	if v.IsNone() {
		return mcp.NewToolResultText("no result"), nil
	}
	return jsonResult(v)
}

func (s *Server) fail(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("tool call failed", "tool", tool, "code", string(domain.ErrorCodeOf(err)), "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", domain.ErrorCodeOf(err), err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
