package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/triplemap-go/internal/apptype"
	"github.com/ZanzyTHEbar/triplemap-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/triplemap-go/internal/logging"
	"github.com/ZanzyTHEbar/triplemap-go/internal/metrics"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/model"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/triplemap"
)

const (
	serverName     = "triplemap"
	healthInterval = 5 * time.Second
)

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server *mcp.Server
	svc    *triplemap.Service
	log    zerolog.Logger
}

// NewMCPServer creates a new MCP server
func NewMCPServer(svc *triplemap.Service, log zerolog.Logger) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: buildinfo.Version,
	}, nil)

	mcpServer := &MCPServer{
		server: server,
		svc:    svc,
		log:    logging.Component(log, "mcp"),
	}
	mcpServer.setupToolHandlers()
	return mcpServer
}

func mustSchema[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T]()
	if err != nil {
		var zero T
		panic(fmt.Sprintf("failed to create schema for %T: %v", zero, err))
	}
	return s
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	// Tools that return plain text do not need an output schema. Only
	// tools returning structured content declare OutputSchema.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "create_entity",
		Title:        "Create Entity",
		Description:  "Create an entity of a kind. A fresh urn is allocated from the kind's template; every required attribute must be given.",
		InputSchema:  mustSchema[apptype.CreateEntityArgs](),
		OutputSchema: mustSchema[apptype.CreateEntityResult](),
	}, s.handleCreateEntity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "change_entity",
		Title:       "Change Entity",
		Description: "Write several attributes of an entity at once. Every value is validated before anything is written.",
		InputSchema: mustSchema[apptype.ChangeEntityArgs](),
	}, s.handleChangeEntity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_value",
		Title:       "Add Value",
		Description: "Append a value to a multi attribute of an entity.",
		InputSchema: mustSchema[apptype.ValueArgs](),
	}, s.handleAddValue)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_value",
		Title:       "Set Value",
		Description: "Replace the value of a single attribute of an entity.",
		InputSchema: mustSchema[apptype.ValueArgs](),
	}, s.handleSetValue)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "get_value",
		Title:        "Get Value",
		Description:  "Read one attribute of an entity as a typed value.",
		InputSchema:  mustSchema[apptype.GetValueArgs](),
		OutputSchema: mustSchema[apptype.GetValueResult](),
	}, s.handleGetValue)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_value",
		Title:       "Delete Value",
		Description: "Delete one value of an attribute, or every value when no value is given.",
		InputSchema: mustSchema[apptype.DeleteValueArgs](),
	}, s.handleDeleteValue)

	readEntityAnnotations := mcp.ToolAnnotations{
		Title: "Read Entity",
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &readEntityAnnotations,
		Name:         "read_entity",
		Title:        "Read Entity",
		Description:  "Read every stored attribute of an entity.",
		InputSchema:  mustSchema[apptype.ReadEntityArgs](),
		OutputSchema: mustSchema[apptype.Entity](),
	}, s.handleReadEntity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "describe_schema",
		Title:        "Describe Schema",
		Description:  "List entity kinds with their urn templates and attributes.",
		InputSchema:  mustSchema[apptype.DescribeSchemaArgs](),
		OutputSchema: mustSchema[apptype.DescribeSchemaResult](),
	}, s.handleDescribeSchema)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Report version, backend and whether the store answers.",
		InputSchema:  mustSchema[apptype.HealthArgs](),
		OutputSchema: mustSchema[apptype.HealthResult](),
	}, s.handleHealth)
}

// track times a tool call and logs its outcome.
func (s *MCPServer) track(tool string) func(error) {
	start := time.Now()
	done := metrics.TimeTool(tool)
	return func(err error) {
		done(err == nil)
		logging.LogToolCall(s.log, tool, time.Since(start), err)
	}
}

func textResult[T any](text string, structured T) *mcp.CallToolResultFor[T] {
	return &mcp.CallToolResultFor[T]{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: structured,
	}
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// handleCreateEntity handles the create_entity tool call
func (s *MCPServer) handleCreateEntity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CreateEntityArgs],
) (_ *mcp.CallToolResultFor[apptype.CreateEntityResult], err error) {
	finish := s.track("create_entity")
	defer func() { finish(err) }()
	args := params.Arguments

	urn, err := s.svc.Create(ctx, args.ProjectArgs.ProjectName, args.Kind, model.Values(args.Values))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", args.Kind, err)
	}
	return textResult(fmt.Sprintf("Created %s", urn), apptype.CreateEntityResult{URN: urn}), nil
}

// handleChangeEntity handles the change_entity tool call
func (s *MCPServer) handleChangeEntity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ChangeEntityArgs],
) (_ *mcp.CallToolResultFor[any], err error) {
	finish := s.track("change_entity")
	defer func() { finish(err) }()
	args := params.Arguments

	if err := s.svc.Change(ctx, args.ProjectArgs.ProjectName, args.Kind, args.URN, model.Values(args.Values)); err != nil {
		return nil, fmt.Errorf("failed to change %s: %w", args.URN, err)
	}
	return textResult[any](fmt.Sprintf("Changed %d attributes of %s", len(args.Values), args.URN), nil), nil
}

// handleAddValue handles the add_value tool call
func (s *MCPServer) handleAddValue(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ValueArgs],
) (_ *mcp.CallToolResultFor[any], err error) {
	finish := s.track("add_value")
	defer func() { finish(err) }()
	args := params.Arguments

	if err := s.svc.Add(ctx, args.ProjectArgs.ProjectName, args.Kind, args.URN, args.Attribute, args.Value); err != nil {
		return nil, fmt.Errorf("failed to add %s to %s: %w", args.Attribute, args.URN, err)
	}
	return textResult[any](fmt.Sprintf("Added %s to %s", args.Attribute, args.URN), nil), nil
}

// handleSetValue handles the set_value tool call
func (s *MCPServer) handleSetValue(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ValueArgs],
) (_ *mcp.CallToolResultFor[any], err error) {
	finish := s.track("set_value")
	defer func() { finish(err) }()
	args := params.Arguments

	if err := s.svc.Set(ctx, args.ProjectArgs.ProjectName, args.Kind, args.URN, args.Attribute, args.Value); err != nil {
		return nil, fmt.Errorf("failed to set %s of %s: %w", args.Attribute, args.URN, err)
	}
	return textResult[any](fmt.Sprintf("Set %s of %s", args.Attribute, args.URN), nil), nil
}

// handleGetValue handles the get_value tool call
func (s *MCPServer) handleGetValue(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GetValueArgs],
) (_ *mcp.CallToolResultFor[apptype.GetValueResult], err error) {
	finish := s.track("get_value")
	defer func() { finish(err) }()
	args := params.Arguments

	v, err := s.svc.Get(ctx, args.ProjectArgs.ProjectName, args.Kind, args.URN, args.Attribute)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s of %s: %w", args.Attribute, args.URN, err)
	}
	res := apptype.GetValueResult{Attribute: args.Attribute, Value: v}
	return textResult(jsonText(res), res), nil
}

// handleDeleteValue handles the delete_value tool call
func (s *MCPServer) handleDeleteValue(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeleteValueArgs],
) (_ *mcp.CallToolResultFor[any], err error) {
	finish := s.track("delete_value")
	defer func() { finish(err) }()
	args := params.Arguments
	project := args.ProjectArgs.ProjectName

	if args.Value == nil {
		err = s.svc.Delete(ctx, project, args.Kind, args.URN, args.Attribute)
	} else {
		err = s.svc.DeleteValue(ctx, project, args.Kind, args.URN, args.Attribute, args.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s of %s: %w", args.Attribute, args.URN, err)
	}
	return textResult[any](fmt.Sprintf("Deleted %s of %s", args.Attribute, args.URN), nil), nil
}

// handleReadEntity handles the read_entity tool call
func (s *MCPServer) handleReadEntity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ReadEntityArgs],
) (_ *mcp.CallToolResultFor[apptype.Entity], err error) {
	finish := s.track("read_entity")
	defer func() { finish(err) }()
	args := params.Arguments

	values, err := s.svc.All(ctx, args.ProjectArgs.ProjectName, args.Kind, args.URN)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args.URN, err)
	}
	ent := apptype.Entity{Kind: args.Kind, URN: args.URN, Values: values}
	return textResult(jsonText(ent), ent), nil
}

// handleDescribeSchema handles the describe_schema tool call
func (s *MCPServer) handleDescribeSchema(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DescribeSchemaArgs],
) (_ *mcp.CallToolResultFor[apptype.DescribeSchemaResult], err error) {
	finish := s.track("describe_schema")
	defer func() { finish(err) }()

	kinds := s.svc.Kinds()
	if params.Arguments.Kind != "" {
		kinds = []string{params.Arguments.Kind}
	}
	res := apptype.DescribeSchemaResult{Kinds: make([]apptype.Kind, 0, len(kinds))}
	for _, kind := range kinds {
		schema, err := s.svc.Describe(kind)
		if err != nil {
			return nil, err
		}
		res.Kinds = append(res.Kinds, KindInfo(schema))
	}
	return textResult(jsonText(res), res), nil
}

// KindInfo renders a schema for clients.
func KindInfo(schema *model.Schema) apptype.Kind {
	k := apptype.Kind{
		Name:     schema.Kind(),
		Template: schema.Template(),
		CountBy:  schema.CountBy(),
	}
	for _, a := range schema.Attributes() {
		k.Attributes = append(k.Attributes, apptype.Attribute{
			Name:        a.Name,
			Predicate:   a.Predicate,
			Type:        a.Type.String(),
			Cardinality: a.Cardinality.String(),
			Required:    a.Required,
		})
	}
	return k
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()

	h := s.svc.Health(ctx, params.Arguments.ProjectArgs.ProjectName)
	res := apptype.HealthResult{
		Name:         serverName,
		Version:      buildinfo.Version,
		Revision:     buildinfo.Revision,
		BuildDate:    buildinfo.BuildDate,
		Backend:      h.Backend,
		MultiProject: h.MultiProject,
		Kinds:        h.Kinds,
		Healthy:      h.Err == nil,
	}
	text := "ok"
	if h.Err != nil {
		res.Error = h.Err.Error()
		text = "unhealthy: " + res.Error
	}
	return textResult(text, res), nil
}

// watchHealth pings the default project until ctx ends; the backends
// refresh the pool gauges on every ping.
func (s *MCPServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if h := s.svc.Health(ctx, ""); h.Err != nil && ctx.Err() == nil {
					s.log.Warn().Err(h.Err).Str("backend", h.Backend).Msg("store health check failed")
				}
			}
		}
	}()
}

// Run starts the MCP server with stdio transport
func (s *MCPServer) Run(ctx context.Context) error {
	s.watchHealth(ctx)
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}

// Handler returns the SSE handler serving this server.
func (s *MCPServer) Handler() http.Handler {
	return mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	s.watchHealth(ctx)
	mux := http.NewServeMux()
	mux.Handle(endpoint, s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Str("endpoint", endpoint).Msg("SSE MCP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
