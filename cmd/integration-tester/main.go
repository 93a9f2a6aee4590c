package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/triplemap-go/internal/apptype"
)

type StepResult struct {
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type Report struct {
	SSEURL     string       `json:"sse_url"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMs int64        `json:"duration_ms"`
	Steps      []StepResult `json:"steps"`
	Passed     bool         `json:"passed"`
}

// The steps expect the "doc" kind of configs/triplemap.yaml.
func main() {
	sseURL := flag.String("sse-url", "http://localhost:8080/sse", "SSE endpoint URL")
	project := flag.String("project", "default", "Project name to use")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "integration-tester", Version: "dev"}, nil)
	transport := mcp.NewSSEClientTransport(*sseURL, nil)

	start := time.Now()
	report := Report{SSEURL: *sseURL, StartedAt: start}
	steps := make([]StepResult, 0, 16)

	// Connect
	tConn := time.Now()
	connRes := StepResult{Name: "connect"}
	session, err := client.Connect(ctx, transport)
	if err != nil {
		connRes.Error = err.Error()
		connRes.ElapsedMs = elapsedMsSince(tConn)
		report.Steps = append(steps, connRes)
		report.DurationMs = elapsedMsSince(start)
		writeReport(report)
		os.Exit(1)
	}
	defer session.Close()
	connRes.Success = true
	connRes.ElapsedMs = elapsedMsSince(tConn)
	steps = append(steps, connRes)

	p := apptype.ProjectArgs{ProjectName: *project}
	steps = append(steps, runListTools(ctx, session))
	steps = append(steps, runTool(ctx, session, "describe_schema", apptype.DescribeSchemaArgs{Kind: "doc"}))

	createRes, urn := runCreate(ctx, session, apptype.CreateEntityArgs{
		ProjectArgs: p,
		Kind:        "doc",
		Values:      map[string]any{"path": "/integration/report.pdf", "title": "Integration report", "pages": 3},
	})
	steps = append(steps, createRes)

	// Value tools run against the entity just created
	steps = append(steps, runTool(ctx, session, "add_value", apptype.ValueArgs{ProjectArgs: p, Kind: "doc", URN: urn, Attribute: "tag", Value: "integration"}))
	steps = append(steps, runTool(ctx, session, "add_value", apptype.ValueArgs{ProjectArgs: p, Kind: "doc", URN: urn, Attribute: "tag", Value: "sse"}))
	steps = append(steps, runTool(ctx, session, "set_value", apptype.ValueArgs{ProjectArgs: p, Kind: "doc", URN: urn, Attribute: "pages", Value: 4}))
	steps = append(steps, runTool(ctx, session, "get_value", apptype.GetValueArgs{ProjectArgs: p, Kind: "doc", URN: urn, Attribute: "pages"}))
	steps = append(steps, runTool(ctx, session, "change_entity", apptype.ChangeEntityArgs{
		ProjectArgs: p, Kind: "doc", URN: urn,
		Values: map[string]any{"title": "Integration report (final)", "tag": []string{"final"}},
	}))
	steps = append(steps, runTool(ctx, session, "read_entity", apptype.ReadEntityArgs{ProjectArgs: p, Kind: "doc", URN: urn}))
	steps = append(steps, runTool(ctx, session, "delete_value", apptype.DeleteValueArgs{ProjectArgs: p, Kind: "doc", URN: urn, Attribute: "tag", Value: "sse"}))
	steps = append(steps, runTool(ctx, session, "delete_value", apptype.DeleteValueArgs{ProjectArgs: p, Kind: "doc", URN: urn, Attribute: "tag"}))
	steps = append(steps, runExpectFailure(ctx, session, "set_value", apptype.ValueArgs{ProjectArgs: p, Kind: "doc", URN: urn, Attribute: "pages", Value: "four"}))
	steps = append(steps, runTool(ctx, session, "health_check", apptype.HealthArgs{ProjectArgs: p}))

	// finalize report
	report.Steps = steps
	report.DurationMs = elapsedMsSince(start)
	report.Passed = true
	for _, s := range steps {
		if !s.Success {
			report.Passed = false
			break
		}
	}
	writeReport(report)

	if !report.Passed {
		os.Exit(1)
	}
}

func writeReport(report Report) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}

func runListTools(ctx context.Context, session *mcp.ClientSession) StepResult {
	t0 := time.Now()
	res := StepResult{Name: "list_tools"}
	if _, err := session.ListTools(ctx, &mcp.ListToolsParams{}); err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

func callTool(ctx context.Context, session *mcp.ClientSession, name string, args any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	out, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: json.RawMessage(raw)})
	if err != nil {
		return nil, err
	}
	if out.IsError {
		return out, fmt.Errorf("%s failed: %s", name, resultText(out))
	}
	return out, nil
}

func runTool(ctx context.Context, session *mcp.ClientSession, name string, args any) StepResult {
	t0 := time.Now()
	res := StepResult{Name: name}
	if _, err := callTool(ctx, session, name, args); err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

// runExpectFailure passes when the server refuses the call.
func runExpectFailure(ctx context.Context, session *mcp.ClientSession, name string, args any) StepResult {
	t0 := time.Now()
	res := StepResult{Name: name + "_rejected"}
	if _, err := callTool(ctx, session, name, args); err != nil {
		res.Success = true
	} else {
		res.Error = "expected the call to be rejected"
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

func runCreate(ctx context.Context, session *mcp.ClientSession, args apptype.CreateEntityArgs) (StepResult, string) {
	t0 := time.Now()
	res := StepResult{Name: "create_entity"}
	out, err := callTool(ctx, session, "create_entity", args)
	var urn string
	if err == nil {
		urn = strings.TrimSpace(strings.TrimPrefix(resultText(out), "Created "))
		if urn == "" {
			err = fmt.Errorf("create_entity returned no urn")
		}
	}
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res, urn
}

func resultText(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// elapsedMsSince returns max(1ms, elapsed) to avoid zero durations on fast steps
func elapsedMsSince(t0 time.Time) int64 {
	d := time.Since(t0) / time.Millisecond
	if d <= 0 {
		return 1
	}
	return int64(d)
}
