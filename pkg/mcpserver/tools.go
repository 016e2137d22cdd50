package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/logger"
	"github.com/skillmesh/skillmesh/pkg/orchestrator"
)

// FindSkillTool is the discovery phase: semantic search over skill
// summaries, returning minimal projections.
type FindSkillTool struct {
	orch      *orchestrator.Orchestrator
	principal graph.Principal
}

// NewFindSkillTool creates the discovery tool.
func NewFindSkillTool(orch *orchestrator.Orchestrator, principal graph.Principal) *FindSkillTool {
	return &FindSkillTool{orch: orch, principal: principal}
}

// Definition describes the tool to MCP clients.
func (t *FindSkillTool) Definition() mcp.Tool {
	return mcp.NewTool("find_relevant_skill",
		mcp.WithDescription("Semantically search the skill graph. Returns ranked skill ids with one-line summaries; no instruction content. Folders can be expanded with list_sub_skills."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language description of the capability you need"),
		),
		mcp.WithNumber("top_k",
			mcp.Description(fmt.Sprintf("How many results to return (default %d)", orchestrator.DefaultK)),
		),
	)
}

// Handle runs discovery and renders the accessible hits.
func (t *FindSkillTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query cannot be empty"), nil
	}
	k := request.GetInt("top_k", orchestrator.DefaultK)

	hits, err := t.orch.Discover(ctx, query, k, t.principal)
	if errors.Is(err, graph.ErrNoMatch) {
		return mcp.NewToolResultText("No skills matched the query."), nil
	}
	if err != nil {
		return internalToolError(ctx, err, "find_relevant_skill"), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No accessible skills matched the query."), nil
	}

	var sb strings.Builder
	for i, hit := range hits {
		kind := "skill"
		if hit.IsFolder {
			kind = "folder"
		}
		fmt.Fprintf(&sb, "%d. %s (%s, score %.3f): %s\n", i+1, hit.ID, kind, hit.Score, hit.Summary.Summary)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ListSubSkillsTool is the navigation phase: expand a folder into its
// direct children.
type ListSubSkillsTool struct {
	orch      *orchestrator.Orchestrator
	principal graph.Principal
}

// NewListSubSkillsTool creates the navigation tool.
func NewListSubSkillsTool(orch *orchestrator.Orchestrator, principal graph.Principal) *ListSubSkillsTool {
	return &ListSubSkillsTool{orch: orch, principal: principal}
}

// Definition describes the tool to MCP clients.
func (t *ListSubSkillsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_sub_skills",
		mcp.WithDescription("List the direct sub-skills of a folder skill: ids, summaries, and whether each is itself a folder. No instruction content."),
		mcp.WithString("skill_id",
			mcp.Required(),
			mcp.Description("Id of the folder skill to expand"),
		),
	)
}

// Handle lists the children of the requested node.
func (t *ListSubSkillsTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("skill_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	children, err := t.orch.ListChildren(ctx, id, t.principal)
	if errors.Is(err, graph.ErrAccessDenied) {
		return mcp.NewToolResultError(fmt.Sprintf("access denied to skill %s", id)), nil
	}
	if errors.Is(err, graph.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("skill %s not found", id)), nil
	}
	if err != nil {
		return internalToolError(ctx, err, "list_sub_skills"), nil
	}
	if len(children) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Skill %s has no sub-skills; call load_instruction to get its content.", id)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sub-skills of %s:\n", id)
	for _, child := range children {
		kind := "skill"
		if child.IsFolder {
			kind = "folder"
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", child.ID, kind, child.Summary)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// LoadInstructionTool is the fetch phase: the only tool that returns
// instruction content.
type LoadInstructionTool struct {
	orch      *orchestrator.Orchestrator
	principal graph.Principal
}

// NewLoadInstructionTool creates the fetch tool.
func NewLoadInstructionTool(orch *orchestrator.Orchestrator, principal graph.Principal) *LoadInstructionTool {
	return &LoadInstructionTool{orch: orch, principal: principal}
}

// Definition describes the tool to MCP clients.
func (t *LoadInstructionTool) Definition() mcp.Tool {
	return mcp.NewTool("load_instruction",
		mcp.WithDescription("Load the full instruction content of a skill. Call only after narrowing down with find_relevant_skill and list_sub_skills."),
		mcp.WithString("skill_id",
			mcp.Required(),
			mcp.Description("Id of the skill whose instruction to load"),
		),
	)
}

// Handle fetches the node payload.
func (t *LoadInstructionTool) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("skill_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	node, err := t.orch.FetchInstruction(ctx, id, t.principal)
	if errors.Is(err, graph.ErrAccessDenied) {
		return mcp.NewToolResultError(fmt.Sprintf("access denied to skill %s", id)), nil
	}
	if errors.Is(err, graph.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("skill %s not found", id)), nil
	}
	if err != nil {
		return internalToolError(ctx, err, "load_instruction"), nil
	}

	if node.IsFolder && len(node.Children) > 0 {
		payload := map[string]any{
			"skill_id":   node.ID,
			"summary":    node.Summary,
			"is_folder":  true,
			"sub_skills": node.Children,
			"hint":       "this is a folder; call list_sub_skills and pick a sub-skill",
		}
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return internalToolError(ctx, err, "load_instruction"), nil
		}
		return mcp.NewToolResultText(string(encoded)), nil
	}

	if node.Payload == "" {
		return mcp.NewToolResultText(fmt.Sprintf("Skill %s has no instruction content.", id)), nil
	}
	return mcp.NewToolResultText(node.Payload), nil
}

// internalToolError logs the detail and returns a generic tool error so
// internals never leak to the client.
func internalToolError(ctx context.Context, err error, tool string) *mcp.CallToolResult {
	logger.G(ctx).WithError(err).WithField("tool", tool).Error("tool execution failed")
	return mcp.NewToolResultError("internal error, see server logs")
}
