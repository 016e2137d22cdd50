// Package mcpserver exposes the skill graph over the Model Context
// Protocol. This is the composition root: it creates the server
// instance and registers the three disclosure tools. No graph logic
// lives here; everything delegates to the orchestrator.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/orchestrator"
	"github.com/skillmesh/skillmesh/pkg/version"
)

// New creates the MCP server with all skill tools registered. The
// principal is fixed per server instance: stdio transport carries one
// client, authenticated at startup.
func New(orch *orchestrator.Orchestrator, principal graph.Principal) *server.MCPServer {
	s := server.NewMCPServer(
		"skillmesh",
		version.Get().Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	findTool := NewFindSkillTool(orch, principal)
	s.AddTool(findTool.Definition(), findTool.Handle)

	listTool := NewListSubSkillsTool(orch, principal)
	s.AddTool(listTool.Definition(), listTool.Handle)

	loadTool := NewLoadInstructionTool(orch, principal)
	s.AddTool(loadTool.Definition(), loadTool.Handle)

	return s
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func serverInstructions() string {
	return `You have access to skillmesh, a skill graph server with progressive disclosure.

Skills are organized as a graph of folders and leaves. Folders group related
skills; leaves carry the actual instruction content. To keep your context
small, content is disclosed in three phases:

1. find_relevant_skill(query) — semantic search. Returns ranked skill ids
   and one-line summaries only. Start here when you need a capability.
2. list_sub_skills(skill_id) — when a result is a folder, list its
   sub-skills (ids and summaries) and pick the one that fits.
3. load_instruction(skill_id) — fetch the full instruction content of the
   chosen skill. Only call this for the skill you will actually use.

Rules:
- Never call load_instruction on every search result; narrow down first.
- Folders may nest. Repeat list_sub_skills until you reach a leaf.
- If a tool reports access denied, you are not granted that skill subtree;
  pick another result instead of retrying.`
}
