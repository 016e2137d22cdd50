package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/orchestrator"
	"github.com/skillmesh/skillmesh/pkg/presenter"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage skill nodes",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

var skillUpsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Create or update a skill node",
	Long: `Create or update a skill node. The summary is re-embedded on every
upsert, so updating the summary also updates discovery ranking. Child
references may point at ids that do not exist yet; they are skipped by
traversal until the children are created.`,
	Run: func(cmd *cobra.Command, _ []string) {
		runSkillUpsertCommand(cmd.Context(), cmd)
	},
}

var skillGetCmd = &cobra.Command{
	Use:   "get [skill-id]",
	Short: "Print a skill node as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSkillGetCommand(cmd.Context(), args[0])
	},
}

var skillDeleteCmd = &cobra.Command{
	Use:   "delete [skill-id]",
	Short: "Delete a skill node",
	Long: `Delete a skill node. References from other nodes are left in place
and skipped by traversal; deleting a folder does not delete its children.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSkillDeleteCommand(cmd.Context(), args[0])
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all skill nodes",
	Run: func(cmd *cobra.Command, _ []string) {
		runSkillListCommand(cmd.Context())
	},
}

var skillTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the skill graph as a tree",
	Run: func(cmd *cobra.Command, _ []string) {
		runSkillTreeCommand(cmd.Context())
	},
}

var skillImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import skill nodes from a YAML seed file",
	Long: `Import skill nodes from a YAML file containing a list of nodes:

  - skill_id: SQL_SKILL
    summary: sql database skills
    is_folder: true
    sub_skills: [SQL_SKILL_MIGRATION]
  - skill_id: SQL_SKILL_MIGRATION
    summary: sql database schema migration
    instruction: |
      # Migration guide
      ...

Importing the same file twice is a no-op apart from refreshed embeddings.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSkillImportCommand(cmd.Context(), args[0])
	},
}

func init() {
	skillUpsertCmd.Flags().String("id", "", "Skill id (required)")
	skillUpsertCmd.Flags().String("summary", "", "One-line summary used for discovery")
	skillUpsertCmd.Flags().String("payload", "", "Instruction content")
	skillUpsertCmd.Flags().String("payload-file", "", "Read instruction content from a file")
	skillUpsertCmd.Flags().Bool("folder", false, "Mark the node as a folder")
	skillUpsertCmd.Flags().StringSlice("children", nil, "Child skill ids")
	skillUpsertCmd.MarkFlagRequired("id")

	skillCmd.AddCommand(skillUpsertCmd)
	skillCmd.AddCommand(skillGetCmd)
	skillCmd.AddCommand(skillDeleteCmd)
	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillTreeCmd)
	skillCmd.AddCommand(skillImportCmd)
}

func runSkillUpsertCommand(ctx context.Context, cmd *cobra.Command) {
	id, _ := cmd.Flags().GetString("id")
	summary, _ := cmd.Flags().GetString("summary")
	payload, _ := cmd.Flags().GetString("payload")
	payloadFile, _ := cmd.Flags().GetString("payload-file")
	folder, _ := cmd.Flags().GetBool("folder")
	children, _ := cmd.Flags().GetStringSlice("children")

	if payloadFile != "" {
		content, err := os.ReadFile(payloadFile)
		if err != nil {
			presenter.Error(err, "failed to read payload file")
			os.Exit(1)
		}
		payload = string(content)
	}

	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	node := &graph.Node{
		ID:       id,
		Summary:  summary,
		IsFolder: folder,
		Children: children,
		Payload:  payload,
	}
	if err := eng.orch.Upsert(ctx, node); err != nil {
		presenter.Error(err, "failed to upsert skill")
		os.Exit(1)
	}
	presenter.Success(fmt.Sprintf("upserted skill %s", id))
}

func runSkillGetCommand(ctx context.Context, id string) {
	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	node, err := eng.orch.FetchInstruction(ctx, id, graph.Principal{Name: "local-admin", Wildcard: true})
	if err != nil {
		presenter.Error(err, "failed to get skill")
		os.Exit(1)
	}

	encoded, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		presenter.Error(err, "failed to encode skill")
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}

func runSkillDeleteCommand(ctx context.Context, id string) {
	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	if err := eng.orch.Delete(ctx, id); err != nil {
		presenter.Error(err, "failed to delete skill")
		os.Exit(1)
	}
	presenter.Success(fmt.Sprintf("deleted skill %s", id))
}

func runSkillListCommand(ctx context.Context) {
	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	all, err := eng.orch.ListAll(ctx)
	if err != nil {
		presenter.Error(err, "failed to list skills")
		os.Exit(1)
	}
	if len(all) == 0 {
		presenter.Info("no skills")
		return
	}

	presenter.Section(fmt.Sprintf("Skills (%d)", len(all)))
	for _, summary := range all {
		kind := "skill"
		if summary.IsFolder {
			kind = "folder"
		}
		presenter.Info(fmt.Sprintf("%-30s %-8s %s", summary.ID, kind, summary.Summary))
	}
}

func runSkillTreeCommand(ctx context.Context) {
	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	forest, err := eng.orch.BuildTree(ctx)
	if err != nil {
		presenter.Error(err, "failed to build tree")
		os.Exit(1)
	}
	if len(forest) == 0 {
		presenter.Info("no skills")
		return
	}
	for _, root := range forest {
		printTree(root, 0)
	}
}

func printTree(node *orchestrator.TreeNode, depth int) {
	marker := ""
	if node.IsFolder {
		marker = "/"
	}
	presenter.Info(fmt.Sprintf("%s%s%s - %s", strings.Repeat("  ", depth), node.ID, marker, node.Summary))
	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}

func runSkillImportCommand(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		presenter.Error(err, "failed to read seed file")
		os.Exit(1)
	}

	var nodes []graph.Node
	if err := yaml.Unmarshal(content, &nodes); err != nil {
		presenter.Error(errors.Wrap(err, "seed file must be a YAML list of nodes"), "failed to parse seed file")
		os.Exit(1)
	}
	if len(nodes) == 0 {
		presenter.Warning("seed file contains no nodes")
		return
	}

	eng, err := newEngine(ctx)
	if err != nil {
		presenter.Error(err, "failed to initialize engine")
		os.Exit(1)
	}
	defer eng.Close()

	for i := range nodes {
		node := nodes[i]
		if err := eng.orch.Upsert(ctx, &node); err != nil {
			presenter.Error(err, fmt.Sprintf("failed to import skill %s", node.ID))
			os.Exit(1)
		}
	}
	presenter.Success(fmt.Sprintf("imported %d skills from %s", len(nodes), path))
}
