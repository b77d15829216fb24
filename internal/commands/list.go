package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/logging"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/models"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/services"
)

// Planned actions shown by list
const (
	actionUpdate    = "update"
	actionSkip      = "skip"
	actionIgnore    = "ignore"
	actionDuplicate = "duplicate"

	actionWidth = len(actionDuplicate)
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show what an update would do",
		Long: `Fetch all models and print the planned action for each one without sending
any update. Use it to check credentials and the target model before a run.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// logs go to stderr so the table can be piped
	logger := logging.Init(cmd.ErrOrStderr(), cfg.Debug)

	client := services.NewOpenWebUIClient(cfg, logger, nil)
	records, err := services.FetchCollection(cmd.Context(), client, cfg, logger)
	if err != nil {
		if errors.Is(err, services.ErrNoModels) {
			fmt.Fprintln(cmd.OutOrStdout(), "No models found")
			return nil
		}
		return err
	}

	printPlan(cmd.OutOrStdout(), cfg, records)
	return nil
}

func printPlan(w io.Writer, cfg *config.Config, records []*models.Model) {
	renderer := lipgloss.NewRenderer(w)
	header := renderer.NewStyle().Bold(true)
	styles := map[string]lipgloss.Style{
		actionUpdate:    renderer.NewStyle().Foreground(lipgloss.Color("#64d2ff")),
		actionSkip:      renderer.NewStyle().Foreground(lipgloss.Color("#30d158")),
		actionIgnore:    renderer.NewStyle().Foreground(lipgloss.Color("#808080")),
		actionDuplicate: renderer.NewStyle().Foreground(lipgloss.Color("#ffd60a")),
	}

	fmt.Fprintln(w, header.Render(fmt.Sprintf("Target model: %s", cfg.TargetModel)))
	fmt.Fprintln(w)

	counts := map[string]int{}
	seen := map[string]bool{}
	for i, m := range records {
		action, detail := planAction(m, cfg.TargetModel, seen)
		counts[action]++
		pad := strings.Repeat(" ", actionWidth-len(action))
		fmt.Fprintf(w, "%d. %s%s %s\n", i+1, styles[action].Render(action), pad, detail)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d models (%d to update, %d already on target, %d ignored)\n",
		len(records), counts[actionUpdate], counts[actionSkip], counts[actionIgnore]+counts[actionDuplicate])
}

func planAction(m *models.Model, target string, seen map[string]bool) (string, string) {
	plan, err := services.PlanUpdate(m, target)
	if err != nil {
		return actionIgnore, "(missing ID)"
	}
	label := fmt.Sprintf("%s [%s]", m.ID, m.Name)
	if m.Name == "" {
		label = m.ID
	}
	if seen[m.ID] {
		return actionDuplicate, label
	}
	seen[m.ID] = true

	if plan.AlreadyAtTarget {
		return actionSkip, label
	}
	current := m.BaseModelID
	if current == "" {
		current = "(none)"
	}
	return actionUpdate, fmt.Sprintf("%s: %s -> %s", label, current, target)
}
