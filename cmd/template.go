package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/prompted/internal/model"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"t"},
	Short:   "List and delete templates on the server",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE:  runTemplateList,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

func init() {
	templateListCmd.Flags().String("search", "", "only templates whose title, content or description contains this text")
	templateListCmd.Flags().Bool("favorites", false, "only favorites")
	templateListCmd.Flags().Bool("recent", false, "the 10 most recently updated")
	templateListCmd.Flags().Int64("folder", 0, "only templates in this folder id")
	templateDeleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	rootCmd.AddCommand(templateCmd)
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	var opts model.ListOptions
	opts.Search, _ = cmd.Flags().GetString("search")
	opts.Favorites, _ = cmd.Flags().GetBool("favorites")
	opts.Recent, _ = cmd.Flags().GetBool("recent")
	opts.FolderID, _ = cmd.Flags().GetInt64("folder")

	list, err := newGateway(cfg, logger).ListTemplates(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No templates found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tFOLDER\tFAV\tCHARS\tUPDATED")
	for _, t := range list {
		title := t.Title
		if r := []rune(title); len(r) > 50 {
			title = string(r[:47]) + "..."
		}
		folder := t.FolderName
		if folder == "" {
			folder = "-"
		}
		fav := ""
		if t.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			t.ID, title, folder, fav, t.ContentLength, t.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid template id %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	gw := newGateway(cfg, logger)
	ctx := context.Background()

	t, err := gw.GetTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up template %d: %w", id, err)
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Delete %q", t.Title),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := gw.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("deleting template %d: %w", id, err)
	}
	fmt.Printf("Deleted template %d (%s)\n", id, t.Title)
	return nil
}
