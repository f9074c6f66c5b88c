package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/parallaxfi/weft/core/workflow"
	"github.com/parallaxfi/weft/providers/collab"
)

func newExportCommand() *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved strategy as a workflow document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			graphStore, closeStore, err := newStore(cfg, newObserver(cfg))
			if err != nil {
				return err
			}
			defer func() {
				graphStore.Close()
				if closeStore != nil {
					_ = closeStore()
				}
			}()

			doc := graphStore.ExportDocument()
			encoded, err := doc.Encode()
			if err != nil {
				return err
			}
			if outputPath == "" {
				fmt.Println(string(encoded))
				return nil
			}
			if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %q (%d nodes, %d edges)\n", outputPath, len(doc.Nodes), len(doc.Edges))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "file to write (stdout when omitted)")
	return cmd
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the saved strategy with a workflow document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := workflow.Decode(data)
			if err != nil {
				return err
			}

			graphStore, closeStore, err := newStore(cfg, newObserver(cfg))
			if err != nil {
				return err
			}
			defer func() {
				graphStore.Close()
				if closeStore != nil {
					_ = closeStore()
				}
			}()

			if err := graphStore.ImportDocument(doc); err != nil {
				return err
			}
			graphStore.ApplyLayout()
			fmt.Printf("imported %q: %d nodes, %d edges\n",
				graphStore.Name(), len(graphStore.Nodes()), len(graphStore.Edges()))
			return nil
		},
	}
}

func newLayoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Recompute node positions for the saved strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			graphStore, closeStore, err := newStore(cfg, newObserver(cfg))
			if err != nil {
				return err
			}
			defer func() {
				graphStore.Close()
				if closeStore != nil {
					_ = closeStore()
				}
			}()

			graphStore.ApplyLayout()
			graphStore.Autosave(true)
			fmt.Printf("layout applied to %d nodes\n", len(graphStore.Nodes()))
			return nil
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the structural validator against the saved strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			graphStore, closeStore, err := newStore(cfg, newObserver(cfg))
			if err != nil {
				return err
			}
			defer func() {
				graphStore.Close()
				if closeStore != nil {
					_ = closeStore()
				}
			}()

			services := collab.New()
			if cfg.ServicesURL != "" {
				services.WithBaseURL(cfg.ServicesURL)
			}
			if cfg.ServicesAPIKey != "" {
				services.WithAPIKey(cfg.ServicesAPIKey)
			}

			result, err := services.Validate(cmd.Context(), graphStore.ExportDocument())
			if err != nil {
				return err
			}

			if result.Valid {
				color.Green("valid: no issues found")
				return nil
			}
			for _, issue := range result.Issues {
				if issue.NodeID != "" {
					color.Red("%s [%s]: %s", issue.Severity, issue.NodeID, issue.Message)
				} else {
					color.Red("%s: %s", issue.Severity, issue.Message)
				}
			}
			return fmt.Errorf("validation found %d issues", len(result.Issues))
		},
	}
}
