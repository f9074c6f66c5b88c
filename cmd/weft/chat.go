package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/parallaxfi/weft/agent"
	"github.com/parallaxfi/weft/internal/utils"
	"github.com/parallaxfi/weft/providers/ai/openrouter"
	"github.com/parallaxfi/weft/providers/collab"
	"github.com/parallaxfi/weft/providers/tool"
	"github.com/parallaxfi/weft/providers/tool/websearch"
)

const systemPrompt = `You are a DeFi strategy composer. You build directed graphs of
financial operations (wallets, spot and perp trades, options, LPs, lending,
vaults, Pendle positions, cross-chain movements and allocation optimizers)
connected by token-flow edges, using the canvas tools available to you.
Prefer small incremental edits, run auto_layout after structural changes,
and validate before suggesting a backtest or live run.`

// cmdContext returns the base context for one-shot commands.
func cmdContext() context.Context {
	return context.Background()
}

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Edit the strategy canvas through a conversational agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			observer := newObserver(cfg)

			graphStore, closeStore, err := newStore(cfg, observer)
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

			catalog := tool.NewCatalog()
			agent.RegisterTools(catalog, graphStore, services)
			catalog.AddTools(websearch.New())

			provider := openrouter.New().WithModel(cfg.Model)
			if cfg.OpenRouterAPIKey != "" {
				provider.WithAPIKey(cfg.OpenRouterAPIKey)
			}
			if cfg.OpenRouterURL != "" {
				provider.WithBaseURL(cfg.OpenRouterURL)
			}

			assistant := color.New(color.FgCyan)
			toolLine := color.New(color.FgYellow)
			prompt := color.New(color.FgGreen, color.Bold)

			runtime := agent.New(provider, catalog,
				agent.WithSystemPrompt(systemPrompt),
				agent.WithModel(cfg.Model),
				agent.WithMaxIterations(cfg.MaxIterations),
				agent.WithStore(graphStore),
				agent.WithObserver(observer),
				agent.WithOnText(func(delta string) {
					assistant.Print(delta)
				}),
				agent.WithOnTool(func(activity agent.ToolActivity) {
					switch activity.Status {
					case agent.ToolRunning:
						toolLine.Printf("\n[%s] running...\n", activity.Name)
					case agent.ToolError:
						toolLine.Printf("[%s] error: %s\n", activity.Name, activity.Result)
					default:
						toolLine.Printf("[%s] done\n", activity.Name)
					}
				}),
			)

			fmt.Printf("weft chat — strategy %q (%d nodes). Ctrl+C interrupts a turn, 'show' prints the canvas, 'exit' quits.\n",
				graphStore.Name(), len(graphStore.Nodes()))

			scanner := bufio.NewScanner(os.Stdin)
			for {
				prompt.Print("\nyou> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					return nil
				}
				if line == "show" {
					fmt.Println(utils.JSONToString(graphStore.ExportDocument(), true))
					continue
				}

				turnCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				message, err := runtime.Send(turnCtx, line)
				stop()

				fmt.Println()
				if err != nil {
					if errors.Is(err, agent.ErrRateLimited) {
						toolLine.Println("rate limited, try again shortly:", err)
						continue
					}
					return err
				}
				if message.Aborted {
					toolLine.Println("(turn interrupted)")
				}
			}
		},
	}
}
