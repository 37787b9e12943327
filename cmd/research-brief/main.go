package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/research-brief/pkg/clients"
	"github.com/mikeboe/research-brief/pkg/config"
	"github.com/mikeboe/research-brief/pkg/research"
	"github.com/mikeboe/research-brief/pkg/search"
)

var (
	query      string
	numResults int
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "research-brief",
		Short: "A terminal-based research agent",
		Long:  `research-brief decomposes a research query into steps, searches the web per step, and synthesizes a cited brief through a Plan-Research-Write-Review pipeline.`,
		Run: func(cmd *cobra.Command, args []string) {

			queryFlagChanged := cmd.Flags().Changed("query")

			if !queryFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research query: ")
				input, _ := reader.ReadString('\n')
				query = strings.TrimSpace(input)
				if query == "" {
					slog.Error("Query cannot be empty")
					os.Exit(1)
				}
			} else if query == "" {
				slog.Error("--query flag provided but empty")
				os.Exit(1)
			}

			ctx := context.Background()

			completion, err := clients.NewCompletion(ctx, cfg.LLMProvider, cfg.ModelName)
			if err != nil {
				slog.Error("Failed to init LLM provider", "error", err)
				os.Exit(1)
			}

			searchPort, err := search.New(cfg.SearchProvider)
			if err != nil {
				slog.Error("Failed to init search provider", "error", err)
				os.Exit(1)
			}

			runCfg := research.DefaultConfig()
			if numResults >= 1 && numResults <= 8 {
				runCfg.NumResults = numResults
			}
			runCfg.MaxConcurrentSearches = cfg.MaxConcurrentSearches
			runCfg.SemanticReview = cfg.SemanticReview

			orch := research.New(completion, searchPort, runCfg)

			result, err := orch.Run(ctx, query)
			if err != nil {
				slog.Error("Research run failed", "stage", result.FailedStage, "error", err)
				os.Exit(1)
			}

			fmt.Println("\n=== Research Brief ===")
			fmt.Println(result.Brief)
			if len(result.References) > 0 {
				fmt.Println("\n=== References ===")
				for _, ref := range result.References {
					fmt.Printf("[%d] %s\n", ref.Index, ref.URL)
				}
			}
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "The research query")
	rootCmd.Flags().IntVarP(&numResults, "results", "n", 5, "Search results per step (1-8)")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
