package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/umutugur/mintly-advisor/internal/advisor"
)

func insightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insight <user-id> [month]",
		Short: "Generate the advisor insight for a user's month",
		Long: `Aggregate the user's finances for the given month (YYYY-MM, default:
the current month) and print the full insight document as JSON.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runInsight,
	}

	cmd.Flags().String("language", "en", "output language (en, tr)")
	cmd.Flags().Bool("regenerate", false, "skip the cache and rebuild the insight")
	cmd.Flags().String("policy", "merge", "validation policy for provider output (strict, merge)")

	return cmd
}

func runInsight(cmd *cobra.Command, args []string) error {
	userID := args[0]
	month := time.Now().UTC().Format("2006-01")
	if len(args) > 1 {
		month = args[1]
	}

	language, _ := cmd.Flags().GetString("language")
	regenerate, _ := cmd.Flags().GetBool("regenerate")
	policy, _ := cmd.Flags().GetString("policy")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	service, err := initService(store, policy)
	if err != nil {
		return err
	}

	insight, err := service.GenerateInsight(ctx, advisor.Request{
		UserID:     userID,
		Month:      month,
		Language:   language,
		Regenerate: regenerate,
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(insight, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode insight: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
