package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/foxseedlab/mogimensetsu/internal/evaluation"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <session-id>",
	Short: "Evaluate a closed session synchronously",
	Long: `Run the evaluation pipeline for one session in the foreground.
Results are upserted, so re-running a failed or finished session is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || sessionID <= 0 {
			return fmt.Errorf("invalid session id %q", args[0])
		}

		injector := setupDI(loadedConfig)
		pool, err := do.Invoke[*pgxpool.Pool](injector)
		if err != nil {
			return err
		}
		defer pool.Close()
		orchestrator, err := do.Invoke[*evaluation.Orchestrator](injector)
		if err != nil {
			return err
		}

		outcome, err := orchestrator.Evaluate(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"session_id":     sessionID,
			"status":         outcome.Status,
			"result":         outcome.Result,
			"score_change":   outcome.ScoreChange,
			"question_count": outcome.QuestionCount,
		})
	},
}
