package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.json>",
		Short: `Analyze a batch file shaped like {"articles": [{"id": ..., "content": ...}]}`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.WrapError(err, "failed to read batch file %s", args[0])
			}

			var req types.BatchRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return errors.NewValidationError("Invalid batch file", err)
			}
			if req.Articles == nil {
				return errors.NewValidationError("Missing 'articles' field in batch file")
			}

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer errors.SafeClose(rt, "model runtime")

			return writeJSON(cmd, rt.Analyzer.AnalyzeBatch(commandContext(cmd), *req.Articles))
		},
	}
}
