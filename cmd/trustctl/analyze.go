package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Analyze one article read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readArticle(cmd, args)
			if err != nil {
				return err
			}

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer errors.SafeClose(rt, "model runtime")

			ctx := commandContext(cmd)
			if rt.Config.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, rt.Config.RequestTimeout)
				defer cancel()
			}

			result, err := rt.Analyzer.Analyze(ctx, content)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
}

func readArticle(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.WrapError(err, "failed to read article from stdin")
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", errors.WrapError(err, "failed to read article %s", args[0])
	}
	return string(data), nil
}
