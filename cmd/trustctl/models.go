package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/orbis-trust/internal/errors"
	"github.com/ZanzyTHEbar/orbis-trust/internal/types"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models that loaded into the ensemble",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer errors.SafeClose(rt, "model runtime")

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tKIND\tWEIGHT")
			for _, name := range rt.Analyzer.ModelNames() {
				health, _ := rt.Health.GetModelHealth(name)
				kind := types.KindClassical
				if health.Kind == types.KindTransformer.String() {
					kind = types.KindTransformer
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", name, kind, kind.VoteWeight())
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nmodels loaded: %d, transformer available: %t, device: %s\n",
				rt.Analyzer.ModelsLoaded(), rt.TransformerAvailable, rt.Device)
			return nil
		},
	}
}
