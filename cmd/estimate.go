package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/chargeflow/chargeflow/core/estimate"
	"github.com/chargeflow/chargeflow/core/registry"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <ev-id> <evse-id>",
	Short: "Estimate a reservation against the seeded registry",
	Args:  cobra.ExactArgs(2),
	RunE:  runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	reg := registry.NewMemoryRegistry()
	if err := registry.Seed(reg); err != nil {
		return err
	}
	v, err := reg.Vehicle(args[0])
	if err != nil {
		return err
	}
	e, err := reg.Get(args[1])
	if err != nil {
		// Seeded charge points carry generated ids; accept the name too.
		found := false
		for _, cand := range reg.List() {
			if cand.Name == args[1] {
				e, found = cand, true
				break
			}
		}
		if !found {
			return err
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(estimate.Estimate(v, e))
}
