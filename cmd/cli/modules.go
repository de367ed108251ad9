package cli

import (
	"fmt"

	"github.com/canopy-network/spectroscope/module"
	"github.com/canopy-network/spectroscope/module/builtin"
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "list the available module types and their options",
	Run: func(cmd *cobra.Command, args []string) {
		registry, err := builtin.NewRegistry(module.Deps{Logger: l})
		if err != nil {
			l.Fatal(err.Error())
		}
		for _, f := range registry.Factories() {
			fmt.Printf("%s [%s]\n", f.Type, f.Role)
			for _, line := range f.Describe() {
				fmt.Printf("  %s\n", line)
			}
		}
	},
}
