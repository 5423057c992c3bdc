// Command hola runs a declarative host-configuration recipe to
// convergence: it loads a YAML recipe, validates every resource, then
// applies them in declaration order, dispatching notifications as it goes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "hola",
		Short: "converge a host to the state declared in a recipe",
	}
	root.PersistentFlags().String("config", "", "path to an engine config file (defaults loaded if empty)")
	root.AddCommand(newApplyCmd())
	root.AddCommand(newValidateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
