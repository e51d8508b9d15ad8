// cmd/askora/registry.go
package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"askora/pkg/registry"

	"github.com/spf13/cobra"
)

var registryFile string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the activity registry",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TASK TYPE\tCATEGORY\tTIMEOUT\tRETRIES\tSTATUS")
		for _, a := range reg.Activities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", a.TaskType, a.Category, a.Timeout, a.Retries, a.ImplementationStatus)
		}
		return w.Flush()
	},
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the registry and check every task type has a handler",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		if missing := missingHandlers(reg); len(missing) > 0 {
			return fmt.Errorf("no handler for task types: %s", strings.Join(missing, ", "))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registry ok: %d activities\n", len(reg.Activities))
		return nil
	},
}

func init() {
	registryCmd.PersistentFlags().StringVarP(&registryFile, "file", "f", "", "registry JSON file (defaults to the embedded registry)")
	registryCmd.AddCommand(registryListCmd, registryValidateCmd)
	rootCmd.AddCommand(registryCmd)
}

func openRegistry() (*registry.ActivityRegistry, error) {
	if registryFile == "" {
		return registry.Default()
	}
	return registry.LoadRegistry(registryFile)
}

func missingHandlers(reg *registry.ActivityRegistry) []string {
	known := make(map[string]bool, len(stageTaskTypes))
	for _, t := range stageTaskTypes {
		known[t] = true
	}
	var missing []string
	for _, t := range reg.TaskTypes() {
		if !known[t] {
			missing = append(missing, t)
		}
	}
	sort.Strings(missing)
	return missing
}
