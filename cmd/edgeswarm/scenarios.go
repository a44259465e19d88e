package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgeswarm/edgeswarm/pkg/scenario"
	"github.com/edgeswarm/edgeswarm/pkg/workload"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List built-in scenarios and registered workloads",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Built-in scenarios:")
		for _, name := range scenario.Builtins() {
			sc, err := scenario.Lookup(name)
			if err != nil {
				continue
			}
			pool := ""
			if len(sc.Pool) > 0 {
				pool = fmt.Sprintf(" [pool of %d]", len(sc.Pool))
			}
			fmt.Printf("  %-20s %s (%d users)%s\n", name, sc.Description, sc.Users, pool)
		}
		fmt.Println("\nRegistered workloads:")
		for _, name := range workload.Names() {
			fmt.Printf("  %s\n", name)
		}
	},
}
