package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/rfe/internal/personas"
	"github.com/example/rfe/internal/wire"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List available agent personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := wire.Configuration()

		var registry *personas.Registry
		var err error
		if cfg.PersonasFile != "" {
			registry, err = personas.LoadFile(cfg.PersonasFile)
		} else {
			registry, err = personas.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load personas: %w", err)
		}

		fmt.Printf("\n%-28s %s\n", "ID", "NAME")
		fmt.Println("────────────────────────────────────────────────")
		for _, id := range registry.IDs() {
			p, _ := registry.Get(id)
			fmt.Printf("%-28s %s\n", p.ID, p.Name)
		}
		fmt.Println()
		return nil
	},
}

// PersonasCmd returns the personas command
func PersonasCmd() *cobra.Command {
	return personasCmd
}
