package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-sunat/pkg/config"
)

// NewMigrateCommand crea el comando migrate (up, down, steps N, version).
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:       "migrate <up|down|steps N|version>",
		Short:     "Aplica o revierte las migraciones de base de datos",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "steps", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			m, err := migrate.New("file://"+dir, cfg.DB.ConnectionString())
			if err != nil {
				return fmt.Errorf("crear instancia de migrate: %w", err)
			}
			defer m.Close()
			return runMigrate(m, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "path", "db/migrations", "directorio de migraciones")
	return cmd
}

// migrator subconjunto de *migrate.Migrate usado por el comando.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
}

func runMigrate(m migrator, args []string, w io.Writer) error {
	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migración up: %w", err)
		}
		fmt.Fprintln(w, "migraciones aplicadas")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migración down: %w", err)
		}
		fmt.Fprintln(w, "migraciones revertidas")
	case "steps":
		if len(args) < 2 {
			return errors.New("steps requiere un número")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("steps inválido: %w", err)
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migración steps: %w", err)
		}
		fmt.Fprintf(w, "%d pasos aplicados\n", n)
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("obtener versión: %w", err)
		}
		fmt.Fprintf(w, "versión: %d, dirty: %v\n", version, dirty)
	default:
		return fmt.Errorf("subcomando desconocido %q: use up, down, steps N o version", args[0])
	}
	return nil
}
