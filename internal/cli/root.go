// Package cli implementa sunatctl, la herramienta de operación del facturador:
// verificación de certificados, hash de XML, firma manual y migraciones.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RootOptions flags globales.
type RootOptions struct {
	Format   string   // "text" | "json"
	CertDirs []string // directorios base para rutas relativas de certificados
}

// ValidFormats formatos de salida permitidos.
var ValidFormats = []string{"text", "json"}

// NewRootCommand crea el comando raíz de sunatctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sunatctl",
		Short: "Herramientas de operación para comprobantes electrónicos SUNAT",
		Long:  "Verifica certificados digitales, calcula el hash de comprobantes UBL, firma XML con XAdES y aplica migraciones.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("formato inválido %q: use uno de %v", opts.Format, ValidFormats)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "formato de salida (text|json)")
	cmd.PersistentFlags().StringSliceVar(&opts.CertDirs, "cert-dirs", []string{".", "storage/certificates"}, "directorios base para certificados")

	cmd.AddCommand(NewCertCheckCommand(opts))
	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewSignCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// output escribe v como JSON indentado o con la función de texto.
func output(w io.Writer, format string, v any, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
