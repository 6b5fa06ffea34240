package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

// NewDigestCommand crea el comando digest.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "digest <archivo.xml>",
		Short: "Calcula el hash SHA-256 del XML normalizado (sin espacios entre etiquetas)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("leer %s: %w", args[0], err)
			}
			hash := domsunat.DigestXML(string(data))
			return output(cmd.OutOrStdout(), rootOpts.Format, map[string]string{"file": args[0], "hash": hash}, func(w io.Writer) {
				fmt.Fprintln(w, hash)
			})
		},
	}
}
