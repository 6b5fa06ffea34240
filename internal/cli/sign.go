package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/facturador-sunat/pkg/logger"
)

// SignOptions flags del comando sign.
type SignOptions struct {
	In       string
	Out      string
	Cert     string
	Password string
}

// NewSignCommand crea el comando sign.
func NewSignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignOptions{}
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Firma un XML UBL con XML-DSIG + XAdES-BES",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(opts.In)
			if err != nil {
				return fmt.Errorf("leer %s: %w", opts.In, err)
			}
			// los eventos del firmador van a stderr para no mezclarse con el XML
			events := logger.NewWithWriter(cmd.ErrOrStderr(), "info").Events()
			svc := signer.NewDigitalSignatureService(signer.NewCertificateResolver(rootOpts.CertDirs), events)
			signed, err := svc.Sign(string(data), opts.Cert, opts.Password)
			if err != nil {
				return err
			}
			if opts.Out == "" || opts.Out == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), signed)
				return err
			}
			return os.WriteFile(opts.Out, []byte(signed), 0o644)
		},
	}
	cmd.Flags().StringVarP(&opts.In, "in", "i", "", "XML sin firma")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "archivo de salida (por defecto stdout)")
	cmd.Flags().StringVar(&opts.Cert, "cert", "", "certificado: PEM, ruta .p12 o PKCS#12 base64")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "contraseña del certificado")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("cert")
	return cmd
}
