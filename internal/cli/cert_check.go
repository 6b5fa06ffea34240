package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
)

// CertReport datos del certificado resuelto.
type CertReport struct {
	Shape     string    `json:"shape"`
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	Serial    string    `json:"serial"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
	Expired   bool      `json:"expired"`
	Digest    string    `json:"digest_sha256"`
}

// NewCertCheckCommand crea el comando cert-check.
func NewCertCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "cert-check <certificado>",
		Short: "Resuelve un certificado (PEM, ruta .p12 o PKCS#12 base64) y muestra sus datos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := checkCertificate(rootOpts.CertDirs, args[0], password, time.Now())
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), rootOpts.Format, report, func(w io.Writer) {
				fmt.Fprintf(w, "formato:   %s\n", report.Shape)
				fmt.Fprintf(w, "sujeto:    %s\n", report.Subject)
				fmt.Fprintf(w, "emisor:    %s\n", report.Issuer)
				fmt.Fprintf(w, "serie:     %s\n", report.Serial)
				fmt.Fprintf(w, "vigencia:  %s a %s\n", report.NotBefore.Format(time.DateOnly), report.NotAfter.Format(time.DateOnly))
				if report.Expired {
					fmt.Fprintln(w, "ATENCIÓN:  el certificado está vencido")
				}
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "contraseña del PKCS#12 o de la llave PEM")
	return cmd
}

func checkCertificate(dirs []string, material, password string, now time.Time) (*CertReport, error) {
	resolver := signer.NewCertificateResolver(dirs)
	shape, _ := resolver.Detect(material)
	kp, err := resolver.Resolve(material, password)
	if err != nil {
		return nil, err
	}
	c := kp.Certificate
	return &CertReport{
		Shape:     shape.String(),
		Subject:   c.Subject.String(),
		Issuer:    c.Issuer.String(),
		Serial:    c.SerialNumber.String(),
		NotBefore: c.NotBefore,
		NotAfter:  c.NotAfter,
		Expired:   now.After(c.NotAfter),
		Digest:    signer.CertDigest(c),
	}, nil
}
