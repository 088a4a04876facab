// Package commands arma la CLI petctl: opera la guardería contra la API REST
// con el mismo contenedor optimista que usa el dashboard.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"petsoft/internal/adapters/gateway/remote"
	"petsoft/internal/petstate"
)

const defaultAPI = "http://localhost:8080"

var (
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

type globalOptions struct {
	api     string
	timeout time.Duration
}

// NewRootCmd devuelve un árbol de comandos nuevo (sin estado global, apto para tests).
func NewRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:     "petctl",
		Short:   "PetSoft CLI - manage the pets currently in daycare",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors:      true,
		SilenceUsage:       true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
	}

	api := os.Getenv("PETSOFT_API")
	if api == "" {
		api = defaultAPI
	}
	root.PersistentFlags().StringVar(&opts.api, "api", api, "PetSoft API base URL (env PETSOFT_API)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP timeout per request")

	root.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newCheckoutCmd(opts),
	)
	return root
}

func (o *globalOptions) gateway() (*remote.Gateway, error) {
	gw, err := remote.New(strings.TrimSpace(o.api), o.timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid --api %q: %w", o.api, err)
	}
	return gw, nil
}

// PrintError imprime el error final. Las fallas de mutación ya se avisaron como warning.
func PrintError(w io.Writer, err error) {
	var me *petstate.MutationError
	if errors.As(err, &me) {
		return
	}
	red.Fprintf(w, "error: %v\n", err)
}
