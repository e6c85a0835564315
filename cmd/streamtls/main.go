// Command streamtls fetches a resource over HTTPS using the TLS client
// implemented by the streamtls package on top of a plain TCP connection.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/apex/log"
	"github.com/ooni/streamtls/internal/streamx"
	"github.com/spf13/cobra"
)

// Options contains the options you can set from the CLI.
type Options struct {
	CAFile     string
	ChunkSize  int
	ConnectTo  string
	NoBYOB     bool
	Path       string
	Port       int
	Timeout    time.Duration
	TLSVersion string
	Verbose    bool
}

// main is the main function of streamtls.
func main() {
	var options Options
	rootCmd := &cobra.Command{
		Use:          "streamtls [flags] HOST",
		Short:        "streamtls fetches a resource using HTTP/1.0 over streamtls",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return run(ctx, &options, args[0], os.Stdout)
		},
	}
	flags := rootCmd.Flags()

	flags.StringVar(
		&options.CAFile,
		"ca-file",
		"",
		"PEM file containing the trust anchors to use instead of the compiled-in bundle",
	)

	flags.IntVar(
		&options.ChunkSize,
		"chunk-size",
		streamx.DefaultChunkSize,
		"maximum size of the chunks produced by the default readers",
	)

	flags.StringVar(
		&options.ConnectTo,
		"connect-to",
		"",
		"connect to the given ADDRESS:PORT instead of HOST:PORT",
	)

	flags.BoolVar(
		&options.NoBYOB,
		"no-byob",
		false,
		"force reading the TCP connection using chunks rather than BYOB reads",
	)

	flags.StringVar(
		&options.Path,
		"path",
		"/",
		"path of the resource to fetch",
	)

	flags.IntVarP(
		&options.Port,
		"port",
		"p",
		443,
		"port to connect to",
	)

	flags.DurationVar(
		&options.Timeout,
		"timeout",
		30*time.Second,
		"maximum duration of the whole operation (zero means no timeout)",
	)

	flags.StringVar(
		&options.TLSVersion,
		"tls-version",
		"",
		"force using the given TLS version (e.g., TLSv1.3)",
	)

	flags.BoolVarP(
		&options.Verbose,
		"verbose",
		"v",
		false,
		"increase verbosity level",
	)

	log.SetHandler(newLogHandler(os.Stderr))
	cobra.OnInitialize(func() {
		if options.Verbose {
			log.SetLevel(log.DebugLevel)
		}
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.WithError(err).Error("streamtls failed")
		os.Exit(1)
	}
}
