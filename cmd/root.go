package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gookit/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitpod-io/snapbuild/pkg/snapbuild"
	"github.com/gitpod-io/snapbuild/pkg/snapbuild/telemetry"
)

const (
	// EnvvarOTelEndpoint configures the OTLP/HTTP endpoint provisioning traces are sent to
	EnvvarOTelEndpoint = "SNAPBUILD_OTEL_ENDPOINT"

	// EnvvarOTelInsecure disables TLS towards the OTLP endpoint when set to "true"
	EnvvarOTelInsecure = "SNAPBUILD_OTEL_INSECURE"

	// EnvvarTraceParent carries a W3C traceparent our spans are attached to
	EnvvarTraceParent = "TRACEPARENT"
)

var (
	// version is set during the build using ldflags
	version string = "unknown"

	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "snapbuild",
	Short: "Builds snaps with snapcraft in LXD",
	Long: color.Render(`<light_yellow>snapbuild provisions a host for building snaps</> and runs snapcraft in an LXD container.
Provisioning is safe to re-run: snapd, LXD and snapcraft are only installed when missing and refreshed otherwise.
The host's environment is passed into the build container through LXD's default profile, except for
PATH, HOME, SHELL, USER, PWD, GITHUB_TOKEN and action inputs (INPUT_*).

<white>Configuration</>
When run as a GitHub Action, inputs are read from the INPUT_* environment variables. Flags take precedence.
The following environment variables have an effect on snapbuild:
           <light_blue>INPUT_PATH</>  Snapcraft project directory. Defaults to ".".
     <light_blue>INPUT_BUILD-INFO</>  Whether to include build information in the snap. Defaults to "true".
<light_blue>INPUT_SNAPCRAFT-CHANNEL</>  Snap channel snapcraft is installed from. Defaults to "stable".
   <light_blue>INPUT_SNAPCRAFT-ARGS</>  Additional arguments passed to snapcraft.
        <light_blue>INPUT_UA-TOKEN</>  Ubuntu Pro token used during the build.
<light_blue>INPUT_ENABLE-GITHUB-CACHE</>  Pass GitHub cache credentials into the build container. Defaults to "false".
        <light_blue>GITHUB_OUTPUT</>  File the "snap" output is written to.
<light_blue>SNAPBUILD_OTEL_ENDPOINT</>  Enables tracing of provisioning steps using OTLP/HTTP.
`),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(snapbuild.FormatFailure(err))
		os.Exit(1)
	}
}

func init() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enables verbose logging")
}

// setupTracing initialises tracing if configured and returns a context carrying the
// parent span passed in by the environment
func setupTracing(ctx context.Context) (context.Context, func()) {
	err := telemetry.Initialize(ctx, os.Getenv(EnvvarOTelEndpoint), version, os.Getenv(EnvvarOTelInsecure) == "true")
	if err != nil {
		log.WithError(err).Warn("cannot initialize tracing")
		return ctx, func() {}
	}
	if !telemetry.Enabled() {
		return ctx, func() {}
	}

	parent, err := telemetry.ContextFromTraceParent(ctx, os.Getenv(EnvvarTraceParent))
	if err != nil {
		log.WithError(err).Warn("ignoring trace parent")
	}
	return parent, func() {
		err := telemetry.Shutdown(context.Background())
		if err != nil {
			log.WithError(err).Debug("cannot flush traces")
		}
	}
}

// getReporter returns the console reporter, plus an OTel reporter if tracing is enabled
func getReporter(ctx context.Context) snapbuild.Reporter {
	var rep snapbuild.Reporter = snapbuild.NewConsoleReporter()
	if !telemetry.Enabled() {
		return rep
	}
	return snapbuild.CompositeReporter{rep, snapbuild.NewOTelReporter(telemetry.Tracer(), ctx)}
}
