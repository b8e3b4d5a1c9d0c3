package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/xerrors"

	"github.com/gitpod-io/snapbuild/pkg/snapbuild"
	"github.com/gitpod-io/snapbuild/pkg/snapbuild/telemetry"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Provisions the host and builds the snapcraft project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		opts, err := getBuildOptions(os.Getenv, cmd.Flags())
		if err != nil {
			return err
		}
		log.Infof("Building Snapcraft project in %q...", opts.ProjectRoot)

		ctx, done := setupTracing(cmd.Context())
		defer done()
		ctx, span := telemetry.StartSpan(ctx, "snapbuild.build",
			attribute.String("snapbuild.project", opts.ProjectRoot),
			attribute.String("snapbuild.snapcraft_channel", opts.SnapcraftChannel),
		)
		defer telemetry.FinishSpan(span, &err)

		builder := &snapbuild.SnapcraftBuilder{
			ProjectRoot:      opts.ProjectRoot,
			IncludeBuildInfo: opts.IncludeBuildInfo,
			SnapcraftChannel: opts.SnapcraftChannel,
			SnapcraftArgs:    opts.SnapcraftArgs,
			UAToken:          opts.UAToken,
			EnableGHCache:    opts.EnableGitHubCache,
			Env:              snapbuild.EnvironmentFromList(os.Environ()),
			Reporter:         getReporter(ctx),
		}
		err = builder.Build(ctx)
		if err != nil {
			return err
		}

		snap, err := builder.OutputSnap()
		if err != nil {
			return err
		}
		log.WithField("snap", snap).Info("build succeeded")
		span.SetAttributes(attribute.String("snapbuild.snap", snap))

		err = snapbuild.SetOutput("snap", snap)
		if err != nil {
			return xerrors.Errorf("cannot set snap output: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addInputFlags(buildCmd.Flags())
}
