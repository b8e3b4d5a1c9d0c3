package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gitpod-io/snapbuild/pkg/snapbuild"
)

// provisionCmd represents the provision command
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Installs snapd, LXD and snapcraft and configures LXD's default profile without building",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := getBuildOptions(os.Getenv, cmd.Flags())
		if err != nil {
			return err
		}

		ctx, done := setupTracing(cmd.Context())
		defer done()

		provOpts := []snapbuild.ProvisionOption{
			snapbuild.WithReporter(getReporter(ctx)),
			snapbuild.WithSnapcraftChannel(opts.SnapcraftChannel),
			snapbuild.WithEnvironment(snapbuild.EnvironmentFromList(os.Environ())),
		}
		if opts.EnableGitHubCache {
			provOpts = append(provOpts, snapbuild.WithGitHubCache(snapbuild.CacheCredentialsFromEnv(os.Getenv)))
		}

		report, err := snapbuild.NewProvisioner(provOpts...).Provision(ctx)
		if err != nil {
			return err
		}
		if len(report.ConflictingPackages) > 0 {
			log.WithField("packages", report.ConflictingPackages).Debug("docker packages present")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	addInputFlags(provisionCmd.Flags())
}
