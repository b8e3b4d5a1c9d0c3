package cmd

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/gitpod-io/snapbuild/pkg/snapbuild"
)

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Prints LXD's default profile as it would look after passing in the current environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			enableCache, _ = cmd.Flags().GetBool("enable-github-cache")
			fromFile, _    = cmd.Flags().GetString("from-file")
		)

		var (
			fc  []byte
			err error
		)
		if fromFile != "" {
			fc, err = os.ReadFile(fromFile)
		} else {
			var stdout bytes.Buffer
			_, err = snapbuild.ExecRunner{}.Run(cmd.Context(), "sudo", []string{"lxc", "profile", "show", snapbuild.LXDProfile}, snapbuild.RunOptions{Silent: true, Stdout: &stdout})
			fc = stdout.Bytes()
		}
		if err != nil {
			return xerrors.Errorf("cannot read LXD profile: %w", err)
		}

		profile, err := snapbuild.ParseProfile(fc)
		if err != nil {
			return err
		}
		var cache *snapbuild.CacheCredentials
		if enableCache {
			cache = snapbuild.CacheCredentialsFromEnv(os.Getenv)
		}
		profile.ApplyEnvironment(snapbuild.EnvironmentFromList(os.Environ()), cache)

		out, err := profile.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().Bool("enable-github-cache", false, "include the GitHub cache credentials")
	profileCmd.Flags().String("from-file", "", "read the profile from a file instead of LXD")
}
