package cmd

import (
	"strings"

	"github.com/imdario/mergo"
	"github.com/spf13/pflag"
	"golang.org/x/xerrors"

	"github.com/gitpod-io/snapbuild/pkg/snapbuild"
)

// actionInputs are the inputs of the GitHub Action as they come in: strings
type actionInputs struct {
	Path              string
	BuildInfo         string
	SnapcraftChannel  string
	SnapcraftArgs     string
	UAToken           string
	EnableGitHubCache string
}

var defaultInputs = actionInputs{
	Path:              ".",
	BuildInfo:         "true",
	SnapcraftChannel:  snapbuild.DefaultSnapcraftChannel,
	EnableGitHubCache: "false",
}

// inputFlags maps flag names to the input they override
var inputFlags = map[string]func(*actionInputs) *string{
	"path":                func(in *actionInputs) *string { return &in.Path },
	"build-info":          func(in *actionInputs) *string { return &in.BuildInfo },
	"snapcraft-channel":   func(in *actionInputs) *string { return &in.SnapcraftChannel },
	"snapcraft-args":      func(in *actionInputs) *string { return &in.SnapcraftArgs },
	"ua-token":            func(in *actionInputs) *string { return &in.UAToken },
	"enable-github-cache": func(in *actionInputs) *string { return &in.EnableGitHubCache },
}

// getInput reads an action input the way the Actions runner passes it
func getInput(getenv func(string) string, name string) string {
	return strings.TrimSpace(getenv(snapbuild.InputPrefix + strings.ToUpper(strings.ReplaceAll(name, " ", "_"))))
}

func inputsFromEnv(getenv func(string) string) actionInputs {
	var res actionInputs
	for name, field := range inputFlags {
		*field(&res) = getInput(getenv, name)
	}
	return res
}

func addInputFlags(flags *pflag.FlagSet) {
	flags.String("path", "", "snapcraft project directory (default \".\")")
	flags.String("build-info", "", "include build information in the snap (default \"true\")")
	flags.String("snapcraft-channel", "", "snap channel snapcraft is installed from (default \"stable\")")
	flags.String("snapcraft-args", "", "additional arguments passed to snapcraft")
	flags.String("ua-token", "", "Ubuntu Pro token used during the build")
	flags.String("enable-github-cache", "", "pass GitHub cache credentials into the build container (default \"false\")")
}

// overrideInputs replaces inputs with all flags set explicitly
func overrideInputs(in actionInputs, flags *pflag.FlagSet) (actionInputs, error) {
	for name, field := range inputFlags {
		if !flags.Changed(name) {
			continue
		}
		val, err := flags.GetString(name)
		if err != nil {
			return in, err
		}
		*field(&in) = val
	}
	return in, nil
}

// buildOptions are the resolved inputs
type buildOptions struct {
	ProjectRoot       string
	IncludeBuildInfo  bool
	SnapcraftChannel  string
	SnapcraftArgs     []string
	UAToken           string
	EnableGitHubCache bool
}

func resolveInputs(in actionInputs) (buildOptions, error) {
	err := mergo.Merge(&in, defaultInputs)
	if err != nil {
		return buildOptions{}, xerrors.Errorf("cannot apply input defaults: %w", err)
	}

	return buildOptions{
		ProjectRoot:       in.Path,
		IncludeBuildInfo:  isTrue(in.BuildInfo),
		SnapcraftChannel:  in.SnapcraftChannel,
		SnapcraftArgs:     strings.Fields(in.SnapcraftArgs),
		UAToken:           in.UAToken,
		EnableGitHubCache: isTrue(in.EnableGitHubCache),
	}, nil
}

func isTrue(v string) bool {
	return strings.ToUpper(v) == "TRUE"
}

// getBuildOptions combines action inputs from the environment with flags
func getBuildOptions(getenv func(string) string, flags *pflag.FlagSet) (buildOptions, error) {
	in, err := overrideInputs(inputsFromEnv(getenv), flags)
	if err != nil {
		return buildOptions{}, err
	}
	return resolveInputs(in)
}
