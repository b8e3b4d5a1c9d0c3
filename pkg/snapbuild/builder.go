package snapbuild

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// SnapcraftBuilder builds a snapcraft project inside LXD
type SnapcraftBuilder struct {
	ProjectRoot      string
	IncludeBuildInfo bool
	SnapcraftChannel string
	SnapcraftArgs    []string
	UAToken          string
	EnableGHCache    bool

	// Env is the host environment. It's propagated into the build container and
	// forms the environment of the snapcraft process.
	Env Environment

	Runner   Runner
	Host     Host
	Reporter Reporter
}

// Build provisions the host and runs snapcraft
func (b *SnapcraftBuilder) Build(ctx context.Context) error {
	env := b.buildEnvironment()

	opts := []ProvisionOption{
		WithSnapcraftChannel(b.SnapcraftChannel),
		WithEnvironment(env),
	}
	if b.Runner != nil {
		opts = append(opts, WithRunner(b.Runner))
	}
	if b.Host != nil {
		opts = append(opts, WithHost(b.Host))
	}
	if b.Reporter != nil {
		opts = append(opts, WithReporter(b.Reporter))
	}
	if b.EnableGHCache {
		opts = append(opts, WithGitHubCache(CacheCredentialsFromEnv(func(k string) string { return b.Env[k] })))
	}
	prov := NewProvisioner(opts...)
	_, err := prov.Provision(ctx)
	if err != nil {
		return err
	}

	runner := b.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	log.WithField("project", b.ProjectRoot).Info("Building snap...")
	_, err = runner.Run(ctx, "sg", []string{LXDGroup, "-c", b.snapcraftCommand()}, RunOptions{
		Dir: b.ProjectRoot,
		Env: env.List(),
	})
	if err != nil {
		return xerrors.Errorf("snapcraft failed: %w", err)
	}
	return nil
}

// buildEnvironment returns the host environment plus what snapcraft needs to build in LXD
func (b *SnapcraftBuilder) buildEnvironment() Environment {
	res := make(Environment, len(b.Env)+3)
	for k, v := range b.Env {
		res[k] = v
	}
	res["SNAPCRAFT_BUILD_ENVIRONMENT"] = "lxd"
	if b.IncludeBuildInfo {
		res["SNAPCRAFT_BUILD_INFO"] = "1"
	}
	if info := imageInfo(b.Env); info != "" {
		res["SNAPCRAFT_IMAGE_INFO"] = info
	}
	return res
}

// imageInfo describes the workflow run for the snap's build metadata
func imageInfo(env Environment) string {
	var (
		server = env["GITHUB_SERVER_URL"]
		repo   = env["GITHUB_REPOSITORY"]
		runID  = env["GITHUB_RUN_ID"]
	)
	if server == "" || repo == "" || runID == "" {
		return ""
	}

	fc, err := json.Marshal(map[string]string{
		"build_url": fmt.Sprintf("%s/%s/actions/runs/%s", server, repo, runID),
	})
	if err != nil {
		return ""
	}
	return string(fc)
}

func (b *SnapcraftBuilder) snapcraftCommand() string {
	segs := append([]string{"snapcraft"}, b.SnapcraftArgs...)
	if b.UAToken != "" {
		segs = append(segs, "--ua-token", b.UAToken)
	}
	for i, s := range segs {
		segs[i] = shellQuote(s)
	}
	return strings.Join(segs, " ")
}

func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,+@%", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// OutputSnap returns the snap the build produced
func (b *SnapcraftBuilder) OutputSnap() (string, error) {
	snaps, err := filepath.Glob(filepath.Join(b.ProjectRoot, "*.snap"))
	if err != nil {
		return "", xerrors.Errorf("cannot search for snaps: %w", err)
	}
	var res []string
	for _, s := range snaps {
		if stat, err := os.Stat(s); err == nil && !stat.IsDir() {
			res = append(res, s)
		}
	}
	if len(res) == 0 {
		return "", xerrors.Errorf("no snap files produced by build")
	}
	sort.Strings(res)
	if len(res) > 1 {
		log.WithField("snaps", res).Warnf("multiple snaps found in %s", b.ProjectRoot)
	}
	return res[0], nil
}
