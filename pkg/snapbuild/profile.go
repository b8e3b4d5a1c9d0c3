package snapbuild

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

const (
	// LXDProfile is the profile snapcraft's build containers are started with
	LXDProfile = "default"

	// InputPrefix marks environment variables which carry action inputs rather than build environment
	InputPrefix = "INPUT_"

	profileConfigKey  = "config"
	profileEnvPrefix  = "environment."
	cacheServiceOn    = "on"
	envRuntimeToken   = "ACTIONS_RUNTIME_TOKEN"
	envResultsURL     = "ACTIONS_RESULTS_URL"
	envCacheServiceV2 = "ACTIONS_CACHE_SERVICE_V2"
	envSccacheGHA     = "SCCACHE_GHA_ENABLED"
)

// EnvironmentBlocklist lists variables that never make it into the build container
var EnvironmentBlocklist = map[string]struct{}{
	"PATH":         {},
	"HOME":         {},
	"SHELL":        {},
	"USER":         {},
	"PWD":          {},
	"GITHUB_TOKEN": {},
}

// Environment is a snapshot of the host's environment variables
type Environment map[string]string

// EnvironmentFromList builds an environment from KEY=value pairs as returned by os.Environ.
// Entries without a value are dropped.
func EnvironmentFromList(entries []string) Environment {
	res := make(Environment, len(entries))
	for _, entry := range entries {
		k, v, ok := strings.Cut(entry, "=")
		if !ok || k == "" {
			continue
		}
		res[k] = v
	}
	return res
}

// List returns the environment as KEY=value pairs, sorted by key
func (e Environment) List() []string {
	res := make([]string, 0, len(e))
	for k, v := range e {
		res = append(res, k+"="+v)
	}
	sort.Strings(res)
	return res
}

// Propagates returns true if the variable name may be copied into the build container
func Propagates(name string) bool {
	if _, blocked := EnvironmentBlocklist[name]; blocked {
		return false
	}
	return !strings.HasPrefix(name, InputPrefix)
}

// CacheCredentials let builds in the container talk to the GitHub Actions cache service
type CacheCredentials struct {
	RuntimeToken string
	ResultsURL   string
}

// CacheCredentialsFromEnv reads the cache credentials the Actions runner hands to each job
func CacheCredentialsFromEnv(getenv func(string) string) *CacheCredentials {
	return &CacheCredentials{
		RuntimeToken: getenv(envRuntimeToken),
		ResultsURL:   getenv(envResultsURL),
	}
}

func (c *CacheCredentials) environment() map[string]string {
	return map[string]string{
		envRuntimeToken:   c.RuntimeToken,
		envResultsURL:     c.ResultsURL,
		envCacheServiceV2: cacheServiceOn,
		envSccacheGHA:     cacheServiceOn,
	}
}

// Profile is an LXD profile. Only its config is interpreted, everything else
// is carried through unchanged.
type Profile struct {
	Config map[string]string

	root *yaml.Node
}

// ParseProfile parses the YAML produced by "lxc profile show"
func ParseProfile(in []byte) (*Profile, error) {
	var doc yaml.Node
	err := yaml.Unmarshal(in, &doc)
	if err != nil {
		return nil, xerrors.Errorf("cannot parse LXD profile: %w", err)
	}

	res := &Profile{
		Config: make(map[string]string),
		root:   &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if isNull(root) {
			return res, nil
		}
		if root.Kind != yaml.MappingNode {
			return nil, xerrors.Errorf("cannot parse LXD profile: expected a mapping, got %s", root.Tag)
		}
		res.root = root
	}

	for i := 0; i+1 < len(res.root.Content); i += 2 {
		key, val := res.root.Content[i], res.root.Content[i+1]
		if key.Value != profileConfigKey || isNull(val) {
			continue
		}
		err = val.Decode(&res.Config)
		if err != nil {
			return nil, xerrors.Errorf("cannot parse LXD profile config: %w", err)
		}
	}
	return res, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// ApplyEnvironment copies every eligible variable of env into the profile's container environment.
// If cache is non-nil the GitHub cache credentials are added as well; those bypass the blocklist.
func (p *Profile) ApplyEnvironment(env Environment, cache *CacheCredentials) {
	if p.Config == nil {
		p.Config = make(map[string]string)
	}
	for k, v := range env {
		if !Propagates(k) {
			continue
		}
		p.Config[profileEnvPrefix+k] = v
	}

	if cache == nil {
		return
	}
	for k, v := range cache.environment() {
		p.Config[profileEnvPrefix+k] = v
	}
}

// Environment returns the container environment configured in this profile
func (p *Profile) Environment() Environment {
	res := make(Environment)
	for k, v := range p.Config {
		if name, ok := strings.CutPrefix(k, profileEnvPrefix); ok {
			res[name] = v
		}
	}
	return res
}

// Marshal serialises the profile back to YAML suitable for "lxc profile edit"
func (p *Profile) Marshal() ([]byte, error) {
	var cfg yaml.Node
	err := cfg.Encode(p.Config)
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal LXD profile config: %w", err)
	}

	root := *p.root
	root.Content = make([]*yaml.Node, 0, len(p.root.Content)+2)
	var found bool
	for i := 0; i+1 < len(p.root.Content); i += 2 {
		key, val := p.root.Content[i], p.root.Content[i+1]
		if key.Value == profileConfigKey {
			val = &cfg
			found = true
		}
		root.Content = append(root.Content, key, val)
	}
	if !found {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: profileConfigKey}
		root.Content = append([]*yaml.Node{key, &cfg}, root.Content...)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err = enc.Encode(&root)
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal LXD profile: %w", err)
	}
	err = enc.Close()
	if err != nil {
		return nil, xerrors.Errorf("cannot marshal LXD profile: %w", err)
	}
	return buf.Bytes(), nil
}

// SetupEnvLXD passes env (and optionally the GitHub cache credentials) into the build containers
// by rewriting the environment of LXD's default profile. The profile is written even if nothing changed.
func (p *Provisioner) SetupEnvLXD(ctx context.Context, env Environment, cache *CacheCredentials) error {
	var profile *Profile
	err := p.do(StepReadProfile, func(out io.Writer) StepResult {
		log.Info("Reading default profile of LXD...")
		io.WriteString(out, "[command]/usr/bin/sudo lxc profile show "+LXDProfile+"\n")

		var stdout bytes.Buffer
		_, err := p.runner.Run(ctx, "sudo", []string{"lxc", "profile", "show", LXDProfile}, RunOptions{Silent: true, Stdout: &stdout})
		if err != nil {
			return stepFailed(StepReadProfile, err)
		}
		profile, err = ParseProfile(stdout.Bytes())
		return stepFromError(StepReadProfile, err)
	})
	if err != nil {
		return err
	}

	profile.ApplyEnvironment(env, cache)
	if cache != nil {
		log.Info("Enabling GitHub Cache support...")
	}

	return p.do(StepWriteProfile, func(out io.Writer) StepResult {
		log.Info("Updating default profile of LXD...")
		io.WriteString(out, "[command]/usr/bin/sudo lxc profile edit "+LXDProfile+"\n")

		fc, err := profile.Marshal()
		if err != nil {
			return stepFailed(StepWriteProfile, err)
		}
		_, err = p.runner.Run(ctx, "sudo", []string{"lxc", "profile", "edit", LXDProfile}, RunOptions{Silent: true, Input: fc})
		return stepFromError(StepWriteProfile, err)
	})
}
