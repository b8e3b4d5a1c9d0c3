package snapbuild

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const lxdDefaultProfile = `config: {}
description: Default LXD profile
devices:
  eth0:
    name: eth0
    network: lxdbr0
    type: nic
  root:
    path: /
    pool: default
    type: disk
name: default
used_by: []
`

func configure(t *testing.T, in string, env Environment, cache *CacheCredentials) (*Profile, []byte) {
	t.Helper()

	profile, err := ParseProfile([]byte(in))
	require.NoError(t, err)
	profile.ApplyEnvironment(env, cache)
	out, err := profile.Marshal()
	require.NoError(t, err)

	res, err := ParseProfile(out)
	require.NoError(t, err)
	return res, out
}

func TestApplyEnvironmentFiltersVariables(t *testing.T) {
	env := Environment{"PATH": "/bin", "MY_VAR": "hello", "INPUT_PATH": "x"}
	profile, _ := configure(t, lxdDefaultProfile, env, nil)

	expected := map[string]string{"environment.MY_VAR": "hello"}
	if diff := cmp.Diff(expected, profile.Config); diff != "" {
		t.Errorf("ApplyEnvironment() mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnvironmentBlocklistWins(t *testing.T) {
	for name := range EnvironmentBlocklist {
		for _, value := range []string{"", "value", "environment.PATH", "INPUT_X"} {
			t.Run(fmt.Sprintf("%s=%q", name, value), func(t *testing.T) {
				profile, _ := configure(t, lxdDefaultProfile, Environment{name: value, "KEEP": "1"}, nil)
				assert.NotContains(t, profile.Config, "environment."+name)
				assert.Equal(t, "1", profile.Config["environment.KEEP"])
			})
		}
	}
}

func TestApplyEnvironmentInputPrefix(t *testing.T) {
	env := Environment{
		"INPUT_PATH":              ".",
		"INPUT_SNAPCRAFT-CHANNEL": "edge",
		"INPUT_":                  "",
		"MY_INPUT_VAR":            "kept",
		"input_lowercase":         "kept",
	}
	profile, _ := configure(t, lxdDefaultProfile, env, nil)

	assert.Equal(t, Environment{"MY_INPUT_VAR": "kept", "input_lowercase": "kept"}, profile.Environment())
}

func TestApplyEnvironmentCopiesValuesExactly(t *testing.T) {
	env := Environment{
		"EMPTY":     "",
		"SPACES":    "  padded value ",
		"MULTILINE": "line1\nline2\n",
		"YAMLISH":   "key: value",
		"BOOLISH":   "true",
		"NUMBER":    "0042",
		"UNICODE":   "héllo wörld",
	}
	profile, _ := configure(t, lxdDefaultProfile, env, nil)

	assert.Equal(t, env, profile.Environment())
}

func TestApplyEnvironmentOverwrites(t *testing.T) {
	in := `config:
  environment.MY_VAR: old
  environment.OTHER: untouched
  security.nesting: "true"
name: default
`
	profile, _ := configure(t, in, Environment{"MY_VAR": "new"}, nil)

	expected := map[string]string{
		"environment.MY_VAR": "new",
		"environment.OTHER":  "untouched",
		"security.nesting":   "true",
	}
	assert.Equal(t, expected, profile.Config)
}

func TestApplyEnvironmentCache(t *testing.T) {
	tests := []struct {
		Name        string
		Env         Environment
		Cache       *CacheCredentials
		Expectation map[string]string
	}{
		{
			Name:        "disabled",
			Env:         Environment{"ACTIONS_RUNTIME_TOKEN": "tok"},
			Expectation: map[string]string{"environment.ACTIONS_RUNTIME_TOKEN": "tok"},
		},
		{
			Name:  "enabled",
			Cache: &CacheCredentials{RuntimeToken: "tok", ResultsURL: "https://results.example.com/"},
			Expectation: map[string]string{
				"environment.ACTIONS_RUNTIME_TOKEN":    "tok",
				"environment.ACTIONS_RESULTS_URL":      "https://results.example.com/",
				"environment.ACTIONS_CACHE_SERVICE_V2": "on",
				"environment.SCCACHE_GHA_ENABLED":      "on",
			},
		},
		{
			Name:  "enabled without credentials",
			Cache: &CacheCredentials{},
			Expectation: map[string]string{
				"environment.ACTIONS_RUNTIME_TOKEN":    "",
				"environment.ACTIONS_RESULTS_URL":      "",
				"environment.ACTIONS_CACHE_SERVICE_V2": "on",
				"environment.SCCACHE_GHA_ENABLED":      "on",
			},
		},
		{
			Name:  "cache wins over environment",
			Env:   Environment{"ACTIONS_CACHE_SERVICE_V2": "off", "INPUT_X": "y"},
			Cache: &CacheCredentials{RuntimeToken: "tok"},
			Expectation: map[string]string{
				"environment.ACTIONS_RUNTIME_TOKEN":    "tok",
				"environment.ACTIONS_RESULTS_URL":      "",
				"environment.ACTIONS_CACHE_SERVICE_V2": "on",
				"environment.SCCACHE_GHA_ENABLED":      "on",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			profile, _ := configure(t, lxdDefaultProfile, test.Env, test.Cache)
			if diff := cmp.Diff(test.Expectation, profile.Config); diff != "" {
				t.Errorf("ApplyEnvironment() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigureIsIdempotent(t *testing.T) {
	env := Environment{"MY_VAR": "hello", "HOME": "/root", "CI": "true"}
	cache := &CacheCredentials{RuntimeToken: "tok"}

	_, once := configure(t, lxdDefaultProfile, env, cache)
	_, twice := configure(t, string(once), env, cache)

	assert.Equal(t, string(once), string(twice))
}

func TestConfigurePreservesOtherFields(t *testing.T) {
	inputs := map[string]string{
		"default profile": lxdDefaultProfile,
		"without config": `description: Default LXD profile
devices: {}
name: default
`,
		"null config": `config:
description: ""
name: default
used_by:
  - /1.0/instances/snapcraft-foo
`,
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, out := configure(t, in, Environment{"MY_VAR": "hello"}, nil)

			var before, after map[string]interface{}
			require.NoError(t, yaml.Unmarshal([]byte(in), &before))
			require.NoError(t, yaml.Unmarshal(out, &after))
			delete(before, "config")
			delete(after, "config")
			if diff := cmp.Diff(before, after); diff != "" {
				t.Errorf("configure() changed fields (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshalProfile(t *testing.T) {
	_, out := configure(t, lxdDefaultProfile, Environment{"MY_VAR": "hello"}, nil)

	expected := `config:
  environment.MY_VAR: hello
description: Default LXD profile
devices:
  eth0:
    name: eth0
    network: lxdbr0
    type: nic
  root:
    path: /
    pool: default
    type: disk
name: default
used_by: []
`
	assert.Equal(t, expected, string(out))
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		Name   string
		In     string
		Config map[string]string
		Err    bool
	}{
		{Name: "empty", In: "", Config: map[string]string{}},
		{Name: "null document", In: "null\n", Config: map[string]string{}},
		{Name: "missing config", In: "name: default\n", Config: map[string]string{}},
		{Name: "null config", In: "config: ~\nname: default\n", Config: map[string]string{}},
		{Name: "non string values", In: "config:\n  limits.cpu: 2\n  security.nesting: true\n", Config: map[string]string{"limits.cpu": "2", "security.nesting": "true"}},
		{Name: "list document", In: "- a\n- b\n", Err: true},
		{Name: "scalar document", In: "hello\n", Err: true},
		{Name: "config is a list", In: "config:\n  - a\n", Err: true},
		{Name: "garbage", In: "config: [\n", Err: true},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			profile, err := ParseProfile([]byte(test.In))
			if test.Err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(test.Config, profile.Config); diff != "" {
				t.Errorf("ParseProfile() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnvironmentFromList(t *testing.T) {
	act := EnvironmentFromList([]string{"A=1", "B=", "C=x=y", "NOVALUE", "=weird"})
	expected := Environment{"A": "1", "B": "", "C": "x=y"}
	if diff := cmp.Diff(expected, act); diff != "" {
		t.Errorf("EnvironmentFromList() mismatch (-want +got):\n%s", diff)
	}
}

func TestPropagates(t *testing.T) {
	tests := map[string]bool{
		"PATH":         false,
		"GITHUB_TOKEN": false,
		"INPUT_PATH":   false,
		"GITHUB_SHA":   true,
		"path":         true,
		"HOMEBREW":     true,
	}
	for name, expected := range tests {
		assert.Equal(t, expected, Propagates(name), name)
	}
}
