package roles

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/permtree/permtree/pkg/errors"
	"github.com/permtree/permtree/pkg/logging"
)

const (
	configRelPath    = "permtree/roles.toml"
	systemConfigPath = "/etc/permtree/roles.toml"
)

// fileConfig is the on-disk shape of the role configuration:
//
//	[roles]
//	web = "www-data,644"
//	app = "app:app,750/640"
type fileConfig struct {
	Roles map[string]string `toml:"roles"`
}

// DefaultConfigPath returns the role configuration file to use when the
// user gives none: the XDG config dir is searched first, then the
// system-wide path.
func DefaultConfigPath() string {
	if p, err := xdg.SearchConfigFile(configRelPath); err == nil {
		return p
	}
	return systemConfigPath
}

// LoadConfigFile reads and parses a role configuration file.
func LoadConfigFile(path string, res IdentityResolver) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "read role configuration %s", filepath.Clean(path))
	}
	return LoadConfig(data, res)
}

// LoadConfig parses role configuration data into a fully resolved registry.
// Roles are parsed in name order so failures are deterministic.
func LoadConfig(data []byte, res IdentityResolver) (*Registry, error) {
	logger := logging.GetLogger("roles.config")

	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "parse role configuration")
	}
	if len(cfg.Roles) == 0 {
		return nil, errors.New(errors.ErrConfigParse, "role configuration declares no roles")
	}

	reg := NewRegistry()
	names := make([]string, 0, len(cfg.Roles))
	for name := range cfg.Roles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		role, err := ParseRole(name, cfg.Roles[name], res)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(role); err != nil {
			return nil, err
		}
		logger.Debug().
			Str("role", role.Name).
			Str("user", role.User).
			Str("group", role.Group).
			Msg("Registered role")
	}

	logger.Info().Int("roles", reg.Len()).Msg("Role configuration loaded")
	return reg, nil
}
