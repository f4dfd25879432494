package roles

import (
	"os"
	"os/user"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/permtree/permtree/pkg/errors"
)

// Role is a named bundle of ownership and permission bits that rules can
// apply to matched entries. Roles are built once from configuration before
// any traversal and are immutable afterwards.
type Role struct {
	Name  string
	User  string
	Group string
	UID   int
	GID   int

	// FileMode is only meaningful when HasFileMode is true. A role without
	// a file mode is valid for directory-only rules exclusively.
	FileMode    os.FileMode
	HasFileMode bool

	// DirMode is always present: when the configuration omits it, it is
	// derived from FileMode so that anything the role can read it can also
	// traverse.
	DirMode os.FileMode
}

// IdentityResolver resolves user and group names to numeric ids. The
// default implementation queries the system identity database; tests
// substitute a fake.
type IdentityResolver interface {
	LookupUser(name string) (int, error)
	LookupGroup(name string) (int, error)
}

// OSResolver resolves names through the os/user database.
type OSResolver struct{}

func (OSResolver) LookupUser(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u.Uid)
}

func (OSResolver) LookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}

var (
	roleNameRE = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)
	modeRE     = regexp.MustCompile(`^[0-7]{3,4}$`)
)

// DeriveDirMode derives a directory mode from a file mode: every read bit
// set in the file mode also sets the corresponding execute bit, all other
// bits are untouched. A directory a role can read stays traversable.
func DeriveDirMode(fileMode os.FileMode) os.FileMode {
	return fileMode | ((fileMode & 0o444) >> 2)
}

// ParseRole parses one role specification of the form
//
//	user[:group],[dirmode][/filemode]
//
// where each mode is 3-4 octal digits and at least one mode is present. A
// mode string without a slash supplies the file mode; the directory mode is
// then derived. User and group ids are resolved eagerly so a bad name fails
// at configuration time, not at apply time.
func ParseRole(name, spec string, res IdentityResolver) (*Role, error) {
	if !roleNameRE.MatchString(name) {
		return nil, errors.Newf(errors.ErrRoleName, "invalid role name %q", name)
	}

	who, modes, ok := strings.Cut(spec, ",")
	if !ok {
		return nil, errors.Newf(errors.ErrRoleSpec,
			"role %s: spec %q must be user[:group],[dirmode][/filemode]", name, spec)
	}

	userName, groupName, hasGroup := strings.Cut(who, ":")
	if !hasGroup {
		groupName = userName
	}
	if userName == "" || groupName == "" {
		return nil, errors.Newf(errors.ErrRoleSpec, "role %s: empty user or group in %q", name, spec)
	}

	role := &Role{Name: name, User: userName, Group: groupName}

	dirStr, fileStr, hasSlash := strings.Cut(modes, "/")
	if !hasSlash {
		// A lone mode is the file mode; the directory mode gets derived.
		fileStr = modes
		dirStr = ""
	}
	if dirStr == "" && fileStr == "" {
		return nil, errors.Newf(errors.ErrRoleSpec, "role %s: at least one mode is required in %q", name, spec)
	}

	if fileStr != "" {
		mode, err := parseMode(name, fileStr)
		if err != nil {
			return nil, err
		}
		role.FileMode = mode
		role.HasFileMode = true
	}
	if dirStr != "" {
		mode, err := parseMode(name, dirStr)
		if err != nil {
			return nil, err
		}
		role.DirMode = mode
	} else {
		role.DirMode = DeriveDirMode(role.FileMode)
	}

	uid, err := res.LookupUser(userName)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRoleLookup, "role %s: unknown user %q", name, userName)
	}
	gid, err := res.LookupGroup(groupName)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRoleLookup, "role %s: unknown group %q", name, groupName)
	}
	role.UID = uid
	role.GID = gid

	return role, nil
}

func parseMode(roleName, s string) (os.FileMode, error) {
	if !modeRE.MatchString(s) {
		return 0, errors.Newf(errors.ErrRoleSpec, "role %s: mode %q is not 3-4 octal digits", roleName, s)
	}
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrRoleSpec, "role %s: mode %q", roleName, s)
	}
	// The setuid/setgid/sticky bits live in FileMode's high bits, not at
	// their POSIX octal positions.
	mode := os.FileMode(v & 0o777)
	if v&0o4000 != 0 {
		mode |= os.ModeSetuid
	}
	if v&0o2000 != 0 {
		mode |= os.ModeSetgid
	}
	if v&0o1000 != 0 {
		mode |= os.ModeSticky
	}
	return mode, nil
}

// Registry holds all roles declared for a run, keyed by name. It is fully
// built before rule loading and never mutated afterwards.
type Registry struct {
	roles map[string]*Role
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{roles: make(map[string]*Role)}
}

// Add registers a role, rejecting duplicate names.
func (r *Registry) Add(role *Role) error {
	if _, exists := r.roles[role.Name]; exists {
		return errors.Newf(errors.ErrRoleName, "duplicate role %q", role.Name)
	}
	r.roles[role.Name] = role
	return nil
}

// Lookup returns the role with the given name, if declared.
func (r *Registry) Lookup(name string) (*Role, bool) {
	role, ok := r.roles[name]
	return role, ok
}

// Len returns the number of declared roles.
func (r *Registry) Len() int {
	return len(r.roles)
}

// Names returns the declared role names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.roles))
	for name := range r.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
