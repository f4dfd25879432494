package roles_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permtree/permtree/pkg/errors"
	"github.com/permtree/permtree/pkg/roles"
	"github.com/permtree/permtree/pkg/testutil"
)

func testResolver() testutil.FakeResolver {
	return testutil.NewFakeResolver()
}

func TestParseRole(t *testing.T) {
	res := testResolver()

	t.Run("file_mode_only_derives_dir_mode", func(t *testing.T) {
		role, err := roles.ParseRole("web", "www-data,644", res)
		require.NoError(t, err)

		assert.Equal(t, "www-data", role.User)
		assert.Equal(t, "www-data", role.Group, "group defaults to user")
		assert.Equal(t, 33, role.UID)
		assert.Equal(t, 33, role.GID)
		assert.True(t, role.HasFileMode)
		assert.Equal(t, os.FileMode(0o644), role.FileMode)
		assert.Equal(t, os.FileMode(0o755), role.DirMode)
	})

	t.Run("explicit_group_and_both_modes", func(t *testing.T) {
		role, err := roles.ParseRole("app", "app:staff,750/640", res)
		require.NoError(t, err)

		assert.Equal(t, "app", role.User)
		assert.Equal(t, "staff", role.Group)
		assert.Equal(t, 1001, role.UID)
		assert.Equal(t, 50, role.GID)
		assert.Equal(t, os.FileMode(0o750), role.DirMode)
		assert.Equal(t, os.FileMode(0o640), role.FileMode)
	})

	t.Run("dir_mode_only_has_no_file_mode", func(t *testing.T) {
		role, err := roles.ParseRole("backup", "root,700/", res)
		require.NoError(t, err)

		assert.False(t, role.HasFileMode)
		assert.Equal(t, os.FileMode(0o700), role.DirMode)
	})

	t.Run("file_mode_after_slash", func(t *testing.T) {
		role, err := roles.ParseRole("logs", "app,/640", res)
		require.NoError(t, err)

		assert.True(t, role.HasFileMode)
		assert.Equal(t, os.FileMode(0o640), role.FileMode)
		assert.Equal(t, os.FileMode(0o740), role.DirMode)
	})

	t.Run("four_digit_mode", func(t *testing.T) {
		role, err := roles.ParseRole("setgid", "app,2755/644", res)
		require.NoError(t, err)
		assert.Equal(t, os.ModeSetgid|0o755, role.DirMode)
	})

	t.Run("invalid_role_names", func(t *testing.T) {
		for _, name := range []string{"Web", "1web", "web role", "wéb", ""} {
			_, err := roles.ParseRole(name, "root,644", res)
			assert.True(t, errors.IsErrorCode(err, errors.ErrRoleName), "name %q", name)
		}
	})

	t.Run("valid_role_names", func(t *testing.T) {
		for _, name := range []string{"web", "_private", "web-1", "a2_b"} {
			_, err := roles.ParseRole(name, "root,644", res)
			assert.NoError(t, err, "name %q", name)
		}
	})

	t.Run("invalid_specs", func(t *testing.T) {
		for _, spec := range []string{"root", "root,", ",644", "root,64", "root,888", "root,12345/644", "root:,644"} {
			_, err := roles.ParseRole("web", spec, res)
			assert.True(t, errors.IsErrorCode(err, errors.ErrRoleSpec), "spec %q: %v", spec, err)
		}
	})

	t.Run("unknown_user_fails_eagerly", func(t *testing.T) {
		_, err := roles.ParseRole("web", "nobody-here,644", res)
		assert.True(t, errors.IsErrorCode(err, errors.ErrRoleLookup))
	})

	t.Run("unknown_group_fails_eagerly", func(t *testing.T) {
		_, err := roles.ParseRole("web", "root:missing,644", res)
		assert.True(t, errors.IsErrorCode(err, errors.ErrRoleLookup))
	})
}

func TestDeriveDirMode(t *testing.T) {
	// Every read bit contributes the matching execute bit, nothing else moves.
	cases := map[os.FileMode]os.FileMode{
		0o644:                 0o755,
		0o640:                 0o750,
		0o604:                 0o705,
		0o600:                 0o700,
		0o444:                 0o555,
		0o200:                 0o200,
		os.ModeSetgid | 0o644: os.ModeSetgid | 0o755,
	}
	for fileMode, want := range cases {
		assert.Equal(t, want, roles.DeriveDirMode(fileMode), "file mode %o", fileMode)
	}
}

func TestRegistry(t *testing.T) {
	res := testResolver()
	reg := roles.NewRegistry()

	web, err := roles.ParseRole("web", "www-data,644", res)
	require.NoError(t, err)
	require.NoError(t, reg.Add(web))

	app, err := roles.ParseRole("app", "app,750/640", res)
	require.NoError(t, err)
	require.NoError(t, reg.Add(app))

	got, ok := reg.Lookup("web")
	require.True(t, ok)
	assert.Same(t, web, got, "roles are referenced, never copied")

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"app", "web"}, reg.Names())

	dup, err := roles.ParseRole("web", "root,600", res)
	require.NoError(t, err)
	assert.Error(t, reg.Add(dup))
}
