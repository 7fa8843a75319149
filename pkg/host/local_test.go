package host_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/host/hosttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_WriteReadList(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	local := host.NewLocal()

	target := filepath.Join(root, "instances", "demo-1", "spec.json")
	err := local.WriteFile(ctx, target, []byte(`{"id":"demo-1"}`))
	require.NoError(t, err)

	data, err := local.ReadFile(ctx, target)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"demo-1"}`, string(data))

	names, err := local.ListDir(ctx, filepath.Join(root, "instances"))
	require.NoError(t, err)
	assert.Equal(t, []string{"demo-1"}, names)

	_, err = local.ReadFile(ctx, filepath.Join(root, "missing.json"))
	assert.True(t, host.IsNotExist(err))
}

func TestLocal_RunCollectsOutputAndExitCode(t *testing.T) {
	ctx := context.Background()

	res, err := host.Run(ctx, host.NewLocal(), host.Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Output, "out")
	assert.Contains(t, res.Output, "err")
}

func TestLocal_SpawnMissingBinary(t *testing.T) {
	_, err := host.NewLocal().Spawn(context.Background(), host.Command{Name: "definitely-not-a-binary-xyz"})
	assert.Error(t, err)
}

func TestFakeHost_BuiltinsAndExists(t *testing.T) {
	ctx := context.Background()
	fake := hosttest.New(nil)
	fake.AddFile("/data/a/file.txt", "x")

	assert.True(t, host.Exists(ctx, fake, "/data/a"))
	assert.True(t, host.Exists(ctx, fake, "/data/a/file.txt"))

	_, err := host.Run(ctx, fake, host.Command{Name: "rm", Args: []string{"-rf", "/data/a"}})
	require.NoError(t, err)
	assert.False(t, host.Exists(ctx, fake, "/data/a"))

	_, err = host.Run(ctx, fake, host.Command{Name: "mkdir", Args: []string{"-p", "/data/b/c"}})
	require.NoError(t, err)

	names, err := fake.ListDir(ctx, "/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}
