package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gobridge.szuro.net/pkg/bridge"
	"gobridge.szuro.net/pkg/plugin"
)

type echo struct {
	*plugin.Dispatcher[*echo]
	plugin.NopNotifier
}

func (e *echo) Register() {
	e.Dispatcher = plugin.NewDispatcher(e)
	e.Handle("echo", func(_ *echo, _ *plugin.RequestContext, params string) plugin.Response {
		return plugin.Success(params)
	})
}

func metadata(name string, minor uint32) *plugin.ServiceMetadata {
	return &plugin.ServiceMetadata{
		Name:    name,
		Version: plugin.Version{Major: 1, Minor: minor},
		Create:  func() plugin.Plugin { return &echo{} },
	}
}

func TestLoadPluginErrors(t *testing.T) {
	dir := t.TempDir()
	notPlugin := filepath.Join(dir, "broken.so")
	require.NoError(t, os.WriteFile(notPlugin, []byte("not an elf"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{"Missing file", filepath.Join(dir, "missing.so")},
		{"Not a plugin", notPlugin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := NewRegistry()
			_, err := pr.LoadPlugin(tt.path)
			require.Error(t, err)
			require.Empty(t, pr.ListPlugins())
		})
	}
}

func TestLoadPluginsFromDir(t *testing.T) {
	t.Run("Empty dir", func(t *testing.T) {
		require.NoError(t, NewRegistry().LoadPluginsFromDir(t.TempDir()))
	})

	t.Run("Broken plugin", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.so"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), nil, 0o644))

		err := NewRegistry().LoadPluginsFromDir(dir)
		require.ErrorContains(t, err, "broken.so")
		require.NotContains(t, err.Error(), "ignored.txt")
	})
}

func TestRegistry(t *testing.T) {
	pr := NewRegistry()

	_, err := pr.add("/plugins/b.so", metadata("Beta", 0))
	require.NoError(t, err)
	_, err = pr.add("/plugins/a.so", metadata("Alpha", 0))
	require.NoError(t, err)

	metas := pr.ListPlugins()
	require.Len(t, metas, 2)
	require.Equal(t, "Alpha", metas[0].Name)
	require.Equal(t, "Beta", metas[1].Name)

	loaded, ok := pr.GetPlugin("Beta")
	require.True(t, ok)
	require.Equal(t, "/plugins/b.so", loaded.Path)
	require.Equal(t, float64(1), testutil.ToFloat64(loadedPluginInfo.WithLabelValues("Beta", "1.0.0", "/plugins/b.so")))

	_, ok = pr.GetPlugin("Gamma")
	require.False(t, ok)
}

func TestRegistryReplacesName(t *testing.T) {
	pr := NewRegistry()

	_, err := pr.add("/old/replaced.so", metadata("Replaced", 0))
	require.NoError(t, err)
	_, err = pr.add("/new/replaced.so", metadata("Replaced", 1))
	require.NoError(t, err)

	loaded, ok := pr.GetPlugin("Replaced")
	require.True(t, ok)
	require.Equal(t, "/new/replaced.so", loaded.Path)
	require.Equal(t, uint32(1), loaded.Metadata.Version.Minor)
	require.Len(t, pr.ListPlugins(), 1)
}

func TestRegistryRejectsInvalidMetadata(t *testing.T) {
	pr := NewRegistry()
	_, err := pr.add("/plugins/empty.so", &plugin.ServiceMetadata{Name: "NoFactory"})
	require.ErrorIs(t, err, plugin.ErrInvalidMetadata)
	require.Empty(t, pr.ListPlugins())
}

func TestCreateInstance(t *testing.T) {
	pr := NewRegistry()
	_, err := pr.add("/plugins/echo.so", metadata("Echo", 2))
	require.NoError(t, err)

	var sent []string
	d := bridge.DelivererFunc(func(_ uint32, message string) error {
		sent = append(sent, message)
		return nil
	})

	inst, err := pr.CreateInstance("Echo", d)
	require.NoError(t, err)
	require.Equal(t, []string{`["echo"]`}, sent)
	require.NoError(t, inst.Invoke(`{"method":"echo","params":"hi","id":3}`, plugin.RequestContext{ChannelID: 1}))
	require.JSONEq(t, `{"jsonrpc":"2.0","id":3,"result":"hi"}`, sent[1])
	require.NoError(t, inst.Destroy())

	_, err = pr.CreateInstance("Missing", d)
	require.ErrorIs(t, err, ErrPluginNotFound)
}
