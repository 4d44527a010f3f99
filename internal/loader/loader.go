package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gobridge.szuro.net/internal/logger"
	"gobridge.szuro.net/pkg/bridge"
	pluginPkg "gobridge.szuro.net/pkg/plugin"
)

// MetadataSymbol is the variable every loadable plugin exports.
const MetadataSymbol = "ServiceMetadata"

var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrNoMetadata     = errors.New("plugin does not export " + MetadataSymbol)
)

var loadedPluginInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "gobridge_loaded_plugin_info",
	Help: "Information about plugins loaded by path",
}, []string{"plugin_name", "plugin_version", "path"})

type PluginRegistry struct {
	plugins map[string]*LoadedPlugin
	mutex   sync.RWMutex
}

type LoadedPlugin struct {
	Metadata *pluginPkg.ServiceMetadata
	Path     string
}

var registry = NewRegistry()

func NewRegistry() *PluginRegistry {
	return &PluginRegistry{
		plugins: make(map[string]*LoadedPlugin),
	}
}

// GetRegistry returns the process-wide registry.
func GetRegistry() *PluginRegistry {
	return registry
}

func (pr *PluginRegistry) LoadPlugin(pluginPath string) (*LoadedPlugin, error) {
	logger.Info("Loading plugin", slog.String("path", pluginPath))

	p, err := plugin.Open(pluginPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin %s: %w", pluginPath, err)
	}

	sym, err := p.Lookup(MetadataSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoMetadata, pluginPath, err)
	}
	meta, ok := sym.(*pluginPkg.ServiceMetadata)
	if !ok {
		return nil, fmt.Errorf("plugin %s %s has type %T, want *plugin.ServiceMetadata", pluginPath, MetadataSymbol, sym)
	}

	return pr.add(pluginPath, meta)
}

func (pr *PluginRegistry) add(pluginPath string, meta *pluginPkg.ServiceMetadata) (*LoadedPlugin, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("plugin %s: %w", pluginPath, err)
	}

	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	if prev, exists := pr.plugins[meta.Name]; exists && prev.Path != pluginPath {
		logger.Warn("Plugin name already loaded, replacing",
			slog.String("name", meta.Name),
			slog.String("previous_path", prev.Path),
			slog.String("path", pluginPath))
		loadedPluginInfo.DeleteLabelValues(prev.Metadata.Name, prev.Metadata.Version.String(), prev.Path)
	}

	loaded := &LoadedPlugin{
		Metadata: meta,
		Path:     pluginPath,
	}
	pr.plugins[meta.Name] = loaded

	logger.Info("Successfully loaded plugin",
		slog.String("name", meta.Name),
		slog.String("version", meta.Version.String()))
	loadedPluginInfo.WithLabelValues(meta.Name, meta.Version.String(), pluginPath).Set(1)

	return loaded, nil
}

// LoadPluginsFromDir loads all .so files from the specified directory
func (pr *PluginRegistry) LoadPluginsFromDir(pluginDir string) error {
	logger.Info("Loading plugins from directory", slog.String("dir", pluginDir))

	pluginPaths, err := filepath.Glob(filepath.Join(pluginDir, "*.so"))
	if err != nil {
		return fmt.Errorf("failed to list plugin files in %s: %w", pluginDir, err)
	}

	var loadErrors []string
	for _, pluginPath := range pluginPaths {
		if _, err := pr.LoadPlugin(pluginPath); err != nil {
			logger.Error("Failed to load plugin", slog.String("path", pluginPath), slog.Any("error", err))
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", pluginPath, err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load some plugins: %s", strings.Join(loadErrors, "; "))
	}
	logger.Info("Successfully loaded plugins", slog.Int("count", len(pluginPaths)))
	return nil
}

// GetPlugin returns a plugin by name
func (pr *PluginRegistry) GetPlugin(name string) (*LoadedPlugin, bool) {
	pr.mutex.RLock()
	defer pr.mutex.RUnlock()

	plugin, exists := pr.plugins[name]
	return plugin, exists
}

// CreateInstance creates a bridge instance of the named plugin delivering through d.
func (pr *PluginRegistry) CreateInstance(pluginName string, d bridge.Deliverer, opts ...bridge.Option) (*bridge.Instance, error) {
	plugin, exists := pr.GetPlugin(pluginName)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginName)
	}
	return bridge.Create("", plugin.Metadata, d, opts...)
}

// ListPlugins returns metadata of all loaded plugins ordered by name
func (pr *PluginRegistry) ListPlugins() []*pluginPkg.ServiceMetadata {
	pr.mutex.RLock()
	defer pr.mutex.RUnlock()

	metas := make([]*pluginPkg.ServiceMetadata, 0, len(pr.plugins))
	for _, plugin := range pr.plugins {
		metas = append(metas, plugin.Metadata)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })

	return metas
}
