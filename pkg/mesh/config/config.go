// Package config implements the Configuration & Control Surface (§4.J):
// enable/disable flags, router credentials, election tuning, queue sizing
// and the mesh's own SSID/password/channel/port, loadable and saveable as
// YAML so a host application can persist it alongside its own config.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// Config holds every setting named in §4.J. All setters are idempotent:
// applying the same value twice is a no-op compare-and-set, never a
// side-effecting append.
type Config struct {
	EnableBridgeFailover bool `yaml:"enableBridgeFailover"`
	EnableMultiBridge    bool `yaml:"enableMultiBridge"`
	EnableMessageQueue   bool `yaml:"enableMessageQueue"`
	EnableRTC            bool `yaml:"enableRTC"`

	RouterSSID     string `yaml:"routerSSID"`
	RouterPassword string `yaml:"routerPassword,omitempty"`

	ElectionDeadlineMs uint64                        `yaml:"electionDeadlineMs"`
	MaxBridges         int                            `yaml:"maxBridges"`
	SelectionStrategy  types.BridgeSelectionStrategy `yaml:"selectionStrategy"`

	QueueCapacity      int  `yaml:"queueCapacity"`
	QueuePersistence   bool `yaml:"queuePersistence"`

	MeshSSID     string `yaml:"meshSSID"`
	MeshPassword string `yaml:"meshPassword,omitempty"`
	MeshChannel  uint8  `yaml:"meshChannel"`
	MeshPort     uint16 `yaml:"meshPort"`

	DebugMask types.VerbosityMask `yaml:"debugMask"`
}

// Default values for a Config constructed with New, mirroring the defaults
// carried by the subsystems they configure.
const (
	DefaultElectionDeadlineMs = 5_000
	DefaultMaxBridges         = 2
	DefaultQueueCapacity      = 500
	DefaultMeshPort           = 5555
)

// New builds a Config with every default value the owning subsystems would
// otherwise assume on their own.
func New() *Config {
	return &Config{
		ElectionDeadlineMs: DefaultElectionDeadlineMs,
		MaxBridges:         DefaultMaxBridges,
		SelectionStrategy:  types.StrategyPriorityBased,
		QueueCapacity:      DefaultQueueCapacity,
		MeshPort:           DefaultMeshPort,
	}
}

// SetEnableBridgeFailover idempotently sets the flag.
func (c *Config) SetEnableBridgeFailover(on bool) { c.EnableBridgeFailover = on }

// SetEnableMultiBridge idempotently sets the flag.
func (c *Config) SetEnableMultiBridge(on bool) { c.EnableMultiBridge = on }

// SetEnableMessageQueue idempotently sets the flag.
func (c *Config) SetEnableMessageQueue(on bool) { c.EnableMessageQueue = on }

// SetEnableRTC idempotently sets the flag.
func (c *Config) SetEnableRTC(on bool) { c.EnableRTC = on }

// SetRouterCredentials sets the upstream WiFi router's SSID/password.
func (c *Config) SetRouterCredentials(ssid, password string) {
	c.RouterSSID = ssid
	c.RouterPassword = password
}

// SetElectionDeadlineMs rejects zero — an election with no deadline can
// never time out, violating §5's cancellation guarantee.
func (c *Config) SetElectionDeadlineMs(ms uint64) error {
	if ms == 0 {
		return types.ErrInvalidValue
	}
	c.ElectionDeadlineMs = ms
	return nil
}

// SetMaxBridges bounds how many healthy bridges the Coordinator considers.
func (c *Config) SetMaxBridges(n int) error {
	if n < 1 || n > 5 {
		return types.ErrInvalidValue
	}
	c.MaxBridges = n
	return nil
}

// SetSelectionStrategy sets the multi-bridge outbound selection strategy.
func (c *Config) SetSelectionStrategy(s types.BridgeSelectionStrategy) {
	c.SelectionStrategy = s
}

// SetQueueCapacity bounds the Priority Message Queue.
func (c *Config) SetQueueCapacity(n int) error {
	if n <= 0 {
		return types.ErrInvalidValue
	}
	c.QueueCapacity = n
	return nil
}

// SetQueuePersistence toggles whether the queue persists across restarts.
func (c *Config) SetQueuePersistence(on bool) { c.QueuePersistence = on }

// SetMesh sets this node's own advertised SSID/password/channel/port.
func (c *Config) SetMesh(ssid, password string, channel uint8, port uint16) error {
	if port == 0 {
		return types.ErrInvalidValue
	}
	c.MeshSSID = ssid
	c.MeshPassword = password
	c.MeshChannel = channel
	c.MeshPort = port
	return nil
}

// SetDebugMask sets the logger verbosity mask (§6).
func (c *Config) SetDebugMask(mask types.VerbosityMask) { c.DebugMask = mask }

// Load reads a Config from a YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := New()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
