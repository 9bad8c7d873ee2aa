package kernel

// Config mirrors the kernel section of config.yml; internal/config loads it.
type Config struct {
	TickMS          int `yaml:"tick_ms"`           // 10 (by default), one hardware tick
	SystemSlots     int `yaml:"system_slots"`      // 4 (by default)
	PeriodicSlots   int `yaml:"periodic_slots"`    // 10 (by default)
	RoundRobinSlots int `yaml:"round_robin_slots"` // 4 (by default)
	MaxTasks        int `yaml:"max_tasks"`         // sum of the slot counts (by default)
}

// DefaultConfig is the stock board layout: 4 system, 10 periodic, 4 round-robin slots.
func DefaultConfig() Config {
	return Config{
		TickMS:          10,
		SystemSlots:     4,
		PeriodicSlots:   10,
		RoundRobinSlots: 4,
		MaxTasks:        18,
	}
}

// Sanitize applies the sanity clamps.
func (c Config) Sanitize() Config {
	def := DefaultConfig()
	if c.TickMS <= 0 {
		c.TickMS = def.TickMS
	}
	if c.SystemSlots <= 0 {
		c.SystemSlots = def.SystemSlots
	}
	if c.PeriodicSlots <= 0 {
		c.PeriodicSlots = def.PeriodicSlots
	}
	if c.RoundRobinSlots <= 0 {
		c.RoundRobinSlots = def.RoundRobinSlots
	}
	total := c.SystemSlots + c.PeriodicSlots + c.RoundRobinSlots
	if c.MaxTasks <= 0 || c.MaxTasks > total {
		c.MaxTasks = total
	}
	return c
}
