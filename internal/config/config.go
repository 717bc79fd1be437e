// Package config provides configuration loading, validation, and defaults
// for the relay. Configuration is read from a YAML file with environment
// variable overrides and validated with struct tags.
package config

// TaskEnabled reports whether the named scheduler task is configured and enabled.
func (c *Config) TaskEnabled(name string) bool {
	task, ok := c.Scheduler.Tasks[name]
	return ok && task.Enabled
}
