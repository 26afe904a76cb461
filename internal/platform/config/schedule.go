package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ScheduleEntry is one mapping entry of the scheduler config
// (spec.md §4.D): task is always "run_agent", trigger is cron-like or
// a fixed period, args names the agent resolved at fire time.
type ScheduleEntry struct {
	Task    string   `yaml:"task"`
	Trigger string   `yaml:"trigger"`
	Args    []string `yaml:"args"`
}

// ScheduleYAMLConfig is the top-level shape of schedule.yaml, mirroring
// the teacher's TarsyYAMLConfig registry-map idiom.
type ScheduleYAMLConfig struct {
	Schedules map[string]ScheduleEntry `yaml:"schedules"`
}

// builtinSchedule seeds the lead_generation agent and the
// _internal.daily_summary roll-up.
var builtinSchedule = ScheduleYAMLConfig{
	Schedules: map[string]ScheduleEntry{
		"lead-generation-daily": {
			Task:    "run_agent",
			Trigger: "0 0 9 * * *",
			Args:    []string{"lead_generation"},
		},
		"daily-summary-rollup": {
			Task:    "run_agent",
			Trigger: "0 30 0 * * *",
			Args:    []string{"_internal.daily_summary"},
		},
	},
}

// LoadScheduleConfig merges the built-in schedule with an optional
// user-supplied YAML file at path, the way pkg/config/loader.go merges
// built-in + user-defined registries with mergo.
func LoadScheduleConfig(path string) (ScheduleYAMLConfig, error) {
	cfg := builtinSchedule
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return ScheduleYAMLConfig{}, fmt.Errorf("reading schedule config %s: %w", path, err)
	}

	var userCfg ScheduleYAMLConfig
	if err := yaml.Unmarshal(raw, &userCfg); err != nil {
		return ScheduleYAMLConfig{}, fmt.Errorf("parsing schedule config %s: %w", path, err)
	}

	merged := builtinSchedule
	if err := mergo.Merge(&merged, userCfg, mergo.WithOverride); err != nil {
		return ScheduleYAMLConfig{}, fmt.Errorf("merging schedule config: %w", err)
	}
	return merged, nil
}
