package config

import (
	"reflect"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/zjrosen/classwind/internal/log"
)

// Section names reported by ChangedSections.
const (
	SectionClassRegex = "class_regex"
	SectionRanking    = "ranking"
	SectionRunOnSave  = "run_on_save"
	SectionHighlight  = "highlight"
	SectionSort       = "sort"
	SectionProject    = "project"
	SectionTracing    = "tracing"
	SectionFlags      = "flags"
)

// ChangedSections lists the sections that differ between old and new.
// ignore_missing_config and config_path are reported together as "ranking".
func ChangedSections(old, new Config) []string {
	var sections []string
	add := func(changed bool, name string) {
		if changed {
			sections = append(sections, name)
		}
	}

	add(!reflect.DeepEqual(old.ClassRegex, new.ClassRegex), SectionClassRegex)
	add(old.IgnoreMissingConfig != new.IgnoreMissingConfig || old.ConfigPath != new.ConfigPath, SectionRanking)
	add(old.RunOnSave != new.RunOnSave, SectionRunOnSave)
	add(old.Highlight != new.Highlight, SectionHighlight)
	add(old.Sort != new.Sort, SectionSort)
	add(!reflect.DeepEqual(old.Project, new.Project), SectionProject)
	add(old.Tracing != new.Tracing, SectionTracing)
	add(!reflect.DeepEqual(old.Flags, new.Flags), SectionFlags)

	return sections
}

// Watch re-decodes v whenever its config file changes and calls onChange
// with the new config and the sections that changed. Invalid edits are
// logged and ignored so the previous config stays in effect.
func Watch(v *viper.Viper, current Config, onChange func(Config, []string)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := Decode(v)
		if err != nil {
			log.ErrorErr(log.CatConfig, "ignoring invalid config change", err, "file", e.Name)
			return
		}

		sections := ChangedSections(current, next)
		if len(sections) == 0 {
			return
		}
		current = next

		log.Info(log.CatConfig, "config changed", "file", e.Name, "sections", sections)
		onChange(next, sections)
	})
	v.WatchConfig()
}
