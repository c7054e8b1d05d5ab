// Copyright 2026 The Simplon Authors
// SPDX-License-Identifier: Apache-2.0

package control

import "fmt"

// Subsystem names one endpoint group of the control server.
type Subsystem int

const (
	APIVersion Subsystem = iota
	DetectorConfig
	DetectorStatus
	FileWriterConfig
	FileWriterStatus
	FileWriterCommand
	MonitorConfig
	MonitorStatus
	MonitorImages
	StreamConfig
	StreamStatus
	DetectorCommand
	SystemCommand
	Data

	subsystemCount
)

// subsystems lists each subsystem's name and path template. %s is
// replaced with the API version.
var subsystems = [subsystemCount]struct {
	name     string
	template string
}{
	APIVersion:        {"api_version", "/detector/api/version/"},
	DetectorConfig:    {"detector_config", "/detector/api/%s/config/"},
	DetectorStatus:    {"detector_status", "/detector/api/%s/status/"},
	FileWriterConfig:  {"filewriter_config", "/filewriter/api/%s/config/"},
	FileWriterStatus:  {"filewriter_status", "/filewriter/api/%s/status/"},
	FileWriterCommand: {"filewriter_command", "/filewriter/api/%s/command/"},
	MonitorConfig:     {"monitor_config", "/monitor/api/%s/config/"},
	MonitorStatus:     {"monitor_status", "/monitor/api/%s/status/"},
	MonitorImages:     {"monitor_images", "/monitor/api/%s/images/"},
	StreamConfig:      {"stream_config", "/stream/api/%s/config/"},
	StreamStatus:      {"stream_status", "/stream/api/%s/status/"},
	DetectorCommand:   {"detector_command", "/detector/api/%s/command/"},
	SystemCommand:     {"system_command", "/system/api/%s/command/"},
	Data:              {"data", "/data/"},
}

func (s Subsystem) valid() bool { return s >= 0 && s < subsystemCount }

// String returns the subsystem's snake_case name.
func (s Subsystem) String() string {
	if !s.valid() {
		return fmt.Sprintf("Subsystem(%d)", int(s))
	}
	return subsystems[s].name
}

// ParseSubsystem returns the subsystem with the given snake_case name.
func ParseSubsystem(name string) (Subsystem, error) {
	for s := Subsystem(0); s < subsystemCount; s++ {
		if subsystems[s].name == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("control: unknown subsystem %q", name)
}

// Subsystems returns every subsystem in declaration order.
func Subsystems() []Subsystem {
	all := make([]Subsystem, subsystemCount)
	for s := Subsystem(0); s < subsystemCount; s++ {
		all[s] = s
	}
	return all
}

// PathTable maps subsystems to URL path prefixes for one API version.
// It is immutable after NewPathTable returns.
type PathTable struct {
	version  string
	prefixes [subsystemCount]string
}

// NewPathTable builds the prefixes for the given API version, for
// example "1.8.0".
func NewPathTable(version string) (*PathTable, error) {
	if version == "" {
		return nil, fmt.Errorf("control: empty API version")
	}
	table := &PathTable{version: version}
	for s, entry := range subsystems {
		if s == int(APIVersion) || s == int(Data) {
			table.prefixes[s] = entry.template
			continue
		}
		table.prefixes[s] = fmt.Sprintf(entry.template, version)
	}
	return table, nil
}

// Version returns the API version the table was built for.
func (t *PathTable) Version() string { return t.version }

// Prefix returns the path prefix of s, ending in "/".
func (t *PathTable) Prefix(s Subsystem) string {
	if !s.valid() {
		return ""
	}
	return t.prefixes[s]
}

// Path returns the path of parameter or file name within s.
func (t *PathTable) Path(s Subsystem, name string) string {
	return t.Prefix(s) + name
}
