//go:build linux

package procmon

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"proctord/internal/engine"
)

// procSource enumerates processes from /proc. Module evidence comes from
// a cheap scan of mapped shared objects.
type procSource struct{}

func newPlatformSource() engine.SignalSource[Snapshot] {
	return engine.NewRetrySource[Snapshot](procSource{})
}

func (procSource) Poll() (Snapshot, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		comm, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm"))
		if err != nil {
			// Process exited between readdir and read; skip.
			continue
		}

		snap.Processes = append(snap.Processes, Process{
			PID:     pid,
			Name:    strings.TrimSpace(string(comm)),
			Modules: mappedModules(entry.Name()),
		})
	}
	return snap, nil
}

// mappedModules extracts distinct shared-object basenames from the
// process maps file. Unreadable maps (permissions) yield no modules.
func mappedModules(pid string) []string {
	data, err := os.ReadFile(filepath.Join("/proc", pid, "maps"))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var modules []string
	for _, line := range strings.Split(string(data), "\n") {
		idx := strings.IndexByte(line, '/')
		if idx < 0 {
			continue
		}
		base := filepath.Base(line[idx:])
		name := strings.TrimSuffix(base, filepath.Ext(base))
		name = strings.TrimPrefix(strings.ToLower(name), "lib")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		modules = append(modules, name)
	}
	return modules
}
