//go:build linux

package devmon

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"proctord/internal/engine"
)

// bluezSource lists connected bluetooth devices from BlueZ over the
// system bus. The connection is dialed lazily on first poll and reused.
type bluezSource struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

func newBluetoothSource() engine.SignalSource[Snapshot] {
	return engine.NewRetrySource[Snapshot](&bluezSource{})
}

func (b *bluezSource) Poll() (Snapshot, error) {
	conn, err := b.bus()
	if err != nil {
		return Snapshot{}, fmt.Errorf("devmon: system bus: %w", err)
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	obj := conn.Object("org.bluez", "/")
	if err := obj.Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0).Store(&objects); err != nil {
		return Snapshot{}, fmt.Errorf("devmon: bluez objects: %w", err)
	}

	var snap Snapshot
	for path, ifaces := range objects {
		props, ok := ifaces["org.bluez.Device1"]
		if !ok {
			continue
		}
		if connected, _ := props["Connected"].Value().(bool); !connected {
			continue
		}
		addr, _ := props["Address"].Value().(string)
		if addr == "" {
			addr = string(path)
		}
		name, _ := props["Name"].Value().(string)
		snap.Devices = append(snap.Devices, Device{
			ID:   "bt:" + addr,
			Name: name,
			Kind: "bluetooth",
		})
	}
	return snap, nil
}

func (b *bluezSource) bus() (*dbus.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return b.conn, nil
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	b.conn = conn
	return conn, nil
}
