// Package notify shows desktop notifications for connection events.
// Notifications go to the freedesktop notification service on the session
// bus, falling back to notify-send when the bus is unreachable.
package notify

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/vpn-provider-cli/common"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	method     = busName + ".Notify"

	expireMillis = 5000
)

// Kind selects icon and urgency.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarning
	KindError
)

func (k Kind) icon() string {
	switch k {
	case KindSuccess:
		return "network-vpn"
	case KindWarning:
		return "dialog-warning"
	case KindError:
		return "network-vpn-error"
	default:
		return "network-vpn-acquiring"
	}
}

// urgency values of the freedesktop hint.
func (k Kind) urgency() byte {
	switch k {
	case KindError:
		return 2
	case KindWarning:
		return 1
	default:
		return 0
	}
}

func (k Kind) urgencyName() string {
	return [...]string{"low", "normal", "critical"}[k.urgency()]
}

// Desktop sends notifications. The zero value is not usable; use New.
type Desktop struct {
	appName string

	mu   sync.Mutex
	conn *dbus.Conn
	send func(name string, args ...string) error
}

// New creates a desktop notifier. The bus connection is opened lazily.
func New() *Desktop {
	return &Desktop{
		appName: common.AppName,
		send: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Notify implements common.Notifier with KindInfo.
func (d *Desktop) Notify(title, message string) error {
	return d.Show(KindInfo, title, message)
}

// Show displays a notification of the given kind.
func (d *Desktop) Show(kind Kind, title, message string) error {
	err := d.showDBus(kind, title, message)
	if err == nil {
		return nil
	}
	common.LogDebug("D-Bus notification failed, trying notify-send: %v", err)

	if err := d.send("notify-send",
		"--app-name="+d.appName,
		"--icon="+kind.icon(),
		"--urgency="+kind.urgencyName(),
		title,
		message,
	); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (d *Desktop) showDBus(kind Kind, title, message string) error {
	conn, err := d.session()
	if err != nil {
		return err
	}

	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(kind.urgency())}
	obj := conn.Object(busName, objectPath)
	call := obj.Call(method, 0, d.appName, uint32(0), kind.icon(), title, message, []string{}, hints, int32(expireMillis))
	return call.Err
}

func (d *Desktop) session() (*dbus.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil && d.conn.Connected() {
		return d.conn, nil
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	d.conn = conn
	return conn, nil
}

// Close releases the bus connection.
func (d *Desktop) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
