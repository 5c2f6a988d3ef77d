// Package iproute houses the IPRoute object, which can be used to change the
// administrative state of interfaces by wrapping the ip(8) command.
package iproute

import (
	"fmt"

	"github.com/emunet/faultbed/pkg/runtime"
)

// IPRoute implements bringing interfaces up and down.
type IPRoute struct {
	exec runtime.Executor
}

// New returns a new IPRoute.
func New(executor runtime.Executor) IPRoute {
	return IPRoute{
		exec: executor,
	}
}

// SetLinkUp brings the given device up.
func (ip IPRoute) SetLinkUp(dev string) error {
	return ip.link(dev, "up")
}

// SetLinkDown takes the given device down.
func (ip IPRoute) SetLinkDown(dev string) error {
	return ip.link(dev, "down")
}

func (ip IPRoute) link(dev, state string) error {
	out, err := ip.exec.Exec("ip", "link", "set", "dev", dev, state)
	if err != nil {
		return fmt.Errorf("setting link %s %s: %q: %w", dev, state, string(out), err)
	}

	return nil
}
