//go:build !linux

package serial

import (
	"sort"

	"go.bug.st/serial/enumerator"
)

// ListPorts returns the serial ports reported by the platform enumerator
func ListPorts() ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]string, 0, len(details))
	for _, d := range details {
		ports = append(ports, d.Name)
	}
	sort.Strings(ports)
	return ports, nil
}

func portExists(path string) bool {
	ports, err := ListPorts()
	if err != nil {
		return false
	}
	for _, p := range ports {
		if p == path {
			return true
		}
	}
	return false
}
