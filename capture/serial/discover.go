// go-bitbus
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-bitbus.
//
// go-bitbus is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-bitbus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-bitbus; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package serial

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Port describes a serial port that may carry a logic sampler
type Port struct {
	Path    string
	VIDPID  string
	Product string
	Serial  string
	IsUSB   bool
}

// Filter selects ports during discovery
type Filter struct {
	// Match keeps only USB ports whose VID:PID is listed. Empty keeps all.
	Match []string
	// Block drops USB ports whose VID:PID is listed
	Block []string
	// IgnorePaths drops ports by device path
	IgnorePaths []string
}

// Discover lists the serial ports accepted by filter
func Discover(filter Filter) ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return filterPorts(details, filter), nil
}

func filterPorts(details []*enumerator.PortDetails, filter Filter) []Port {
	var ports []Port
	for _, d := range details {
		p := Port{Path: d.Name, IsUSB: d.IsUSB, Product: d.Product, Serial: d.SerialNumber}
		if d.IsUSB {
			p.VIDPID = ParseVIDPID(d.VID + ":" + d.PID)
		}
		if !filter.accepts(p) {
			continue
		}
		ports = append(ports, p)
	}
	return ports
}

func (f Filter) accepts(p Port) bool {
	if IsPathIgnored(p.Path, f.IgnorePaths) {
		return false
	}
	if p.VIDPID != "" && containsVIDPID(f.Block, p.VIDPID) {
		return false
	}
	if len(f.Match) > 0 {
		return p.VIDPID != "" && containsVIDPID(f.Match, p.VIDPID)
	}
	return true
}

func containsVIDPID(list []string, vidpid string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, entry := range list {
		if strings.ToUpper(strings.TrimSpace(entry)) == vidpid {
			return true
		}
	}
	return false
}

// ParseVIDPID extracts VID:PID from the common USB descriptor formats:
// "VID:0403 PID:6001", "vendor=0403 product=6001" and "0403:6001".
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	var vid, pid string
	if idx := strings.Index(descriptor, "VID:"); idx >= 0 {
		vid = extractHex(descriptor[idx+4:])
	} else if idx := strings.Index(descriptor, "VENDOR="); idx >= 0 {
		vid = extractHex(descriptor[idx+7:])
	} else if idx := strings.Index(descriptor, "VID="); idx >= 0 {
		vid = extractHex(descriptor[idx+4:])
	}

	if idx := strings.Index(descriptor, "PID:"); idx >= 0 {
		pid = extractHex(descriptor[idx+4:])
	} else if idx := strings.Index(descriptor, "PRODUCT="); idx >= 0 {
		pid = extractHex(descriptor[idx+8:])
	} else if idx := strings.Index(descriptor, "PID="); idx >= 0 {
		pid = extractHex(descriptor[idx+4:])
	}

	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(descriptor, ":"); len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return descriptor
	}
	return ""
}

// extractHex returns the first run of hex digits in s
func extractHex(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') {
			_, _ = result.WriteRune(r)
		} else if result.Len() > 0 {
			break
		}
	}
	return result.String()
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// IsPathIgnored reports whether devicePath is listed in ignorePaths. Paths
// are cleaned and compared case-insensitively.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore != "" && normalizedPath(ignore) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
