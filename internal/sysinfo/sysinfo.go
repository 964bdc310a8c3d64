// Package sysinfo describes the host the detector runs on.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Platform is the operating system family detection rules are keyed by.
type Platform string

const (
	Windows Platform = "windows"
	MacOS   Platform = "macos"
	Linux   Platform = "linux"
)

// Platforms lists every supported platform.
var Platforms = []Platform{Windows, MacOS, Linux}

func (p Platform) String() string { return string(p) }

// PlatformFromGOOS maps a Go GOOS value to a Platform. Unix-likes other
// than darwin are treated as linux.
func PlatformFromGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "darwin", "ios":
		return MacOS
	default:
		return Linux
	}
}

// ParsePlatform validates a user-supplied platform name.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "windows", "win", "win32":
		return Windows, nil
	case "macos", "darwin", "osx", "mac":
		return MacOS, nil
	case "linux":
		return Linux, nil
	default:
		return "", fmt.Errorf("unknown platform %q (want windows, macos or linux)", s)
	}
}

// Current returns the platform of the running binary.
func Current() Platform {
	return PlatformFromGOOS(runtime.GOOS)
}

// Info is a snapshot of host facts.
type Info struct {
	Platform      Platform `json:"platform"`
	Arch          string   `json:"arch"`
	OSVersion     string   `json:"os_version"`
	Distro        string   `json:"distro,omitempty"`
	DistroVersion string   `json:"distro_version,omitempty"`
	KernelVersion string   `json:"kernel_version,omitempty"`
	Hostname      string   `json:"hostname"`
	CPUs          int      `json:"cpus"`
}

var hostInfo = host.InfoWithContext

// Detect queries the host. When the host query fails the returned Info
// still carries the runtime-derived fields and the error is returned
// alongside it.
func Detect(ctx context.Context) (Info, error) {
	info := Info{
		Platform: Current(),
		Arch:     runtime.GOARCH,
		CPUs:     runtime.NumCPU(),
	}

	hi, err := hostInfo(ctx)
	if err != nil || hi == nil {
		if name, herr := os.Hostname(); herr == nil {
			info.Hostname = name
		}
		if err == nil {
			err = fmt.Errorf("empty host info")
		}
		return info, fmt.Errorf("query host info: %w", err)
	}

	info.Hostname = hi.Hostname
	info.KernelVersion = hi.KernelVersion
	if hi.KernelArch != "" {
		info.Arch = normalizeArch(hi.KernelArch)
	}

	switch info.Platform {
	case Linux:
		info.Distro = hi.Platform
		info.DistroVersion = hi.PlatformVersion
		info.OSVersion = hi.KernelVersion
	default:
		info.OSVersion = hi.PlatformVersion
	}
	if info.OSVersion == "" {
		info.OSVersion = hi.OS
	}
	return info, nil
}

func normalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

// Summary renders a one-line description such as "linux/amd64 ubuntu 22.04".
func (i Info) Summary() string {
	parts := []string{fmt.Sprintf("%s/%s", i.Platform, i.Arch)}
	if i.Distro != "" {
		parts = append(parts, strings.TrimSpace(i.Distro+" "+i.DistroVersion))
	} else if i.OSVersion != "" {
		parts = append(parts, i.OSVersion)
	}
	return strings.Join(parts, " ")
}
