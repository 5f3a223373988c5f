package capability

import (
	"os/exec"
	"runtime"
	"strings"
)

// DefaultTarBinary is looked up on PATH when no tar binary is configured.
const DefaultTarBinary = "tar"

// Profile describes what the host can do. It is probed once and passed by value.
type Profile struct {
	NativeArchive  bool   `json:"native_archive"`
	ShellExec      bool   `json:"shell_exec"`
	OutboundHTTP   bool   `json:"outbound_http"`
	RichHTTPClient bool   `json:"rich_http_client"`
	POSIX          bool   `json:"posix"`
	TarPath        string `json:"tar_path,omitempty"`
}

// Config holds the operator switches the probe starts from.
type Config struct {
	NativeArchive  bool
	AllowShell     bool
	TarBinary      string
	AllowNetwork   bool
	RichHTTPClient bool
}

// Probe inspects the host once. Switches that are off stay off; switches that are on are
// confirmed against the host where that is possible.
func Probe(cfg Config) Profile {
	p := Profile{
		NativeArchive: cfg.NativeArchive,
		OutboundHTTP:  cfg.AllowNetwork,
		POSIX:         isPOSIX(runtime.GOOS),
	}
	p.RichHTTPClient = cfg.RichHTTPClient && p.OutboundHTTP

	if cfg.AllowShell {
		bin := cfg.TarBinary
		if bin == "" {
			bin = DefaultTarBinary
		}
		if path, err := exec.LookPath(bin); err == nil {
			p.ShellExec = true
			p.TarPath = path
		}
	}

	return p
}

// Notes lists the capabilities that are missing, for results and logs.
func (p Profile) Notes() []string {
	var notes []string
	if !p.NativeArchive {
		notes = append(notes, "native archive support disabled")
	}
	if !p.ShellExec {
		notes = append(notes, "shell execution unavailable")
	}
	if !p.OutboundHTTP {
		notes = append(notes, "outbound networking disabled")
	}
	if !p.POSIX {
		notes = append(notes, "host is not POSIX")
	}
	return notes
}

// String renders the profile compactly, e.g. "native_archive,shell_exec,posix".
func (p Profile) String() string {
	var on []string
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{"native_archive", p.NativeArchive},
		{"shell_exec", p.ShellExec},
		{"outbound_http", p.OutboundHTTP},
		{"rich_http_client", p.RichHTTPClient},
		{"posix", p.POSIX},
	} {
		if c.ok {
			on = append(on, c.name)
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ",")
}

func isPOSIX(goos string) bool {
	switch goos {
	case "windows", "plan9":
		return false
	default:
		return true
	}
}
