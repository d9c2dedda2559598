package runner

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DeviceProbe lists compute devices. "cpu" is always first; NVIDIA GPUs are
// discovered with `nvidia-smi -L` when the tool is installed.
type DeviceProbe struct {
	lookPath func(string) (string, error)
	output   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewDeviceProbe() *DeviceProbe {
	return &DeviceProbe{
		lookPath: exec.LookPath,
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (d *DeviceProbe) Devices(ctx context.Context) []string {
	devices := []string{"cpu"}
	bin, err := d.lookPath("nvidia-smi")
	if err != nil {
		return devices
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := d.output(ctx, bin, "-L")
	if err != nil {
		return devices
	}
	return append(devices, parseNvidiaSMI(string(out))...)
}

// parseNvidiaSMI turns "GPU 0: NVIDIA RTX 4090 (UUID: GPU-...)" into "cuda:0 (NVIDIA RTX 4090)".
func parseNvidiaSMI(out string) []string {
	var devices []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "GPU ") {
			continue
		}
		idx, rest, ok := strings.Cut(strings.TrimPrefix(line, "GPU "), ":")
		if !ok {
			continue
		}
		name := strings.TrimSpace(rest)
		if i := strings.Index(name, " (UUID"); i >= 0 {
			name = name[:i]
		}
		devices = append(devices, fmt.Sprintf("cuda:%s (%s)", strings.TrimSpace(idx), name))
	}
	return devices
}
