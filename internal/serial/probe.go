package serial

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// VideoInfo is what ffprobe could tell about the input. Zero values mean unknown.
type VideoInfo struct {
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	FPS             float64 `json:"fps,omitempty"`
	TotalFrames     int     `json:"total_frames,omitempty"`
}

// Prober runs ffprobe when it is installed. Probing never fails; a missing
// tool or unreadable input yields an empty VideoInfo.
type Prober struct {
	lookPath func(string) (string, error)
	output   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewProber() *Prober {
	return &Prober{
		lookPath: exec.LookPath,
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (p *Prober) Probe(ctx context.Context, input string) VideoInfo {
	bin, err := p.lookPath("ffprobe")
	if err != nil {
		return VideoInfo{}
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	out, err := p.output(ctx, bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate,nb_frames,duration",
		"-show_entries", "format=duration",
		"-of", "json",
		input,
	)
	if err != nil {
		return VideoInfo{}
	}
	return parseProbe(out)
}

type ffprobeOutput struct {
	Streams []struct {
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(out []byte) VideoInfo {
	var raw ffprobeOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return VideoInfo{}
	}
	var info VideoInfo
	streamDuration := ""
	if len(raw.Streams) > 0 {
		s := raw.Streams[0]
		info.FPS = parseRate(s.AvgFrameRate)
		streamDuration = s.Duration
		if n, err := strconv.Atoi(strings.TrimSpace(s.NbFrames)); err == nil && n > 0 {
			info.TotalFrames = n
		}
	}
	for _, d := range []string{streamDuration, raw.Format.Duration} {
		if v, err := strconv.ParseFloat(strings.TrimSpace(d), 64); err == nil && v > 0 {
			info.DurationSeconds = v
			break
		}
	}
	if info.TotalFrames == 0 && info.DurationSeconds > 0 && info.FPS > 0 {
		info.TotalFrames = max(1, int(info.DurationSeconds*info.FPS))
	}
	return info
}

// parseRate reads "30000/1001" or "25" style rates.
func parseRate(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	num, den, ok := strings.Cut(raw, "/")
	if !ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return 0
		}
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 || n < 0 {
		return 0
	}
	return n / d
}
