package media

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Transcoder converts an uploaded video/audio file into the fixed playback
// profile. It is a potentially slow external operation; implementations must
// honor ctx cancellation. The interface exists so tests can inject a fake
// instead of a real ffmpeg binary.
type Transcoder interface {
	Transcode(ctx context.Context, inPath, outPath string) error
}

// FFmpeg shells out to ffmpeg with a constrained-playback profile: 480px-wide
// H.264/AAC for video, AAC for audio-only outputs.
type FFmpeg struct {
	// Binary is the ffmpeg executable; empty means "ffmpeg" on PATH.
	Binary string
}

func (f FFmpeg) Transcode(ctx context.Context, inPath, outPath string) error {
	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", inPath}
	switch filepath.Ext(outPath) {
	case ".m4a":
		args = append(args, "-vn", "-c:a", "aac", "-b:a", "64k")
	default:
		args = append(args,
			"-vf", "scale=480:-2",
			"-c:v", "libx264", "-preset", "veryfast", "-b:v", "500k",
			"-c:a", "aac", "-b:a", "64k",
			"-movflags", "+faststart",
		)
	}
	args = append(args, outPath)

	out, err := exec.CommandContext(ctx, bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w (%s)", err, string(out))
	}
	return nil
}
