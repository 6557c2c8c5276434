package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/videorobot/api/internal/audio"
	"github.com/videorobot/api/internal/model"
)

// FFmpeg runs the external ffmpeg/ffprobe binaries. Subprocesses inherit
// the caller's context, so a timed-out job kills its encoder instead of
// leaking it.
type FFmpeg struct {
	FFmpegBin  string
	FFprobeBin string
}

func NewFFmpeg(ffmpegBin, ffprobeBin string) *FFmpeg {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &FFmpeg{FFmpegBin: ffmpegBin, FFprobeBin: ffprobeBin}
}

func (f *FFmpeg) Probe(ctx context.Context, path string) (MediaInfo, error) {
	cmd := exec.CommandContext(ctx, f.FFprobeBin,
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,width,height",
		"-of", "json",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return MediaInfo{}, &model.CompositionError{
			Stage: "probe",
			Err:   fmt.Errorf("ffprobe %s: %v: %s", path, err, strings.TrimSpace(stderr.String())),
		}
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return MediaInfo{}, &model.CompositionError{Stage: "probe", Err: err}
	}

	info := MediaInfo{}
	if parsed.Format.Duration != "" {
		if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			info.DurationSec = dur
		}
	}
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			info.Width = s.Width
			info.Height = s.Height
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func (f *FFmpeg) ExtractAudio(ctx context.Context, path string, sampleRate int) (*audio.Buffer, error) {
	// Unique per call: concurrent jobs may decode the same asset, and the
	// source directory is shared, so the intermediate WAV must not live
	// there or collide.
	tmpFile, err := os.CreateTemp("", "extract-*.wav")
	if err != nil {
		return nil, &model.CompositionError{Stage: "decode-audio", Err: err}
	}
	tmp := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmp)

	cmd := exec.CommandContext(ctx, f.FFmpegBin,
		"-y", "-hide_banner", "-nostats",
		"-vn", "-sn",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		tmp,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &model.CompositionError{
			Stage: "decode-audio",
			Err:   fmt.Errorf("ffmpeg %s: %v: %s", path, err, strings.TrimSpace(stderr.String())),
		}
	}
	buf, err := audio.ReadWAV(tmp)
	if err != nil {
		return nil, &model.CompositionError{Stage: "decode-audio", Err: err}
	}
	return buf, nil
}

func (f *FFmpeg) Render(ctx context.Context, spec RenderSpec) error {
	args, err := f.renderArgs(spec)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, f.FFmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &model.CompositionError{
			Stage: "encode",
			Err:   fmt.Errorf("ffmpeg render: %v: %s", err, tail(stderr.String(), 2048)),
		}
	}
	return nil
}

// renderArgs builds a deterministic ffmpeg invocation: a color base, one
// input per media layer, a filter graph overlaying layers in plan order and
// drawtext for text layers. Argument order depends only on the spec.
func (f *FFmpeg) renderArgs(spec RenderSpec) ([]string, error) {
	args := []string{"-y", "-hide_banner", "-nostats"}

	base := fmt.Sprintf("color=c=%s:s=%dx%d:r=%s:d=%s",
		colorArg(spec.BGColor), spec.Width, spec.Height,
		formatFloat(spec.FPS), formatFloat(spec.Duration))
	args = append(args, "-f", "lavfi", "-i", base)

	inputIdx := 1
	var filters []string
	current := "[0:v]"
	for i, layer := range spec.Layers {
		label := fmt.Sprintf("[v%d]", i+1)
		switch layer.Kind {
		case LayerVideo, LayerImage:
			if layer.Kind == LayerVideo {
				args = append(args, "-ss", formatFloat(layer.TrimStart), "-i", layer.Src)
			} else {
				args = append(args, "-loop", "1", "-i", layer.Src)
			}
			elems := scaleElems(layer, spec)
			// Fades run before setpts, so their timestamps are clip-local:
			// t=0 is the first decoded frame after -ss, not the output
			// timeline position.
			if layer.FadeIn > 0 {
				elems = append(elems, "fade=t=in:st=0:d="+formatFloat(layer.FadeIn))
			}
			if layer.FadeOut > 0 {
				elems = append(elems, fmt.Sprintf("fade=t=out:st=%s:d=%s",
					formatFloat(layer.End-layer.Start-layer.FadeOut), formatFloat(layer.FadeOut)))
			}
			elems = append(elems, "setpts=PTS-STARTPTS+"+formatFloat(layer.Start)+"/TB")
			mid := fmt.Sprintf("[l%d]", i+1)
			filters = append(filters, fmt.Sprintf("[%d:v]%s%s", inputIdx, strings.Join(elems, ","), mid))
			filters = append(filters, fmt.Sprintf("%s%soverlay=%s:enable='between(t,%s,%s)'%s",
				current, mid, overlayPos(layer),
				formatFloat(layer.Start), formatFloat(layer.End), label))
			inputIdx++
		case LayerText:
			filters = append(filters, fmt.Sprintf(
				"%sdrawtext=text='%s':fontsize=%d:fontcolor=%s%s:%s:enable='between(t,%s,%s)'%s",
				current, escapeText(layer.Content), layer.Size, colorArg(layer.Color),
				fontArg(layer.Font), drawtextPos(layer),
				formatFloat(layer.Start), formatFloat(layer.End), label))
		default:
			return nil, &model.CompositionError{
				Stage: "plan",
				Err:   fmt.Errorf("unsupported layer kind %q", layer.Kind),
			}
		}
		current = label
	}

	if spec.AudioPath != "" {
		args = append(args, "-i", spec.AudioPath)
	}

	if len(filters) > 0 {
		args = append(args, "-filter_complex", strings.Join(filters, ";"))
		args = append(args, "-map", current)
	} else {
		args = append(args, "-map", "0:v")
	}
	if spec.AudioPath != "" {
		args = append(args, "-map", fmt.Sprintf("%d:a", inputIdx))
	}

	args = append(args,
		"-t", formatFloat(spec.Duration),
		"-r", formatFloat(spec.FPS),
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
	)
	if spec.AudioPath != "" {
		args = append(args, "-c:a", "aac", "-b:a", "192k", "-ar", "48000")
	}
	args = append(args, spec.OutputPath)
	return args, nil
}

func scaleElems(layer Layer, spec RenderSpec) []string {
	switch layer.Fit {
	case "cover":
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", spec.Width, spec.Height),
			fmt.Sprintf("crop=%d:%d", spec.Width, spec.Height),
		}
	case "contain":
		return []string{fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", spec.Width, spec.Height)}
	}
	if layer.Scale > 0 && layer.Scale != 1.0 {
		return []string{fmt.Sprintf("scale=iw*%s:ih*%s", formatFloat(layer.Scale), formatFloat(layer.Scale))}
	}
	return nil
}

func overlayPos(layer Layer) string {
	if layer.X == nil && layer.Y == nil {
		return "(W-w)/2:(H-h)/2"
	}
	x, y := "0", "0"
	if layer.X != nil {
		x = formatFloat(*layer.X)
	}
	if layer.Y != nil {
		y = formatFloat(*layer.Y)
	}
	return x + ":" + y
}

func drawtextPos(layer Layer) string {
	if layer.X == nil && layer.Y == nil {
		return "x=(w-text_w)/2:y=(h-text_h)/2"
	}
	x, y := "0", "0"
	if layer.X != nil {
		x = formatFloat(*layer.X)
	}
	if layer.Y != nil {
		y = formatFloat(*layer.Y)
	}
	return "x=" + x + ":y=" + y
}

func fontArg(font string) string {
	if font == "" {
		return ""
	}
	return ":fontfile=" + font
}

func colorArg(color string) string {
	if color == "" {
		return "black"
	}
	if strings.HasPrefix(color, "#") {
		return "0x" + color[1:]
	}
	return color
}

func escapeText(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return r.Replace(text)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
