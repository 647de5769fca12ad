package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}
}

// newTestExecutor returns an executor that never shells out
func newTestExecutor() *Executor {
	return &Executor{logger: zerolog.Nop(), crf: DefaultCRF, preset: DefaultPreset}
}

// makeTestVideo renders a short synthetic clip with a sine audio track
func makeTestVideo(t *testing.T, e *Executor, seconds int) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "source.mp4")
	err := e.Run(context.Background(), RunOptions{Args: []string{
		"-f", "lavfi", "-i", "testsrc=size=320x240:rate=25",
		"-f", "lavfi", "-i", "sine=frequency=440:sample_rate=44100",
		"-t", strconv.Itoa(seconds),
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-c:a", "aac",
		"-shortest", out,
	}})
	require.NoError(t, err)
	return out
}

func TestFilterBuilder(t *testing.T) {
	assert.Equal(t, "scale=640:-2", NewFilterBuilder().ScaleWidth(640).Build())
	assert.Equal(t, "scale=640:-2,scale=320:-2", NewFilterBuilder().ScaleWidth(640).ScaleWidth(320).Build())
}

func TestFilterBuilderEmpty(t *testing.T) {
	assert.Equal(t, "", NewFilterBuilder().Build())
	assert.Equal(t, "", NewFilterBuilder().ScaleWidth(0).Build())
}

func TestClipArgs(t *testing.T) {
	e := newTestExecutor()

	args, err := e.clipArgs("in.mp4", ClipOptions{
		Start:  1500 * time.Millisecond,
		End:    3500 * time.Millisecond,
		Output: "out.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-i", "in.mp4",
		"-ss", "00:00:01.500",
		"-t", "00:00:02.000",
		"-c:v", "libx264", "-c:a", "aac",
		"-crf", "23", "-preset", "medium",
		"out.mp4",
	}, args)

	args, err = e.clipArgs("in.mp4", ClipOptions{Start: 0, End: time.Second, Output: "out.mp4", CopyCodec: true})
	require.NoError(t, err)
	assert.Contains(t, strings.Join(args, " "), "-c copy")

	_, err = e.clipArgs("in.mp4", ClipOptions{Start: time.Second, End: time.Second, Output: "out.mp4"})
	assert.Error(t, err)

	_, err = e.clipArgs("in.mp4", ClipOptions{Start: 0, End: time.Second})
	assert.Error(t, err)
}

func TestAudioArgs(t *testing.T) {
	args := audioArgs("ride.mp4", "audio/ride.wav", DefaultWAVFormat())
	assert.Equal(t, []string{"-i", "ride.mp4", "-vn", "-acodec", "pcm_s16le", "audio/ride.wav"}, args)

	args = audioArgs("ride.mp4", "ride.wav", AudioFormat{Codec: "pcm_s16le", SampleRate: 16000, Channels: 1})
	assert.Equal(t, []string{"-i", "ride.mp4", "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", "ride.wav"}, args)
}

func TestCompressArgs(t *testing.T) {
	args := compressArgs("in.mp4", "compressed_in.mp4", DefaultCompressOptions())
	assert.Equal(t, []string{
		"-i", "in.mp4",
		"-vf", "scale=640:-2",
		"-c:v", "libx264", "-preset", "fast", "-crf", "28",
		"-an",
		"compressed_in.mp4",
	}, args)

	args = compressArgs("in.mp4", "out.mp4", CompressOptions{KeepAudio: true})
	joined := strings.Join(args, " ")
	assert.NotContains(t, joined, "-vf")
	assert.Contains(t, joined, "-c:a aac")
}

func TestConcatList(t *testing.T) {
	list := concatList([]string{"/tmp/a_clip_1.mp4", "/tmp/it's.mp4"})
	assert.Equal(t, "file '/tmp/a_clip_1.mp4'\nfile '/tmp/it'\\''s.mp4'\n", list)

	rel := concatList([]string{"clip.mp4"})
	assert.True(t, strings.HasPrefix(rel, "file '/"), "relative paths are made absolute: %s", rel)
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "r_frame_rate": "60/1", "nb_frames": "600"},
			{"codec_type": "audio", "codec_name": "aac", "bit_rate": "128000"}
		],
		"format": {"duration": "10.010000", "bit_rate": "20000000"}
	}`)
	info, err := parseProbe(out)
	require.NoError(t, err)

	assert.Equal(t, 10010*time.Millisecond, info.Duration)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 60.0, info.FPS)
	assert.Equal(t, 600, info.FrameCount)
	assert.True(t, info.HasAudio)
	assert.Equal(t, int64(128000), info.AudioBitrate)

	noFrames := []byte(`{"streams":[{"codec_type":"video","r_frame_rate":"30/1"}],"format":{"duration":"2.0"}}`)
	info, err = parseProbe(noFrames)
	require.NoError(t, err)
	assert.Equal(t, 60, info.FrameCount)

	_, err = parseProbe([]byte("not json"))
	assert.Error(t, err)
}

func TestStreamOutput(t *testing.T) {
	in := strings.Join([]string{
		"Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'in.mp4':",
		"frame=12",
		"fps=24.5",
		"bitrate=1000kbits/s",
		"out_time=00:00:00.480000",
		"speed=1.2x",
		"progress=continue",
		"frame=0",
		"progress=end",
	}, "\n")

	var logs []string
	var progress []Progress
	streamOutput(strings.NewReader(in), func(p *Progress) {
		progress = append(progress, *p)
	}, func(line string) {
		logs = append(logs, line)
	})

	require.Len(t, progress, 1)
	assert.Equal(t, Progress{Frame: 12, FPS: 24.5, Bitrate: "1000kbits/s", Time: "00:00:00.480000", Speed: "1.2x"}, progress[0])
	assert.Equal(t, []string{"Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'in.mp4':"}, logs)
}

func TestLineTail(t *testing.T) {
	tail := newLineTail(2)
	for _, l := range []string{"a", "", "b", "c"} {
		tail.add(l)
	}
	assert.Equal(t, []string{"b", "c"}, tail.lines())
}

func TestExitError(t *testing.T) {
	inner := errors.New("exit status 1")
	err := error(&ExitError{Err: inner, Stderr: []string{"No such file"}})

	assert.True(t, IsExitError(err))
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "No such file")
	assert.False(t, IsExitError(inner))
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	e, err := New(zerolog.New(os.Stderr), Options{Threads: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ffmpegPath)
	assert.NotEmpty(t, e.ffprobePath)
	assert.Equal(t, DefaultPreset, e.preset)

	_, err = New(zerolog.Nop(), Options{BinaryPath: "/nonexistent/ffmpeg"})
	assert.Error(t, err)
}

func TestExtractClipConcatAndAudio(t *testing.T) {
	skipIfNoFFmpeg(t)

	e, err := New(zerolog.Nop(), Options{Threads: 2, Preset: "ultrafast"})
	require.NoError(t, err)
	ctx := context.Background()

	src := makeTestVideo(t, e, 3)

	dur, err := e.ProbeDuration(ctx, src)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, dur.Seconds(), 0.2)

	dir := t.TempDir()
	first := filepath.Join(dir, "source_clip_1.mp4")
	second := filepath.Join(dir, "source_clip_2.mp4")
	require.NoError(t, e.ExtractClip(ctx, src, ClipOptions{Start: 0, End: time.Second, Output: first}))
	require.NoError(t, e.ExtractClip(ctx, src, ClipOptions{Start: 2 * time.Second, End: 3 * time.Second, Output: second}))

	joined := filepath.Join(dir, "source_highlights.mp4")
	require.NoError(t, e.Concat(ctx, ConcatOptions{Inputs: []string{first, second}, Output: joined}))

	info, err := e.ProbeVideo(ctx, joined)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, info.Duration.Seconds(), 0.3)

	wav := filepath.Join(dir, "source.wav")
	require.NoError(t, e.ExtractAudio(ctx, src, wav, DefaultWAVFormat(), nil))
	assert.FileExists(t, wav)

	small := filepath.Join(dir, "compressed_source.mp4")
	require.NoError(t, e.Compress(ctx, src, small, CompressOptions{Width: 160, Preset: "ultrafast"}))
	info, err = e.ProbeVideo(ctx, small)
	require.NoError(t, err)
	assert.Equal(t, 160, info.Width)
	assert.False(t, info.HasAudio)
}

func TestRunFailureKeepsStderr(t *testing.T) {
	skipIfNoFFmpeg(t)

	e, err := New(zerolog.Nop(), Options{})
	require.NoError(t, err)

	err = e.Run(context.Background(), RunOptions{Args: []string{"-i", filepath.Join(t.TempDir(), "missing.mp4"), "out.mp4"}})
	require.Error(t, err)
	var ee *ExitError
	require.True(t, errors.As(err, &ee))
	assert.NotEmpty(t, ee.Stderr)
}

func TestRunCancelled(t *testing.T) {
	skipIfNoFFmpeg(t)

	e, err := New(zerolog.Nop(), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = e.Run(ctx, RunOptions{Args: []string{"-f", "lavfi", "-i", "testsrc", "-f", "null", "-"}})
	assert.ErrorIs(t, err, context.Canceled)
}
