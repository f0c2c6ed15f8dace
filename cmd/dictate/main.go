// Command dictate runs a dictation session locally: audio from a WAV file is
// recognized server side and merged into an in-memory text buffer.
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"voice-scribe-service/internal/languages"
	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/service/dictation"
	"voice-scribe-service/internal/service/recognizer"
	"voice-scribe-service/internal/service/recognizer/google"
	"voice-scribe-service/internal/service/recognizer/mock"
	"voice-scribe-service/internal/service/textbuffer"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

const chunkIntervalMs = 100

// audioSource is a recognizer that consumes audio frames.
type audioSource interface {
	recognizer.Source
	SendAudio(ctx context.Context, audio []byte) error
}

func main() {
	audioFile := flag.String("audio", "", "Path to WAV file (16-bit mono PCM). Required for -provider google")
	provider := flag.String("provider", "mock", "Recognizer: mock or google")
	lang := flag.String("lang", languages.Default, "Recognition language (BCP-47)")
	initial := flag.String("text", "", "Initial buffer content")
	caret := flag.Int("caret", -1, "Initial caret offset in runes (default: end of text)")
	interruptAfter := flag.Int("interrupt-after", 0, "Simulate a keystroke after this many frames (0 disables)")
	settle := flag.Duration("settle", 2*time.Second, "Time to wait for trailing results after the audio ends")
	realtime := flag.Bool("realtime", true, "Pace frames at real-time speed")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	tag, err := languages.Normalize(*lang)
	if err != nil {
		log.Fatal().Err(err).Msg("Unsupported language")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	frames, sampleRate, err := loadFrames(*audioFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", *audioFile).Msg("Failed to read audio")
	}

	src, err := newSource(ctx, *provider, sampleRate)
	if err != nil {
		log.Fatal().Err(err).Str("provider", *provider).Msg("Failed to create recognizer")
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	buf := textbuffer.New(*initial)
	defer buf.Close()
	if *caret >= 0 {
		buf.SetCaret(*caret)
	}

	synchronizer := dictation.New(src, buf, consoleSink{}, dictation.DefaultConfig())
	runCtx, cancelRun := context.WithCancel(ctx)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		synchronizer.Run(runCtx)
	}()

	if err := synchronizer.BeginCapture(ctx, tag); err != nil {
		var cerr *dictation.CaptureError
		if errors.As(err, &cerr) {
			log.Fatal().Err(err).Msg(cerr.Message())
		}
		log.Fatal().Err(err).Msg("Failed to start capture")
	}

	for i, frame := range frames {
		if ctx.Err() != nil || !synchronizer.Active() {
			break
		}
		if *interruptAfter > 0 && i == *interruptAfter {
			log.Info().Int("frame", i).Msg("Simulating a keystroke")
			buf.Type(" ")
		}
		if err := src.SendAudio(ctx, frame); err != nil {
			log.Warn().Err(err).Int("frame", i).Msg("Failed to send audio")
			break
		}
		if *realtime {
			time.Sleep(chunkIntervalMs * time.Millisecond)
		}
	}

	deadline := time.After(*settle)
wait:
	for synchronizer.Active() {
		select {
		case <-deadline:
			break wait
		case <-ctx.Done():
			break wait
		case <-time.After(50 * time.Millisecond):
		}
	}
	synchronizer.EndCapture()
	cancelRun()
	<-runDone

	fmt.Printf("%s\n", buf.Content())
	log.Info().Int("caret", buf.Caret()).Int("length", buf.Len()).Msg("Dictation finished")
}

func newSource(ctx context.Context, provider string, sampleRate int) (audioSource, error) {
	switch provider {
	case "mock":
		return mock.New(mock.DefaultConfig()), nil
	case "google":
		cfg := google.DefaultConfig()
		if sampleRate > 0 {
			cfg.SampleRateHz = int32(sampleRate)
		}
		return google.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// loadFrames splits a WAV file into 100ms frames. Without a file it returns
// silent frames, enough to drive the mock recognizer through its script.
func loadFrames(path string) ([][]byte, int, error) {
	if path == "" {
		frames := make([][]byte, 16)
		for i := range frames {
			frames[i] = make([]byte, 3200)
		}
		return frames, 16000, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, 0, fmt.Errorf("read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, 0, errors.New("not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])
	if audioFormat != 1 || bitsPerSample != 16 || numChannels != 1 {
		return nil, 0, fmt.Errorf("unsupported WAV format=%d channels=%d bits=%d: want 16-bit mono PCM",
			audioFormat, numChannels, bitsPerSample)
	}

	// 16-bit mono: two bytes per sample
	chunkSize := int(sampleRate) * 2 * chunkIntervalMs / 1000
	var frames [][]byte
	for {
		chunk := make([]byte, chunkSize)
		n, err := io.ReadFull(f, chunk)
		if n > 0 {
			frames = append(frames, chunk[:n])
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	return frames, int(sampleRate), nil
}

// consoleSink prints what happens to the buffer.
type consoleSink struct{}

func (consoleSink) CaptureStateChanged(change dictation.StateChange) {
	log.Info().
		Str("sessionId", change.SessionID).
		Str("state", change.State.String()).
		Str("reason", string(change.Reason)).
		Msg("Capture state")
}

func (consoleSink) TranscriptMerged(m dictation.Merge) {
	log.Info().
		Str("mode", m.Mode.String()).
		Bool("final", m.IsFinal).
		Str("delta", m.Delta).
		Int("caret", m.Caret).
		Msg(m.Text)
}

func (consoleSink) CaptureFailed(err *dictation.CaptureError) {
	log.Error().Str("reason", string(err.Reason)).Msg(err.Message())
}
