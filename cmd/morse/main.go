// Command morse translates text to Morse code and writes it as an audio clip.
// The Morse string is printed to stdout, or to stderr when the clip itself
// goes to stdout.
//
//	morse [-o out.mp3] [-frequency Hz] [-volume v] [-wav] text...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/morsecast/morsecast/internal/media"
	"github.com/morsecast/morsecast/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("morse", flag.ContinueOnError)
	fs.SetOutput(stderr)

	out := fs.String("o", "", "output file (default \"<performer> - <text>.mp3\", \"-\" for stdout)")
	frequency := fs.Float64("frequency", media.DefaultParams.FrequencyHz, "tone frequency in Hz")
	volume := fs.Float64("volume", media.DefaultParams.Volume, "tone volume as a fraction of full scale (0-1)")
	wav := fs.Bool("wav", false, "write uncompressed WAV instead of MP3")
	maxLen := fs.Int("max-morse-length", pipeline.DefaultMaxMorseLength, "longest Morse string that will be synthesized")
	performer := fs.String("performer", "morsecast", "performer name used for the default file name")
	logLevel := fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: morse [flags] text...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(stderr, "error: invalid log level %q\n", *logLevel)
		return 2
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	params := media.Params{FrequencyHz: *frequency, Volume: *volume}
	if err := params.Validate(media.SampleRate); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	text := strings.Join(fs.Args(), " ")
	synth := media.NewSynthesizer()
	svc := pipeline.NewService(synth, nil, pipeline.Config{
		MaxMorseLength: *maxLen,
		Params:         params,
		Performer:      *performer,
	}, nil)

	var (
		m     string
		audio []byte
		err   error
	)
	if *wav {
		m, err = svc.Translate(text)
		if err == nil {
			audio, err = synth.RenderWAV(m, params)
		}
	} else {
		var res *pipeline.Result
		res, err = svc.Encode(context.Background(), text)
		if res != nil {
			m, audio = res.Morse, res.Audio
		}
	}
	if err != nil {
		return fail(stderr, err)
	}

	path := *out
	if path == "" {
		path = pipeline.Filename(*performer, text)
		if *wav {
			path = strings.TrimSuffix(path, ".mp3") + ".wav"
		}
	}
	if path == "-" {
		// stdout carries the clip alone so it can be redirected to a file.
		fmt.Fprintln(stderr, m)
		if _, err := stdout.Write(audio); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintln(stdout, m)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	slog.Info("clip written", "path", path, "bytes", len(audio))
	return 0
}

// fail prints the end-user message for pipeline rejections and the raw
// error for everything else.
func fail(stderr io.Writer, err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNoEncodableCharacters), errors.Is(err, pipeline.ErrOutputTooLarge):
		fmt.Fprintln(stderr, pipeline.UserMessage(err))
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return 1
}
