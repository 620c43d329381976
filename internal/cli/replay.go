package cli

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/syllogos/internal/assemble"
	"github.com/ppiankov/syllogos/internal/model"
	"github.com/ppiankov/syllogos/internal/stream"
)

var (
	replayFormat   string
	replayChunk    int
	replayMetadata string
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Feed a recorded stream through the assembler",
	Long: `Replay reads a recorded model stream and assembles it exactly as a live
analysis would, printing the emissions as NDJSON. No model is called.

The recording is either the raw text stream (metadata line followed by the
JSON body) or an event-framed capture of "data:" records. Raw recordings
are cut into fixed-size chunks to exercise fragment boundaries.

A recording that lacks the metadata line can be given one with --metadata.

Example:
  syllogos replay stream.txt --chunk 7
  syllogos replay capture.sse --format sse
  syllogos replay body.json --metadata meta.json --snapshots-only`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayFormat, "format", "raw", "recording format (raw, sse)")
	replayCmd.Flags().IntVar(&replayChunk, "chunk", 64, "bytes per chunk for raw recordings")
	replayCmd.Flags().StringVar(&replayMetadata, "metadata", "", "file holding the metadata line to prepend")
	replayCmd.Flags().StringVarP(&outPath, "output", "o", "-", "NDJSON output path (- for stdout)")
	replayCmd.Flags().BoolVar(&snapshotsOnly, "snapshots-only", false, "omit the metadata emission")
	replayCmd.Flags().BoolVar(&pretty, "pretty", false, "indent emitted JSON")
	replayCmd.Flags().StringVar(&paperID, "id", "", "paper id for the assembled result")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src, err := openRecording(args[0], replayFormat, replayChunk)
	if err != nil {
		return err
	}

	if replayMetadata != "" {
		data, err := os.ReadFile(replayMetadata)
		if err != nil {
			_ = src.Close()
			return fmt.Errorf("read metadata: %w", err)
		}
		line := strings.TrimSpace(string(data))
		src = stream.Prepend(line+"\n", src)
	}

	w, closeOut, err := openOutput(outPath)
	if err != nil {
		_ = src.Close()
		return err
	}

	asm := assemble.New(assemble.Options{
		Paper:    model.Paper{ID: paperID},
		Logger:   logger,
		Provider: "replay",
	})
	out, runErr := asm.Run(cmd.Context(), src, ndjsonEmitter(w, cfg.Output))
	if err := closeOut(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close output: %w", err)
	}

	summarize(args[0], out)
	if runErr != nil {
		return fmt.Errorf("replay failed: %w", runErr)
	}
	return nil
}

// openRecording opens path as a stream source of the given format
func openRecording(path, format string, chunk int) (stream.Source, error) {
	switch strings.ToLower(format) {
	case "sse", "event", "events":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open recording: %w", err)
		}
		return stream.NewEventFramed(f), nil

	case "raw", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read recording: %w", err)
		}
		return stream.FromSlice(chunkText(string(data), chunk)...), nil

	default:
		return nil, fmt.Errorf("unknown recording format: %s (supported: raw, sse)", format)
	}
}

// chunkText cuts s into pieces of at most size bytes, never splitting a
// UTF-8 sequence
func chunkText(s string, size int) []string {
	if size <= 0 || len(s) <= size {
		return []string{s}
	}
	chunks := make([]string, 0, len(s)/size+1)
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
			for cut < len(s) && !utf8.RuneStart(s[cut]) {
				cut++
			}
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	return append(chunks, s)
}
