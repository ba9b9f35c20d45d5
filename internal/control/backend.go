package control

import (
	"encoding/json"
	"fmt"
	"os"

	"wispr/internal/capture"
	"wispr/internal/config"
	"wispr/internal/transcript"

	"github.com/spf13/cobra"
)

// NewHealthCmd checks the transcription backend.
func NewHealthCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the transcription backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := backend(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer cancel()
			h, err := client.Health(ctx)
			if err != nil {
				return err
			}
			cmd.Println(h.Summary())
			return nil
		},
	}
}

// NewHistoryCmd prints the server's transcription history.
func NewHistoryCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show transcription history",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := backend(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer cancel()
			entries, err := client.Transcriptions(ctx)
			if err != nil {
				return err
			}
			h := transcript.NewHistory()
			h.Apply(entries)
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(h.Entries())
			}
			out := cmd.OutOrStdout()
			for _, e := range h.Entries() {
				fmt.Fprintf(out, "%-9s %s", e.Timestamp, e.CleanedText)
				if e.Source != "" {
					fmt.Fprintf(out, "  (%s)", e.Source)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewClearCmd wipes the server history.
func NewClearCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear transcription history",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := backend(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer cancel()
			if err := client.ClearHistory(ctx); err != nil {
				return err
			}
			cmd.Println("history cleared")
			return nil
		},
	}
}

// NewTranscribeCmd uploads an audio file.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Send an audio file to the backend",
		Long: `Mono 16-bit WAV files are resampled to audio.sample_rate before upload.
Any other file is sent unchanged and decoded by the backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			data, err := readUpload(args[0], cfg.Audio.SampleRate)
			if err != nil {
				return err
			}
			client, ctx, cancel, err := backend(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer cancel()
			res, err := client.Transcribe(ctx, data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cleaned: %s\nraw:     %s\n", res.CleanedText, res.RawText)
			if res.Language != "" {
				fmt.Fprintf(out, "lang:    %s\n", res.Language)
			}
			return nil
		},
	}
}

func readUpload(path string, rate int) ([]byte, error) {
	clip, err := capture.DecodeWAV(path)
	if err != nil {
		return os.ReadFile(path)
	}
	return capture.EncodeWAV(clip.Resample(rate), "")
}

// NewStoreCmd records text captured elsewhere.
func NewStoreCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "store <raw> [cleaned]",
		Short: "Store a transcription produced outside wispr",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, cleaned := args[0], args[0]
			if len(args) == 2 {
				cleaned = args[1]
			}
			client, ctx, cancel, err := backend(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer cancel()
			e, err := client.Store(ctx, raw, cleaned)
			if err != nil {
				return err
			}
			if e == nil {
				cmd.Println("stored")
				return nil
			}
			cmd.Printf("stored #%s at %s\n", e.ID, e.Timestamp)
			return nil
		},
	}
}
