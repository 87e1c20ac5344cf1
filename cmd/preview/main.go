//go:build cgo_enabled

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harshabose/preview"
	"github.com/harshabose/preview/internal/logging"
	"github.com/harshabose/preview/pkg/config"
	"github.com/harshabose/preview/pkg/media"
	"github.com/harshabose/preview/pkg/timeline"
	"github.com/harshabose/preview/pkg/transcode"
)

var (
	cfgFile    string
	verbose    bool
	categories []string
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "preview",
	Short: "preview - non-linear video preview engine",
	Long:  "Decodes, cuts, fades and composes video files the way an editor's preview window would, without the window.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Init(level, append(cfg.Log.Categories, categories...)...); err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringSliceVar(&categories, "log-category", nil, "log categories to enable (decoder, filter, clip_recalc, get_video_frame, audio, overlay, realtime)")

	playCmd.Flags().StringSliceVar(&playMain, "main", nil, "files for the main track, in order")
	playCmd.Flags().StringSliceVar(&playOverlay, "overlay", nil, "files for the overlay track, in order")
	playCmd.Flags().BoolVar(&playFade, "fade", true, "fade between consecutive files")
	playCmd.Flags().Float64Var(&playSeek, "seek", 0, "start position in seconds")
	playCmd.Flags().Float64Var(&playSplit, "split", 0, "split the main track at this time before playing")
	playCmd.Flags().DurationVar(&playFor, "for", 5*time.Second, "wall time to play for")
	playCmd.Flags().IntVar(&playWidth, "width", 640, "output width")
	playCmd.Flags().IntVar(&playHeight, "height", 360, "output height")
	playCmd.Flags().IntVar(&playRate, "rate", 30, "render ticks per second")
	_ = playCmd.MarkFlagRequired("main")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(configCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe [files...]",
	Short: "Print the streams and duration of media files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			info, err := transcode.Probe(path)
			if err != nil {
				return err
			}

			log.Info().
				Str("path", info.Path).
				Float64("duration", info.Duration).
				Bool("video", info.HasVideo).
				Int("width", info.Width).
				Int("height", info.Height).
				Float64("fps", info.FrameRate).
				Str("video_codec", info.VideoCodec).
				Bool("audio", info.HasAudio).
				Int("sample_rate", info.SampleRate).
				Int("channels", info.Channels).
				Str("audio_codec", info.AudioCodec).
				Msg("probed")
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config [output file]",
	Short: "Write the effective configuration as yaml",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.FromContext(cmd.Context()).Save(args[0]); err != nil {
			return err
		}
		log.Info().Str("path", args[0]).Msg("configuration written")
		return nil
	},
}

var (
	playMain    []string
	playOverlay []string
	playFade    bool
	playSeek    float64
	playSplit   float64
	playFor     time.Duration
	playWidth   int
	playHeight  int
	playRate    int
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a timeline headless and report what was rendered",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), playFor)
		defer cancel()

		editor, err := preview.NewEditor(ctx, preview.WithAstiavBackend())
		if err != nil {
			return err
		}
		defer editor.Close()

		if err := appendAll(editor, preview.TrackMain, playMain); err != nil {
			return err
		}
		if err := appendAll(editor, preview.TrackOverlay, playOverlay); err != nil {
			return err
		}

		if playSplit > 0 {
			if err := editor.Split(preview.TrackMain, playSplit, timeline.TransitionFade); err != nil {
				return err
			}
		}

		player, err := preview.NewPlayer(editor, preview.WithPlayerLogger(log.Logger))
		if err != nil {
			return err
		}
		if playSeek > 0 {
			if err := player.SeekTo(playSeek); err != nil {
				return err
			}
		}
		player.Play()

		var videoFrames, audioFrames int
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			ticker := time.NewTicker(time.Second / time.Duration(playRate))
			defer ticker.Stop()

			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
				}

				_, fresh, err := player.Tick(gctx, playWidth, playHeight)
				if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
					return err
				}
				if fresh {
					videoFrames++
				}
				if player.Ended() {
					cancel()
					return nil
				}
			}
		})

		g.Go(func() error {
			audio := logging.Category(logging.CategoryAudio)
			for {
				if gctx.Err() != nil {
					return nil
				}

				frame, err := editor.RequestAudioFrame(gctx)
				switch {
				case err == nil:
					audioFrames++
					audio.Debug().Int64("pts", frame.Pts()).Msg("audio frame")
				case media.IsTransient(err):
					time.Sleep(5 * time.Millisecond)
				case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
					return nil
				default:
					return err
				}
			}
		})

		if err := g.Wait(); err != nil {
			return err
		}

		log.Info().
			Int("video_frames", videoFrames).
			Int("audio_frames", audioFrames).
			Float64("position", player.Position()).
			Float64("last_shown", editor.LastShownTime()).
			Float64("duration", editor.Duration()).
			Msg("playback finished")
		return nil
	},
}

func appendAll(editor *preview.Editor, track preview.TrackKind, paths []string) error {
	for i, path := range paths {
		transition := timeline.TransitionNone
		if i > 0 && playFade {
			transition = timeline.TransitionFade
		}
		if err := editor.Append(track, path, transition); err != nil {
			return err
		}
	}
	return nil
}
