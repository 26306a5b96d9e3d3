//go:build !js

package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/utils"
	"github.com/himanishpuri/voicematch/pkg/voicematch"
	"github.com/himanishpuri/voicematch/pkg/voicematch/similarity"
)

func newCompareCommand(opts *globalOptions) *cobra.Command {
	var threshold float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare <audio1> <audio2>",
		Short: "Decide whether two recordings are the same speaker",
		Long:  "Compare two local files or two http(s) URLs.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t *float64
			if cmd.Flags().Changed("threshold") {
				t = &threshold
			}

			svc, err := opts.createService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			res, err := runCompare(ctx, svc, args[0], args[1], t)
			if err != nil && res.Status == "" {
				return err
			}

			if asJSON {
				if werr := writeJSON(cmd, res); werr != nil {
					return werr
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderResult(res))
			}
			if !res.Succeeded() {
				return fmt.Errorf("%s (%s)", res.Error, res.ErrorKind)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", similarity.DefaultThreshold, "Decision threshold in [-1, 1]")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// runCompare compares two URLs when both arguments are URLs, otherwise two
// local files.
func runCompare(ctx context.Context, svc voicematch.Service, a, b string, threshold *float64) (models.ComparisonResult, error) {
	if utils.IsValidURL(a) && utils.IsValidURL(b) {
		return svc.CompareURLs(ctx, a, b, threshold)
	}
	blobA, err := readAudio(a)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	blobB, err := readAudio(b)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	return svc.Compare(ctx, blobA, blobB, threshold)
}

func renderResult(res models.ComparisonResult) string {
	rows := [][]string{}
	if res.Succeeded() {
		rows = append(rows,
			[]string{"Conclusion", string(res.Conclusion)},
			[]string{"Similarity", fmt.Sprintf("%.4f", res.SimilarityScore)},
			[]string{"Threshold", fmt.Sprintf("%.2f", res.Threshold)},
		)
	} else {
		rows = append(rows,
			[]string{"Status", "error"},
			[]string{"Error", res.Error},
			[]string{"Kind", string(res.ErrorKind)},
		)
	}
	mem := "unavailable"
	if !res.MemoryUnavailable {
		mem = humanize.IBytes(uint64(res.MemoryUsageMB * 1024 * 1024))
	}
	rows = append(rows,
		[]string{"Backend", res.Backend},
		[]string{"Time", fmt.Sprintf("%.4fs", res.ExecutionTimeSeconds)},
		[]string{"Memory", mem},
		[]string{"Request", res.RequestID},
	)
	return renderTable([]string{"Field", "Value"}, rows, nil)
}

func newEmbedCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool
	var show int

	cmd := &cobra.Command{
		Use:   "embed <audio>",
		Short: "Print the voice embedding of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readAudio(args[0])
			if err != nil {
				return err
			}
			svc, err := opts.createService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			vec, err := svc.Embed(ctx, blob)
			if err != nil {
				return fmt.Errorf("%s (%s)", models.PublicMessage(err), models.KindOf(err))
			}
			if asJSON {
				return writeJSON(cmd, map[string]any{
					"backend":   svc.Backend(),
					"dimension": vec.Dim(),
					"embedding": vec,
				})
			}

			n := min(show, vec.Dim())
			head := make([]string, n)
			for i := range head {
				head[i] = fmt.Sprintf("%+.4f", vec[i])
			}
			leading := strings.Join(head, " ")
			if n < vec.Dim() {
				leading += " ..."
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, [][]string{
				{"Backend", svc.Backend()},
				{"Dimension", fmt.Sprint(vec.Dim())},
				{"Norm", fmt.Sprintf("%.6f", vec.Norm())},
				{"Leading", leading},
			}, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full vector as JSON")
	cmd.Flags().IntVar(&show, "show", 8, "Number of leading components to print")
	return cmd
}

func newInspectCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <audio>",
		Short: "Show what the normalizer sees in a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readAudio(args[0])
			if err != nil {
				return err
			}
			svc, err := opts.createService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			meta, perr := svc.Inspect(ctx, blob)
			if asJSON {
				if err := writeJSON(cmd, meta); err != nil {
					return err
				}
			} else {
				rms := "-inf"
				if !math.IsInf(meta.RMSDBFS, -1) {
					rms = fmt.Sprintf("%.1f dBFS", meta.RMSDBFS)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, [][]string{
					{"File", meta.Filename},
					{"Size", humanize.IBytes(uint64(meta.SizeBytes))},
					{"Format", string(meta.Format)},
					{"Decoder", meta.Decoder},
					{"Native rate", fmt.Sprintf("%d Hz", meta.NativeSampleRate)},
					{"Channels", fmt.Sprint(meta.NativeChannels)},
					{"Native duration", meta.NativeDuration.String()},
					{"Trimmed", meta.Trimmed.String()},
					{"Duration", meta.Duration.String()},
					{"Level", rms},
					{"VAD", fmt.Sprint(meta.VAD)},
				}, []columnAlignment{alignLeft, alignRight}))
			}
			if perr != nil {
				return fmt.Errorf("%s (%s)", models.PublicMessage(perr), models.KindOf(perr))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print metadata as JSON")
	return cmd
}
