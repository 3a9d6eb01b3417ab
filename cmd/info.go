package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	audiowav "github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/duocap/duocap/internal/wav"
)

var infoCmd = &cobra.Command{
	Use:   "info [session-id]",
	Short: "Inspect recorded segment files",
	Long: `List the segment files in the output directory and print what the
WAV containers actually hold: sample rate, channel count and duration.
Placeholder output files (written when system audio could not be
captured) are marked. An optional session id limits the listing to one
session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionFilter := ""
		if len(args) == 1 {
			sessionFilter = args[0]
		}

		entries, err := os.ReadDir(cfg.Output.Directory)
		if err != nil {
			return fmt.Errorf("failed to read output directory %s: %w", cfg.Output.Directory, err)
		}

		var names []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if !strings.HasPrefix(name, "input_") && !strings.HasPrefix(name, "output_") {
				continue
			}
			if sessionFilter != "" && !strings.Contains(name, sessionFilter) {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		if len(names) == 0 {
			fmt.Println("no segment files found")
			return nil
		}

		for _, name := range names {
			printFileInfo(filepath.Join(cfg.Output.Directory, name))
		}
		return nil
	},
}

func printFileInfo(path string) {
	stat, err := os.Stat(path)
	if err != nil {
		fmt.Printf("%s: %v\n", filepath.Base(path), err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("%s: %v\n", filepath.Base(path), err)
		return
	}
	defer f.Close()

	decoder := audiowav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		fmt.Printf("%s  %s  (not a valid wav container)\n",
			filepath.Base(path), formatBytes(stat.Size()))
		return
	}

	line := fmt.Sprintf("%s  %s  %d Hz  %d ch",
		filepath.Base(path), formatBytes(stat.Size()),
		decoder.SampleRate, decoder.NumChans)

	if dur, err := decoder.Duration(); err == nil {
		line += fmt.Sprintf("  %.1fs", dur.Seconds())
	}
	if stat.Size() == int64(wav.HeaderSize) {
		line += "  [placeholder, no audio]"
	}
	fmt.Println(line)
}
