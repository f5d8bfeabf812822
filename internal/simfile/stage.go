package simfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lumator/internal/errs"

	"github.com/rs/zerolog/log"
)

// Locations of the staged inputs relative to the simulator installation.
const (
	StagedDemandPath    = "input/input_scenario/demand.txt"
	StagedParameterPath = "parameters.txt"
)

// Stage copies the generated demand and parameter files into the simulator
// tree, creating the input directory when missing.
func Stage(simulatorDir, demandFile, parameterFile string) error {
	log.Debug().Str("dir", simulatorDir).Msg("Moving files to simulator")

	if err := copyFile(demandFile, filepath.Join(simulatorDir, filepath.FromSlash(StagedDemandPath))); err != nil {
		return fmt.Errorf("stage demand file: %w", err)
	}
	if err := copyFile(parameterFile, filepath.Join(simulatorDir, StagedParameterPath)); err != nil {
		return fmt.Errorf("stage parameter file: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", errs.ErrIO, src, err)
	}
	defer in.Close()

	err = writeFile(dst, func(w *bufio.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	log.Trace().Str("from", src).Str("to", dst).Msg("Copied file")
	return nil
}
