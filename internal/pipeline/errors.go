package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrNoInputFiles is returned when a batch has nothing to process.
	ErrNoInputFiles = errors.New("no input files")
	// ErrNoTransformations is returned for an empty transformation list.
	ErrNoTransformations = errors.New("no transformations selected")
	// ErrDuplicateInput is returned when two inputs share a base name and would
	// write the same output files.
	ErrDuplicateInput = errors.New("duplicate input file name")
	// ErrOutputCollision is returned when two jobs would write the same output name.
	ErrOutputCollision = errors.New("output file names collide")
	// ErrMissingOutput marks a step that reported success without producing its file.
	ErrMissingOutput = errors.New("output file missing after transformation")
	// ErrUnknownTopology is returned by ParseTopology.
	ErrUnknownTopology = errors.New("unknown topology")
)

// StepError is a failure of one transformation on one input file.
type StepError struct {
	File string `json:"file"`
	Step string `json:"step"`
	Err  error  `json:"-"`
}

// Error formats step failures for logs and UI.
func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s [%s]: %v", filepath.Base(e.File), e.Step, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *StepError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
