package core

import (
	"errors"
	"fmt"
	"strings"
)

// Upload and validation errors.
var (
	ErrMissingRequiredColumns = errors.New("missing required columns")
	ErrIncompleteRow          = errors.New("required field is empty")
	ErrAllRowsInvalid         = errors.New("all rows invalid: every row is missing a required field")
	ErrUnsupportedFile        = errors.New("unsupported file type")
	ErrEmptyFile              = errors.New("empty file")
	ErrNoFile                 = errors.New("no file provided")
	ErrUnknownProfile         = errors.New("unknown profile")
	ErrURLColumnRequired      = errors.New("url column not selected")
)

// Fetch and export errors.
var (
	ErrFetchFailure    = errors.New("fetch failed")
	ErrEmptyResult     = errors.New("fetched resource has no records")
	ErrNotTabular      = errors.New("content is not tabular")
	ErrSessionNotFound = errors.New("session not found")
	ErrExportNotFound  = errors.New("export not found")
	ErrExportRunning   = errors.New("export still running")
	ErrRowNotFound     = errors.New("row not found")
	ErrNothingSelected = errors.New("no rows selected")
)

// MissingColumnsError names every required column absent from an upload header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrMissingRequiredColumns
}

// RowProblem describes an unusable row and the required fields it lacks.
type RowProblem struct {
	Row     Row
	Missing []string
}

func (p RowProblem) Error() string {
	return fmt.Sprintf("line %d: required field is empty: %s", p.Row.Line, strings.Join(p.Missing, ", "))
}

func (p RowProblem) Unwrap() error {
	return ErrIncompleteRow
}

// FailureReason classifies why a fetch produced no payload.
type FailureReason string

const (
	ReasonInvalid  FailureReason = "invalid"   // URL could not be used for a request
	ReasonNetwork  FailureReason = "network"   // transport error
	ReasonTimeout  FailureReason = "timeout"   // request or body read exceeded its deadline
	ReasonStatus   FailureReason = "status"    // non-2xx response
	ReasonTooLarge FailureReason = "too_large" // body exceeded the configured limit
	ReasonDecode   FailureReason = "decode"    // neither JSON nor a spreadsheet
	ReasonEmpty    FailureReason = "empty"     // decoded but zero records
	ReasonEncode   FailureReason = "encode"    // payload could not be written as a spreadsheet
)

// FetchFailure is the failure side of a FetchResult. It matches ErrFetchFailure
// with errors.Is, and ErrEmptyResult as well when Reason is ReasonEmpty.
type FetchFailure struct {
	URL        string
	Reason     FailureReason
	StatusCode int
	Message    string
	Err        error
}

func (f *FetchFailure) Error() string {
	if f.Message == "" {
		return fmt.Sprintf("fetch failed (%s): %s", f.Reason, f.URL)
	}
	return fmt.Sprintf("fetch failed (%s): %s", f.Reason, f.Message)
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}

func (f *FetchFailure) Is(target error) bool {
	if target == ErrFetchFailure {
		return true
	}
	return target == ErrEmptyResult && f.Reason == ReasonEmpty
}

func fetchFailed(url string, reason FailureReason, err error) FetchResult {
	f := &FetchFailure{URL: url, Reason: reason, Err: err}
	if err != nil {
		f.Message = err.Error()
	}
	return FetchResult{Failure: f}
}
