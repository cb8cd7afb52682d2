package types

import "fmt"

// FetchError is a failed request that retrying will not fix.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TooManyFailuresError is returned once a request has failed the configured
// number of times. It aborts the repository being processed.
type TooManyFailuresError struct {
	URL   string
	Tries int
	Err   error
}

func (e *TooManyFailuresError) Error() string {
	return fmt.Sprintf("%d request failures for %s: %v", e.Tries, e.URL, e.Err)
}

func (e *TooManyFailuresError) Unwrap() error { return e.Err }

// ExtractionError reports a function whose name or span could not be recovered.
type ExtractionError struct {
	Function string
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %s", e.Function, e.Reason)
}

// ScanError reports a diff line the scanner could not account for.
type ScanError struct {
	Line   string
	Reason string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %q: %s", e.Line, e.Reason)
}
