package edge

import "fmt"

// TransportError represents an unexpected HTTP status or a failed request
// against one of the backends.
type TransportError struct {
	Operation  string // The backend operation (e.g., "generate_download_info", "fwlink_redirect")
	URL        string // Request URL
	StatusCode int    // HTTP status code, 0 when the request never completed
	Err        error  // Underlying error, if any
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error during %s (HTTP %d): %s", e.Operation, e.StatusCode, e.URL)
	}

	if e.Err != nil {
		return fmt.Sprintf("transport error during %s: %s: %v", e.Operation, e.URL, e.Err)
	}

	return fmt.Sprintf("transport error during %s: %s", e.Operation, e.URL)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a backend value does not match any known
// enumerated value. It usually means the mapping tables are stale.
type ParseError struct {
	Field string // Domain being parsed (e.g., "os", "product")
	Value string // Raw value that failed to match
	Err   error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IntegrityError represents a digest mismatch, either of a whole file or of
// one piece after every retry was used.
type IntegrityError struct {
	Path     string // Destination file
	Piece    int    // Piece index, -1 for the whole file
	Attempts int    // Attempts made before giving up
}

func (e *IntegrityError) Error() string {
	if e.Piece < 0 {
		return fmt.Sprintf("sha256 mismatch for %s", e.Path)
	}

	return fmt.Sprintf("sha256 mismatch for piece %d of %s after %d attempts", e.Piece, e.Path, e.Attempts)
}

// ResolutionError is returned when no version or artifact can be determined
// for a requested identity.
type ResolutionError struct {
	Identity Identity
	Reason   string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unable to resolve %s: %s", e.Identity, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
