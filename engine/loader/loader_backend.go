package loader

import (
	"io"
)

// loaderBackend decodes one splat file format. Concrete implementations (plyLoaderBackend,
// splatLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// LoadReader decodes a complete file from a reader.
	//
	// Parameters:
	//   - name: the name given to the decoded cloud
	//   - r: the reader providing file data
	//
	// Returns:
	//   - *Cloud: the decoded cloud
	//   - error: error if decoding fails
	LoadReader(name string, r io.Reader) (*Cloud, error)
}
