package model

// Kind tags a manifest entry as a directory or a file
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDirectory
	KindFile
)

// Tag returns the one character manifest tag ("d" or "f").
func (k Kind) Tag() string {
	switch k {
	case KindDirectory:
		return "d"
	case KindFile:
		return "f"
	}
	return "?"
}

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	}
	return "unknown"
}

// MarshalText encodes the kind as its manifest tag.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.Tag()), nil
}

// Entry is one discovered remote path.
type Entry struct {
	Kind Kind `json:"kind"`
	// Path relative to the crawl root, directories end in "/"
	Path string `json:"path"`
	// Absolute URL of the entry
	URL string `json:"url"`
	// Depth below the crawl root (direct children are depth 1)
	Depth int `json:"depth"`
}

// NodeFailure records a crawl node that could not be fetched or parsed.
// The crawl continues without it.
type NodeFailure struct {
	URL      string `json:"url"`
	Depth    int    `json:"depth"`
	Attempts int    `json:"attempts"`
	Err      string `json:"error"`
}
