package source

import "fmt"

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual indicates the file was added from memory (editor overlay, stdin, test).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File captures metadata and content for a single source file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Lines   *LineIndex
	Hash    [32]byte
	Flags   FileFlags
}

// GetLine returns the text of the given 0-based line without its newline.
// Out-of-range lines yield an empty string.
func (f *File) GetLine(line uint32) string {
	start, end := f.Lines.LineSpan(line)
	return string(f.Content[start:end])
}

// LineCol is a human-oriented position. Both fields are 0-based byte
// coordinates; display boundaries add 1.
type LineCol struct {
	Line uint32
	Col  uint32
}

func (lc LineCol) String() string {
	return fmt.Sprintf("%d:%d", lc.Line+1, lc.Col+1)
}

// Before reports whether lc precedes other in document order.
func (lc LineCol) Before(other LineCol) bool {
	if lc.Line != other.Line {
		return lc.Line < other.Line
	}
	return lc.Col < other.Col
}
