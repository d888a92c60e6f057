package doctree

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title     string     // Section heading (empty for leaf text)
	Text      string     // Text content of this node (may be empty for container nodes)
	Page      int        // Source page, 1-based (0 if the format has no pages)
	Paragraph int        // Source paragraph, 1-based (0 to number sequentially)
	Children  []*DocNode // Subsections
}

// Chunk is one paragraph-sized text segment with its source locators.
type Chunk struct {
	Text      string
	Index     int // Sequence number within document
	Page      int // 0 if N/A
	Paragraph int // 0 if N/A
}
