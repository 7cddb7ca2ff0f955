package doctree

// Page is one page of extracted document text.
type Page struct {
	Number    int    `json:"number"` // 1-based
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}

// Heading is a detected heading line.
type Heading struct {
	Text           string `json:"text"`
	Level          int    `json:"level"` // 1 is the outermost level
	PageNumber     int    `json:"page_number"`
	PositionInPage int    `json:"position_in_page"` // Byte offset of the heading line within the page text
}

// Section is a run of pages bounded by consecutive headings.
type Section struct {
	Heading   string `json:"heading,omitempty"` // Empty for the untitled level-0 section
	Level     int    `json:"level"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Text      string `json:"text"`
}

// ParsedDocument is the extracted text representation of a document, ready for chunking.
type ParsedDocument struct {
	Title     string    `json:"title"`
	Format    string    `json:"format,omitempty"` // File extension without the dot
	FullText  string    `json:"-"`
	Pages     []Page    `json:"pages,omitempty"`
	Headings  []Heading `json:"headings,omitempty"`
	Sections  []Section `json:"sections,omitempty"`
	PageCount int       `json:"page_count"`
	CharCount int       `json:"char_count"`
	WordCount int       `json:"word_count"`
}

// ChunkMetadata locates a chunk within its source document.
type ChunkMetadata struct {
	Chapter        string   `json:"chapter,omitempty"`
	Section        string   `json:"section,omitempty"`
	PageStart      int      `json:"page_start,omitempty"`
	PageEnd        int      `json:"page_end,omitempty"`
	Pages          []int    `json:"pages,omitempty"`
	HeadingContext []string `json:"heading_context,omitempty"` // Heading hierarchy, e.g. ["Financial Results", "Revenue", "Q4"]
}

// Chunk is a token-bounded text segment, ready for embedding and indexing downstream.
type Chunk struct {
	Text       string        `json:"text"`
	TokenCount int           `json:"token_count"`
	Sequence   int           `json:"sequence"` // 0-based reading order within the document
	Hash       string        `json:"hash"`     // Hex SHA-256 of Text
	Metadata   ChunkMetadata `json:"metadata"`
}

// DocNode is a node in a document outline built from flat sections.
type DocNode struct {
	Title     string     `json:"title"`
	Level     int        `json:"level"`
	PageStart int        `json:"page_start"`
	PageEnd   int        `json:"page_end"`
	Children  []*DocNode `json:"children,omitempty"`
}
