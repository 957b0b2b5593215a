package chunker

import (
	"strconv"
)

// ChunkType tells whether a chunk holds a whole structural unit or one part of
// a unit that exceeded the token budget.
type ChunkType string

const (
	CompleteUnit ChunkType = "complete_unit"
	SplitUnit    ChunkType = "split_unit"
)

// Chunk is the unit of retrieval. It is never mutated after creation.
type Chunk struct {
	ID   string
	Text string
	Meta Metadata
}

// Metadata carries the hierarchical provenance of a chunk.
type Metadata struct {
	Chapter           string
	Article           string
	SubArticle        string
	HierarchicalTitle string
	Page              int
	SourceFile        string
	Type              ChunkType
	EstimatedTokens   int
	Part              int // 1-based, split units only
}

// Metadata keys as stored next to each vector.
const (
	KeyChapter           = "chapter"
	KeyArticle           = "article"
	KeySubArticle        = "sub_article"
	KeyHierarchicalTitle = "hierarchical_title"
	KeyPage              = "page"
	KeySourceFile        = "source_file"
	KeyChunkType         = "chunk_type"
	KeyEstimatedTokens   = "estimated_tokens"
	KeyPart              = "part"
)

// ToMap flattens the metadata for the vector store.
func (m Metadata) ToMap() map[string]string {
	out := map[string]string{
		KeyChapter:           m.Chapter,
		KeyArticle:           m.Article,
		KeySubArticle:        m.SubArticle,
		KeyHierarchicalTitle: m.HierarchicalTitle,
		KeyPage:              strconv.Itoa(m.Page),
		KeySourceFile:        m.SourceFile,
		KeyChunkType:         string(m.Type),
		KeyEstimatedTokens:   strconv.Itoa(m.EstimatedTokens),
	}
	if m.Type == SplitUnit {
		out[KeyPart] = strconv.Itoa(m.Part)
	}
	return out
}

// MetadataFromMap is the inverse of ToMap. Unparseable numbers read as zero.
func MetadataFromMap(in map[string]string) Metadata {
	page, _ := strconv.Atoi(in[KeyPage])
	tokens, _ := strconv.Atoi(in[KeyEstimatedTokens])
	part, _ := strconv.Atoi(in[KeyPart])

	return Metadata{
		Chapter:           in[KeyChapter],
		Article:           in[KeyArticle],
		SubArticle:        in[KeySubArticle],
		HierarchicalTitle: in[KeyHierarchicalTitle],
		Page:              page,
		SourceFile:        in[KeySourceFile],
		Type:              ChunkType(in[KeyChunkType]),
		EstimatedTokens:   tokens,
		Part:              part,
	}
}

// Chunker is implemented by every segmentation strategy.
type Chunker interface {
	// Chunk splits one document's text into chunks.
	Chunk(content, source string) ([]Chunk, error)

	// Name is used in logs.
	Name() string
}

// TextCleaner turns extracted page text into clean Unicode.
type TextCleaner func(string) string

// Config is shared by all chunkers.
type Config struct {
	MaxTokens int         // token budget per chunk
	Clean     TextCleaner // applied per page before segmentation; nil keeps text as is
}
