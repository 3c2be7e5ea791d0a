package domain

import "time"

// Article is a news item held by the vector index.
type Article struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	URL           string    `json:"url"`
	Source        string    `json:"source"`
	PublishedDate time.Time `json:"publishedDate"`
	Embedding     []float32 `json:"embedding,omitempty"`
	ProcessedAt   time.Time `json:"processedAt"`
}

type ScoredArticle struct {
	Article Article
	Score   float64
}

// EmbeddingOrigin tells whether a vector came from the remote model or
// from the local approximation.
type EmbeddingOrigin string

const (
	OriginRemote   EmbeddingOrigin = "remote"
	OriginFallback EmbeddingOrigin = "fallback"
)

type Embedding struct {
	Vector []float32
	Origin EmbeddingOrigin
}

func (e Embedding) IsFallback() bool {
	return e.Origin == OriginFallback
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Relevance string

const (
	RelevanceHigh Relevance = "high"
	RelevanceLow  Relevance = "low"
)

// Message is one chat turn entry in a session history.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`
	Relevance Relevance `json:"relevance,omitempty"`
	IsError   bool      `json:"isError,omitempty"`
}

type SourceRef struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	RelevanceScore float64 `json:"relevanceScore"`
}

type ChatResponse struct {
	Message   string      `json:"message"`
	Sources   []SourceRef `json:"sources"`
	Relevance Relevance   `json:"relevance"`
}

// StoreMetadata is a derived summary of the indexed articles. It can always
// be rebuilt from the article set.
type StoreMetadata struct {
	TotalDocuments int       `json:"totalDocuments"`
	Sources        []string  `json:"sources"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

type IndexStats struct {
	ArticlesInMemory int        `json:"articlesInMemory"`
	ArticlesInStore  int        `json:"articlesInStore"`
	Sources          []string   `json:"sources"`
	LastUpdated      *time.Time `json:"lastUpdated"`
}

// FeedSource is an RSS or Atom feed to ingest from.
type FeedSource struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}
