package domain

// DocumentType classifies an indexed document.
type DocumentType string

const (
	// TypeConversation is a full or summarised conversation transcript.
	TypeConversation DocumentType = "conversation"

	// TypeMemory is an agent memory file (CLAUDE.md, AGENTS.md, ...).
	TypeMemory DocumentType = "memory"

	// TypePlan is a plan file written by an agent.
	TypePlan DocumentType = "plan"

	// TypeKnowledge is a knowledge-base entry.
	TypeKnowledge DocumentType = "knowledge"
)

// DefaultDocumentType is assumed when a document carries no type at all.
const DefaultDocumentType = TypeConversation

// ResolveDocumentType picks a document's type from the value stored in the
// search index, falling back to the value on the resolved document, falling
// back to DefaultDocumentType. Every callsite that needs a type goes through
// this so the fallback order is decided exactly once.
func ResolveDocumentType(indexed, stored DocumentType) DocumentType {
	if indexed != "" {
		return indexed
	}
	if stored != "" {
		return stored
	}
	return DefaultDocumentType
}

// Document is the atomic indexed unit: a conversation digest, a memory
// file, or a plan file produced by one agent source.
type Document struct {
	// ID is globally unique within an index build. Duplicate IDs collapse
	// to the first occurrence.
	ID string

	// Agent names the source that produced this document.
	Agent string

	// SessionID links back to a session, when the document is one.
	SessionID string

	// Timestamp is epoch milliseconds. Zero means unknown; documents
	// without a timestamp are never excluded by date filters.
	Timestamp int64

	// Project is the working directory the conversation ran in.
	Project string

	// FilePath is the on-disk origin of the document, when there is one.
	FilePath string

	// Display is a short human label (first prompt, file name, ...).
	Display string

	// Text is the full indexable body.
	Text string

	// Type classifies the document. Empty resolves to DefaultDocumentType.
	Type DocumentType

	// MessageCount is the number of messages for full-conversation
	// documents. Nil for history fallbacks and memory/plan files, which
	// always pass message-count filters.
	MessageCount *int
}

// MemoryFile is a raw memory or plan file yielded by an agent source
// before it is mapped into a Document.
type MemoryFile struct {
	Path    string
	Content string
}
