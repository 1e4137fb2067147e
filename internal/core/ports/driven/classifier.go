package driven

// Classifier assigns a document type. It always returns a type,
// falling back to domain.DefaultDocumentType.
type Classifier interface {
	Classify(filename, text string) string
}
