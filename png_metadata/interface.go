package png_metadata

type Extractor interface {
	ExtractGenerationInfo() (*GenerationInfo, error)
}
