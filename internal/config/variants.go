package config

const (
	// VariantLocal runs speech-to-text and text-to-speech with locally installed tools.
	VariantLocal = "local"

	// VariantCloud runs speech through Google Cloud and refines the transcript before retrieval.
	VariantCloud = "cloud"
)

const (
	// IndexBackendChromem keeps the index in a chromem-go database exported to IndexPath.
	IndexBackendChromem = "chromem"

	// IndexBackendWeaviate keeps the index in a Weaviate class that is recreated per run.
	IndexBackendWeaviate = "weaviate"
)
