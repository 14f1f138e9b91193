package dataset

// GenerationCase is one evaluation record: a template, raw content, and the
// expectations a reasonable allocation should meet.
type GenerationCase struct {
	// ID is the case's primary key.
	ID string `json:"id" parquet:"id"`

	// TemplateJSON is the template geometry in the extraction wire format.
	TemplateJSON string `json:"template_json" parquet:"template_json"`

	// Content is the raw text to lay out.
	Content string `json:"content" parquet:"content"`

	// ImageCount synthesizes that many placeholder images for the run.
	ImageCount int `json:"image_count" parquet:"image_count"`

	// Expected slide count bounds. Zero max means unbounded.
	MinSlides int `json:"min_slides" parquet:"min_slides"`
	MaxSlides int `json:"max_slides" parquet:"max_slides"`

	// ExpectOverflowFree marks cases whose content is known to fit, so any
	// unresolved overflow is a regression.
	ExpectOverflowFree bool `json:"expect_overflow_free" parquet:"expect_overflow_free"`
}
